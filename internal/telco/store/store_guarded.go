package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"telcoreg/internal/telco/models"
	"telcoreg/pkg/platform/circuit"
	"telcoreg/pkg/platform/sentinel"
)

// Backend is a durable state store.
type Backend interface {
	Load(ctx context.Context) (*models.State, error)
	Version(ctx context.Context) (uint64, error)
	Apply(ctx context.Context, m models.Mutation) error
}

// Guarded fails writes and version checks fast with sentinel.ErrUnavailable
// while its backend is failing, instead of letting every registry call wait
// on a dead connection.
type Guarded struct {
	next    Backend
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// NewGuarded wraps next with breaker.
func NewGuarded(next Backend, breaker *circuit.Breaker, logger *slog.Logger) *Guarded {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guarded{next: next, breaker: breaker, logger: logger}
}

// Load is not guarded: it runs at start-up and after a lost version race,
// and a failure there is reported by the caller.
func (g *Guarded) Load(ctx context.Context) (*models.State, error) {
	return g.next.Load(ctx)
}

// Version forwards unless the breaker is open.
func (g *Guarded) Version(ctx context.Context) (uint64, error) {
	var version uint64
	err := g.guard(ctx, func() error {
		var err error
		version, err = g.next.Version(ctx)
		return err
	})
	return version, err
}

// Apply forwards m unless the breaker is open. A version or uniqueness
// conflict is a healthy answer from the backend and counts as success.
func (g *Guarded) Apply(ctx context.Context, m models.Mutation) error {
	return g.guard(ctx, func() error {
		return g.next.Apply(ctx, m)
	})
}

func (g *Guarded) guard(ctx context.Context, call func() error) error {
	if !g.breaker.Allow() {
		return fmt.Errorf("%s store: %w", g.breaker.Name(), sentinel.ErrUnavailable)
	}

	err := call()
	if err == nil || errors.Is(err, sentinel.ErrConflict) {
		if _, change := g.breaker.RecordSuccess(); change.Closed {
			g.logger.InfoContext(ctx, "store_circuit_closed", "store", g.breaker.Name())
		}
		return err
	}

	if _, change := g.breaker.RecordFailure(); change.Opened {
		g.logger.WarnContext(ctx, "store_circuit_opened",
			"store", g.breaker.Name(),
			"error", err,
		)
	}
	return err
}
