// Package service hosts a registry on top of a durable state store.
//
// The service restores the registry from its store at start-up, persists every
// mutation through the store before it takes effect, and decorates each call
// with tracing, structured logs and metrics. It adds no rules of its own: every
// accept/reject decision is the registry's.
//
// Several services may share one store. Every call first compares the
// registry's version with the store's and reloads when another process has
// moved the state on. Each mutation also carries the version it was computed
// against, and the store refuses it if a write landed in between; the service
// then reloads and lets the registry decide again against the fresh state.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"telcoreg/internal/telco/metrics"
	"telcoreg/internal/telco/models"
	"telcoreg/internal/telco/registry"
	dErrors "telcoreg/pkg/domain-errors"
	"telcoreg/pkg/platform/sentinel"
	"telcoreg/pkg/requestcontext"
)

const tracerName = "telcoreg/internal/telco/service"

// maxAttempts bounds how often one call is re-evaluated after losing a
// version race to another process.
const maxAttempts = 3

// Operation names shared by spans, log lines and metric labels.
const (
	opRegisterTelco = "register_telco"
	opVerifyTelco   = "verify_telco"
	opUpdateTelco   = "update_telco"
	opRemoveTelco   = "remove_telco"
	opGetTelco      = "get_telco"
	opTransferAdmin = "transfer_admin"
)

// Store persists the registry state.
type Store interface {
	// Load returns the persisted state, or sentinel.ErrNotFound if nothing
	// has been persisted yet.
	Load(ctx context.Context) (*models.State, error)
	// Version returns the version of the persisted state, 0 before the first
	// write.
	Version(ctx context.Context) (uint64, error)
	// Apply persists one mutation atomically, or returns sentinel.ErrConflict
	// if the stored version no longer equals m.Version.
	Apply(ctx context.Context, m models.Mutation) error
}

// Service is a durable, observable registry.
type Service struct {
	store    Store
	registry *registry.Registry
	genesis  models.Address
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithGenesisAdmin sets the admin a fresh deployment starts with. It has no
// effect once an admin has been persisted.
func WithGenesisAdmin(admin models.Address) Option {
	return func(s *Service) {
		if !admin.IsNil() {
			s.genesis = admin
		}
	}
}

// New restores the registry from store, bootstrapping the genesis admin on a
// fresh deployment.
func New(ctx context.Context, store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	s := &Service{
		store:   store,
		genesis: registry.GenesisAdmin,
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}

	state, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}
	s.registry = registry.Restore(state, registry.WithCommitter(registry.CommitterFunc(s.commit)))
	s.publishCounts()
	return s, nil
}

func (s *Service) loadState(ctx context.Context) (*models.State, error) {
	state, err := s.store.Load(ctx)
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "registry_restored",
			"admin", state.Admin,
			"telcos", len(state.Telcos),
		)
		return state, nil
	case errors.Is(err, sentinel.ErrNotFound):
		err := s.store.Apply(ctx, models.SetAdmin(s.genesis))
		if errors.Is(err, sentinel.ErrConflict) {
			// another process bootstrapped first
			state, err := s.store.Load(ctx)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registry state")
			}
			return state, nil
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist genesis admin")
		}
		s.logger.InfoContext(ctx, "registry_bootstrapped", "admin", s.genesis)
		state := models.NewState(s.genesis)
		state.Version = 1
		return state, nil
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registry state")
	}
}

// commit persists a mutation before the registry applies it.
func (s *Service) commit(ctx context.Context, m models.Mutation) error {
	return s.store.Apply(ctx, m)
}

// retry syncs with the store and runs call until it stops losing version
// races, reloading between attempts. Rejections are decided against fresh
// state, so a process answers as if it had seen every write.
func (s *Service) retry(ctx context.Context, call func() (bool, error)) (bool, error) {
	if err := s.sync(ctx); err != nil {
		return false, err
	}
	for attempt := 1; ; attempt++ {
		ok, err := call()
		if err == nil || attempt == maxAttempts || !errors.Is(err, sentinel.ErrConflict) {
			return ok, err
		}
		if err := s.reload(ctx); err != nil {
			return false, err
		}
	}
}

// sync reloads the registry when the store has moved past it.
func (s *Service) sync(ctx context.Context) error {
	version, err := s.store.Version(ctx)
	if err != nil {
		return storeError(err, "failed to read registry version")
	}
	if version > s.registry.Version() {
		return s.reload(ctx)
	}
	return nil
}

// syncForRead is sync for lookups: when the store cannot be reached the
// local copy is served.
func (s *Service) syncForRead(ctx context.Context) {
	if err := s.sync(ctx); err != nil {
		s.logger.WarnContext(ctx, "registry_sync_failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func (s *Service) reload(ctx context.Context) error {
	state, err := s.store.Load(ctx)
	if err != nil {
		return storeError(err, "failed to reload registry state")
	}
	s.registry.Reset(state)
	s.logger.InfoContext(ctx, "registry_reloaded",
		"request_id", requestcontext.RequestID(ctx),
		"admin", state.Admin,
		"telcos", len(state.Telcos),
		"version", state.Version,
	)
	s.publishCounts()
	return nil
}

func storeError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) RegisterTelco(ctx context.Context, caller models.Address, meta models.Metadata, publicKey string) (bool, error) {
	ctx, done := s.start(ctx, opRegisterTelco, caller)
	ok, err := s.retry(ctx, func() (bool, error) {
		return s.registry.RegisterTelco(ctx, caller, meta, publicKey)
	})
	done(err)
	if err == nil {
		s.logger.InfoContext(ctx, "telco_registered",
			"request_id", requestcontext.RequestID(ctx),
			"telco", caller,
			"country", meta.Country,
		)
		s.publishCounts()
	}
	return ok, err
}

func (s *Service) VerifyTelco(ctx context.Context, caller, telco models.Address) (bool, error) {
	ctx, done := s.start(ctx, opVerifyTelco, caller, attribute.String("telco.address", telco.String()))
	ok, err := s.retry(ctx, func() (bool, error) {
		return s.registry.VerifyTelco(ctx, caller, telco)
	})
	done(err)
	if err == nil {
		s.logger.InfoContext(ctx, "telco_verified",
			"request_id", requestcontext.RequestID(ctx),
			"telco", telco,
			"admin", caller,
		)
		s.publishCounts()
	}
	return ok, err
}

func (s *Service) UpdateTelco(ctx context.Context, caller models.Address, meta models.Metadata) (bool, error) {
	ctx, done := s.start(ctx, opUpdateTelco, caller)
	ok, err := s.retry(ctx, func() (bool, error) {
		return s.registry.UpdateTelco(ctx, caller, meta)
	})
	done(err)
	if err == nil {
		s.logger.InfoContext(ctx, "telco_updated",
			"request_id", requestcontext.RequestID(ctx),
			"telco", caller,
		)
	}
	return ok, err
}

func (s *Service) RemoveTelco(ctx context.Context, caller, telco models.Address) (bool, error) {
	ctx, done := s.start(ctx, opRemoveTelco, caller, attribute.String("telco.address", telco.String()))
	ok, err := s.retry(ctx, func() (bool, error) {
		return s.registry.RemoveTelco(ctx, caller, telco)
	})
	done(err)
	if err == nil {
		s.logger.InfoContext(ctx, "telco_removed",
			"request_id", requestcontext.RequestID(ctx),
			"telco", telco,
			"admin", caller,
		)
		s.publishCounts()
	}
	return ok, err
}

func (s *Service) GetTelco(ctx context.Context, telco models.Address) (*models.Telco, error) {
	ctx, done := s.start(ctx, opGetTelco, "", attribute.String("telco.address", telco.String()))
	s.syncForRead(ctx)
	t, err := s.registry.GetTelco(ctx, telco)
	done(err)
	return t, err
}

func (s *Service) TransferAdmin(ctx context.Context, caller, newAdmin models.Address) (bool, error) {
	ctx, done := s.start(ctx, opTransferAdmin, caller, attribute.String("registry.new_admin", newAdmin.String()))
	ok, err := s.retry(ctx, func() (bool, error) {
		return s.registry.TransferAdmin(ctx, caller, newAdmin)
	})
	done(err)
	if err == nil {
		s.logger.InfoContext(ctx, "admin_transferred",
			"request_id", requestcontext.RequestID(ctx),
			"previous_admin", caller,
			"admin", newAdmin,
		)
	}
	return ok, err
}

// Admin returns the current admin.
func (s *Service) Admin(ctx context.Context) models.Address {
	s.syncForRead(ctx)
	return s.registry.Admin()
}

// Snapshot returns a copy of the in-memory state.
func (s *Service) Snapshot() *models.State {
	return s.registry.Snapshot()
}

// start opens a span for op and returns a finisher that records the outcome
// on the span, in the logs and in metrics.
func (s *Service) start(ctx context.Context, op string, caller models.Address, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	begin := time.Now()
	if !caller.IsNil() {
		attrs = append(attrs, attribute.String("registry.caller", caller.String()))
	}
	ctx, span := s.tracer.Start(ctx, "telco."+op, trace.WithAttributes(attrs...))

	return ctx, func(err error) {
		defer span.End()

		if err == nil {
			s.metrics.ObserveOperation(op, metrics.OutcomeOK, begin)
			return
		}
		if code, ok := models.CodeOf(err); ok {
			span.SetAttributes(attribute.Int("registry.error_code", int(code)))
			s.metrics.ObserveOperation(op, metrics.OutcomeRejected, begin)
			s.logger.WarnContext(ctx, "registry_call_rejected",
				"request_id", requestcontext.RequestID(ctx),
				"operation", op,
				"caller", caller,
				"code", int(code),
				"reason", code.String(),
			)
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		s.metrics.ObserveOperation(op, metrics.OutcomeError, begin)
		s.logger.ErrorContext(ctx, "registry_call_failed",
			"request_id", requestcontext.RequestID(ctx),
			"operation", op,
			"caller", caller,
			"error", err,
		)
	}
}

func (s *Service) publishCounts() {
	if s.metrics == nil {
		return
	}
	s.metrics.SetTelcoCounts(s.registry.Counts())
}
