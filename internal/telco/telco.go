package telco

import (
	"context"
	"log/slog"

	"telcoreg/internal/telco/handler"
	"telcoreg/internal/telco/metrics"
	"telcoreg/internal/telco/models"
	"telcoreg/internal/telco/service"
)

// Service exposes the durable telco registry.
type Service = service.Service

// Handler wires HTTP endpoints to the registry service.
type Handler = handler.Handler

// NewService restores the registry from st, seeding genesisAdmin on a fresh store.
func NewService(ctx context.Context, st service.Store, genesisAdmin models.Address, logger *slog.Logger, m *metrics.Metrics) (*Service, error) {
	return service.New(ctx, st,
		service.WithGenesisAdmin(genesisAdmin),
		service.WithLogger(logger),
		service.WithMetrics(m),
	)
}

// NewHandler constructs the HTTP handler for the registry routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
