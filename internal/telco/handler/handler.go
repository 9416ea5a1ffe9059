package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"telcoreg/internal/platform/middleware"
	"telcoreg/internal/telco/dispatch"
	"telcoreg/internal/telco/models"
	dErrors "telcoreg/pkg/domain-errors"
	"telcoreg/pkg/platform/httputil"
	"telcoreg/pkg/requestcontext"
)

// Service is the registry surface served over HTTP.
type Service interface {
	dispatch.Registry
}

// Handler serves the registry over HTTP.
type Handler struct {
	service    Service
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

// New creates a Handler for service.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:    service,
		dispatcher: dispatch.New(service),
		logger:     logger,
	}
}

// Register mounts the /v1 routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Caller(h.logger))

		r.Post("/calls", h.handleCall)
		r.Get("/telcos/{address}", h.handleGetTelco)
		r.Get("/admin", h.handleGetAdmin)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCaller(h.logger))
			r.Post("/telcos", h.handleRegisterTelco)
			r.Put("/telcos/me", h.handleUpdateTelco)
			r.Post("/telcos/{address}/verify", h.handleVerifyTelco)
			r.Delete("/telcos/{address}", h.handleRemoveTelco)
			r.Put("/admin", h.handleTransferAdmin)
		})
	})
}

// handleCall executes one contract call and answers with its {value}/{error} result.
func (h *Handler) handleCall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req callRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.dispatcher.Dispatch(ctx, dispatch.Call{
		Method: req.Method,
		Caller: caller(ctx),
		Args:   req.Args,
	})
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	if code, failed := result.Code(); failed {
		httputil.WriteJSON(w, statusForCode(code), result)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRegisterTelco(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	meta, publicKey, err := req.Validate()
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	ok, err := h.service.RegisterTelco(ctx, caller(ctx), meta, publicKey)
	h.respond(ctx, w, http.StatusCreated, ok, err)
}

func (h *Handler) handleUpdateTelco(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req metadataRequest
	if !h.decode(w, r, &req) {
		return
	}
	meta, err := req.Validate()
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	ok, err := h.service.UpdateTelco(ctx, caller(ctx), meta)
	h.respond(ctx, w, http.StatusOK, ok, err)
}

func (h *Handler) handleVerifyTelco(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	telco, err := models.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	ok, err := h.service.VerifyTelco(ctx, caller(ctx), telco)
	h.respond(ctx, w, http.StatusOK, ok, err)
}

func (h *Handler) handleRemoveTelco(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	telco, err := models.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	ok, err := h.service.RemoveTelco(ctx, caller(ctx), telco)
	h.respond(ctx, w, http.StatusOK, ok, err)
}

func (h *Handler) handleGetTelco(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addr, err := models.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	t, err := h.service.GetTelco(ctx, addr)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTelcoResponse(addr, t))
}

func (h *Handler) handleGetAdmin(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, adminResponse{Admin: h.service.Admin(r.Context())})
}

func (h *Handler) handleTransferAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req transferAdminRequest
	if !h.decode(w, r, &req) {
		return
	}
	newAdmin, err := models.ParseAddress(req.NewAdmin)
	if err != nil {
		h.writeError(ctx, w, dErrors.Wrap(err, dErrors.CodeBadRequest, "new_admin is required"))
		return
	}

	ok, err := h.service.TransferAdmin(ctx, caller(ctx), newAdmin)
	h.respond(ctx, w, http.StatusOK, ok, err)
}

// respond writes {"value": ok} with status, or the error.
func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, status int, ok bool, err error) {
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, status, models.Ok(ok))
}

// writeError renders registry rejections as {"error": code} and everything
// else through the coded error envelope.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if code, ok := models.CodeOf(err); ok {
		httputil.WriteJSON(w, statusForCode(code), models.Fail[bool](code))
		return
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "request failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

func caller(ctx context.Context) models.Address {
	return models.Address(requestcontext.Caller(ctx))
}

func statusForCode(code models.ErrorCode) int {
	switch code {
	case models.CodeNotAdmin:
		return http.StatusForbidden
	case models.CodeNotFound:
		return http.StatusNotFound
	case models.CodeAlreadyRegistered, models.CodeAlreadyVerified:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
