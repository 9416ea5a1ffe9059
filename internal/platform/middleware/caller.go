package middleware

import (
	"log/slog"
	"net/http"

	"telcoreg/internal/telco/models"
	dErrors "telcoreg/pkg/domain-errors"
	"telcoreg/pkg/platform/httputil"
	"telcoreg/pkg/requestcontext"
)

// CallerHeader is set by the authenticating gateway in front of this service.
// Its value is trusted as the caller's address.
const CallerHeader = "X-Caller-Address"

// Caller copies the gateway-asserted caller into the request context. Requests
// without the header pass through anonymously; a malformed value is rejected.
func Caller(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(CallerHeader)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			caller, err := models.ParseAddress(raw)
			if err != nil {
				logger.WarnContext(r.Context(), "invalid caller header",
					"request_id", requestcontext.RequestID(r.Context()),
					"error", err,
				)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid "+CallerHeader+" header"))
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(r.Context(), caller.String())))
		})
	}
}

// RequireCaller rejects requests that reached it without a caller.
func RequireCaller(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requestcontext.Caller(r.Context()) == "" {
				logger.WarnContext(r.Context(), "unauthorized access - missing caller",
					"request_id", requestcontext.RequestID(r.Context()),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing "+CallerHeader+" header"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
