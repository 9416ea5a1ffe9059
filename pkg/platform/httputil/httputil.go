package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "telcoreg/pkg/domain-errors"
)

// ErrorResponse is the JSON envelope for service and transport failures.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a coded error into an HTTP response.
// Internal errors never expose their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	desc := ""
	var de *dErrors.Error
	if errors.As(err, &de) {
		code = de.Code
		desc = de.Message
	}
	resp := ErrorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		resp.ErrorDescription = desc
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}
