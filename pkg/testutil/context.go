package testutil

import (
	"net/http"

	"telcoreg/pkg/requestcontext"
)

// CallerHeader is the header the upstream gateway uses to assert the caller address.
const CallerHeader = "X-Caller-Address"

// AsCaller sets the caller header on the request, simulating the authenticating gateway.
// An empty address leaves the request anonymous.
func AsCaller(req *http.Request, address string) *http.Request {
	if address != "" {
		req.Header.Set(CallerHeader, address)
	}
	return req
}

// WithCallerContext stores the caller directly in the request context, bypassing
// the header middleware. Useful for handler tests that mount routes without it.
func WithCallerContext(req *http.Request, address string) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), address))
}
