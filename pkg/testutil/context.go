package testutil

import (
	"net/http"

	"registra/pkg/requestcontext"
)

// WithClientMetadata stamps a request with the client IP and user agent the
// metadata middleware would normally extract. Handlers and recorders read
// these from the context, not from headers.
func WithClientMetadata(req *http.Request, ip, userAgent string) *http.Request {
	ctx := requestcontext.WithClientMetadata(req.Context(), ip, userAgent)
	return req.WithContext(ctx)
}
