package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"registra/pkg/requestcontext"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "edge header wins over everything",
			remoteAddr: "10.0.0.1:443",
			headers: map[string]string{
				"CF-Connecting-IP": "203.0.113.9",
				"X-Forwarded-For":  "198.51.100.7, 10.0.0.1",
			},
			want: "203.0.113.9",
		},
		{
			name:       "first forwarded entry is the client",
			remoteAddr: "10.0.0.1:443",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.2, 10.0.0.1"},
			want:       "198.51.100.7",
		},
		{
			name:       "single forwarded entry with whitespace",
			remoteAddr: "10.0.0.1:443",
			headers:    map[string]string{"X-Forwarded-For": "  198.51.100.7  "},
			want:       "198.51.100.7",
		},
		{
			name:       "falls back to remote addr without port",
			remoteAddr: "192.0.2.44:51000",
			want:       "192.0.2.44",
		},
		{
			name:       "ipv6 remote addr loses brackets and port",
			remoteAddr: "[2001:db8::1]:51000",
			want:       "2001:db8::1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(req))
		})
	}
}

func TestClientMetadata(t *testing.T) {
	var gotIP, gotUA string
	handler := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = requestcontext.ClientIP(r.Context())
		gotUA = requestcontext.UserAgent(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.44:51000"
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "192.0.2.44", gotIP)
	assert.Equal(t, "Mozilla/5.0 (X11; Linux x86_64)", gotUA)
}
