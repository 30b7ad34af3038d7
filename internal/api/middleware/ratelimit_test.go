package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveFrom(handler http.Handler, remote, forwarded string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	req.RemoteAddr = remote
	if forwarded != "" {
		req.Header.Set("X-Forwarded-For", forwarded)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiter_PerIP(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour, nil)
	handler := rl.Middleware(okHandler)

	assert.Equal(t, http.StatusOK, serveFrom(handler, "10.0.0.1:1111", ""))
	assert.Equal(t, http.StatusOK, serveFrom(handler, "10.0.0.1:2222", ""))
	assert.Equal(t, http.StatusTooManyRequests, serveFrom(handler, "10.0.0.1:3333", ""))
	assert.Equal(t, http.StatusOK, serveFrom(handler, "10.0.0.2:1111", ""), "other clients have their own bucket")
}

func TestRateLimiter_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour, nil)
	handler := rl.Middleware(okHandler)

	limited := 0
	for i := 0; i < 100; i++ {
		if serveFrom(handler, "198.51.100.9:4000", fmt.Sprintf("203.0.113.%d", i)) == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 98, limited)
	assert.Equal(t, 1, rl.Len())
}

func TestRateLimiter_TrustedProxy(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour, nil)
	require.NoError(t, rl.SetTrustedProxies([]string{"10.0.0.0/8"}))
	handler := rl.Middleware(okHandler)

	assert.Equal(t, http.StatusOK, serveFrom(handler, "10.1.1.1:80", "203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, serveFrom(handler, "10.1.1.1:80", "203.0.113.7"))
	assert.Equal(t, http.StatusOK, serveFrom(handler, "10.1.1.1:80", "203.0.113.8"))
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	now := time.Date(2025, 3, 8, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, time.Minute, nil)
	rl.now = func() time.Time { return now }
	handler := rl.Middleware(okHandler)

	for i := 0; i < 50; i++ {
		serveFrom(handler, fmt.Sprintf("192.0.2.%d:1000", i), "")
	}
	assert.Equal(t, 50, rl.Len())

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusOK, serveFrom(handler, "192.0.2.200:1000", ""))
	assert.Equal(t, 1, rl.Len())

	// A client seen recently keeps its bucket.
	assert.Equal(t, http.StatusTooManyRequests, serveFrom(handler, "192.0.2.200:1000", ""))
}

func TestParseTrustedProxies(t *testing.T) {
	nets, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.1 ", "", "::1"})
	require.NoError(t, err)
	require.Len(t, nets, 3)
	assert.Equal(t, "192.0.2.1/32", nets[1].String())
	assert.Equal(t, "::1/128", nets[2].String())

	_, err = ParseTrustedProxies([]string{"proxy.local"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}

func TestClientIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		remote    string
		forwarded string
		trusted   bool
		want      string
	}{
		{"remote address", "192.0.2.1:5555", "", false, "192.0.2.1"},
		{"untrusted peer ignores header", "192.0.2.1:5555", "203.0.113.7", false, "192.0.2.1"},
		{"no proxies configured", "10.0.0.1:5555", "203.0.113.7", false, "10.0.0.1"},
		{"trusted proxy", "10.0.0.1:5555", "203.0.113.7", true, "203.0.113.7"},
		{"spoofed leftmost hop", "10.0.0.1:5555", "1.2.3.4, 203.0.113.7, 10.0.0.2", true, "203.0.113.7"},
		{"only proxies", "10.0.0.1:5555", "10.0.0.3", true, "10.0.0.3"},
		{"garbage hop", "10.0.0.1:5555", "not-an-ip", true, "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.trusted {
				assert.Equal(t, tt.want, ClientIP(req, trusted...))
			} else {
				assert.Equal(t, tt.want, ClientIP(req))
			}
		})
	}
}
