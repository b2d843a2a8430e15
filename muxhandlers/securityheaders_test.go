package muxhandlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveWith(t *testing.T, cfg SecurityHeadersConfig) http.Header {
	t.Helper()
	mw, err := SecurityHeadersMiddleware(cfg)
	require.NoError(t, err)

	h := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w.Header()
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		h := serveWith(t, SecurityHeadersConfig{})
		assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
		assert.Equal(t, "strict-origin-when-cross-origin", h.Get("Referrer-Policy"))
		assert.Empty(t, h.Get("Strict-Transport-Security"))
	})

	t.Run("nosniff can be disabled", func(t *testing.T) {
		h := serveWith(t, SecurityHeadersConfig{DisableContentTypeNosniff: true})
		assert.Empty(t, h.Get("X-Content-Type-Options"))
	})

	t.Run("invalid frame option", func(t *testing.T) {
		_, err := SecurityHeadersMiddleware(SecurityHeadersConfig{FrameOption: "ALLOW-FROM"})
		assert.ErrorIs(t, err, ErrInvalidFrameOption)
	})

	t.Run("negative hsts max-age", func(t *testing.T) {
		_, err := SecurityHeadersMiddleware(SecurityHeadersConfig{HSTSMaxAge: -1})
		assert.ErrorIs(t, err, ErrInvalidHSTSMaxAge)
	})

	t.Run("hsts directives", func(t *testing.T) {
		h := serveWith(t, SecurityHeadersConfig{
			HSTSMaxAge:            31536000,
			HSTSIncludeSubDomains: true,
			HSTSPreload:           true,
		})
		assert.Equal(t, "max-age=31536000; includeSubDomains; preload", h.Get("Strict-Transport-Security"))
	})

	t.Run("optional policies", func(t *testing.T) {
		h := serveWith(t, SecurityHeadersConfig{
			ContentSecurityPolicy: "default-src 'self'",
			PermissionsPolicy:     "geolocation=()",
		})
		assert.Equal(t, "default-src 'self'", h.Get("Content-Security-Policy"))
		assert.Equal(t, "geolocation=()", h.Get("Permissions-Policy"))
	})
}
