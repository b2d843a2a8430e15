package muxhandlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/vitalvas/arbor/mux"
)

// ErrInvalidFrameOption is returned when SecurityHeadersConfig.FrameOption
// is not one of "DENY", "SAMEORIGIN", or empty.
var ErrInvalidFrameOption = errors.New("security headers: frame option must be DENY, SAMEORIGIN, or empty")

// ErrInvalidHSTSMaxAge is returned when SecurityHeadersConfig.HSTSMaxAge
// is negative.
var ErrInvalidHSTSMaxAge = errors.New("security headers: HSTS max-age must not be negative")

// SecurityHeadersConfig configures the Security Headers middleware
// behaviour. The zero value produces the conservative defaults
// documented per field.
type SecurityHeadersConfig struct {
	// DisableContentTypeNosniff disables the X-Content-Type-Options:
	// nosniff header, which is set by default.
	DisableContentTypeNosniff bool

	// FrameOption sets the X-Frame-Options header value. Valid values
	// are "DENY", "SAMEORIGIN", or empty. Defaults to "DENY".
	FrameOption string

	// ReferrerPolicy sets the Referrer-Policy header value. Defaults to
	// "strict-origin-when-cross-origin".
	ReferrerPolicy string

	// HSTSMaxAge sets the max-age directive of Strict-Transport-Security
	// in seconds. When zero, the header is not set.
	HSTSMaxAge int

	// HSTSIncludeSubDomains appends includeSubDomains. Only effective
	// when HSTSMaxAge > 0.
	HSTSIncludeSubDomains bool

	// HSTSPreload appends preload. Only effective when HSTSMaxAge > 0.
	HSTSPreload bool

	// ContentSecurityPolicy sets the Content-Security-Policy header.
	// When empty, the header is not set.
	ContentSecurityPolicy string

	// PermissionsPolicy sets the Permissions-Policy header. When empty,
	// the header is not set.
	PermissionsPolicy string
}

// headerValue is one precomputed response header.
type headerValue struct {
	name  string
	value string
}

// SecurityHeadersMiddleware returns a middleware that sets common
// security response headers before calling the next handler. The
// header set is resolved once, at construction.
//
// It returns ErrInvalidFrameOption for an unknown FrameOption value
// and ErrInvalidHSTSMaxAge for a negative HSTSMaxAge.
func SecurityHeadersMiddleware(cfg SecurityHeadersConfig) (mux.MiddlewareFunc, error) {
	switch cfg.FrameOption {
	case "":
		cfg.FrameOption = "DENY"
	case "DENY", "SAMEORIGIN":
	default:
		return nil, ErrInvalidFrameOption
	}

	if cfg.HSTSMaxAge < 0 {
		return nil, ErrInvalidHSTSMaxAge
	}

	if cfg.ReferrerPolicy == "" {
		cfg.ReferrerPolicy = "strict-origin-when-cross-origin"
	}

	var headers []headerValue
	if !cfg.DisableContentTypeNosniff {
		headers = append(headers, headerValue{"X-Content-Type-Options", "nosniff"})
	}
	headers = append(headers,
		headerValue{"X-Frame-Options", cfg.FrameOption},
		headerValue{"Referrer-Policy", cfg.ReferrerPolicy},
	)

	if cfg.HSTSMaxAge > 0 {
		hsts := "max-age=" + strconv.Itoa(cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubDomains {
			hsts += "; includeSubDomains"
		}
		if cfg.HSTSPreload {
			hsts += "; preload"
		}
		headers = append(headers, headerValue{"Strict-Transport-Security", hsts})
	}

	if cfg.ContentSecurityPolicy != "" {
		headers = append(headers, headerValue{"Content-Security-Policy", cfg.ContentSecurityPolicy})
	}
	if cfg.PermissionsPolicy != "" {
		headers = append(headers, headerValue{"Permissions-Policy", cfg.PermissionsPolicy})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, hv := range headers {
				h.Set(hv.name, hv.value)
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}
