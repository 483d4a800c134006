// internal/middleware/security.go

package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
)

var secureHeaders = secure.New(secure.Options{
	ContentTypeNosniff: true,
	FrameDeny:          true,
	BrowserXssFilter:   true,
	ReferrerPolicy:     "strict-origin-when-cross-origin",
})

// SecurityHeaders sets the baseline browser hardening headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return secureHeaders.Handler(next)
}
