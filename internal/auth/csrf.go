package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
)

const (
	CSRFCookieName = "_csrf"
	CSRFHeaderName = "X-CSRF-Token"

	csrfTokenBytes = 32
)

var (
	errCSRFNoCookie = errors.New("missing CSRF cookie")
	errCSRFNoHeader = errors.New("missing CSRF token in request")
	errCSRFMismatch = errors.New("CSRF token mismatch")
)

// GenerateCSRFToken returns a base64url-encoded random token.
func GenerateCSRFToken() (string, error) {
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// SetCSRFCookie publishes the token for the double-submit check. The client
// reads it back and echoes it in CSRFHeaderName, so it is not HttpOnly.
func SetCSRFCookie(w http.ResponseWriter, token string, isProduction bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

// ValidateCSRF checks that the header copy matches the cookie. Callers decide
// which methods need the check.
func ValidateCSRF(r *http.Request) error {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return errCSRFNoCookie
	}
	header := r.Header.Get(CSRFHeaderName)
	if header == "" {
		return errCSRFNoHeader
	}
	if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
		return errCSRFMismatch
	}
	return nil
}
