package auth

import (
	"net/http"
	"time"
)

// SessionCookieName holds the signed session token.
const SessionCookieName = "token"

func sessionCookie(value string, maxAge int, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetSessionCookie stores a freshly issued token for sessionDays.
func SetSessionCookie(w http.ResponseWriter, token string, sessionDays int, isProduction bool) {
	maxAge := int((time.Duration(sessionDays) * 24 * time.Hour).Seconds())
	http.SetCookie(w, sessionCookie(token, maxAge, isProduction))
}

// ClearSessionCookie expires the session on logout.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, sessionCookie("", -1, false))
}

// GetSessionCookie returns the raw token, or "" when the request carries none.
func GetSessionCookie(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}
