package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signClaims(t *testing.T, claims jwt.Claims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestCreateToken_AndValidateToken(t *testing.T) {
	token, err := CreateToken(42, "test-secret", 7)
	require.NoError(t, err)

	id, err := ValidateToken(token, "test-secret")
	require.NoError(t, err)
	require.Equal(t, int64(42), id.UserID)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := CreateToken(42, "secret-a", 7)
	require.NoError(t, err)

	_, err = ValidateToken(token, "secret-b")
	require.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	token, err := CreateToken(42, "secret", -1)
	require.NoError(t, err)

	_, err = ValidateToken(token, "secret")
	require.Error(t, err)
}

func TestValidateToken_SubjectMustBeNumeric(t *testing.T) {
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name    string
		subject string
	}{
		{"non-numeric", "alice"},
		{"absent", ""},
		{"negative", "-3"},
		{"uuid", "3f2504e0-4f89-41d3-9a0c-0305e82c3301"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := signClaims(t, jwt.RegisteredClaims{Subject: tt.subject, ExpiresAt: exp}, "secret")
			_, err := ValidateToken(token, "secret")
			require.ErrorIs(t, err, ErrInvalidSubject)
		})
	}
}

func TestValidateToken_RejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.RegisteredClaims{Subject: "7", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ValidateToken(token, "secret")
	require.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	var (
		got Identity
		ok  bool
	)
	handler := AuthMiddleware("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = IdentityFromContext(r.Context())
	}))

	t.Run("valid cookie attaches identity", func(t *testing.T) {
		token, err := CreateToken(9, "secret", 1)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
		handler.ServeHTTP(httptest.NewRecorder(), req)

		require.True(t, ok)
		require.Equal(t, int64(9), got.UserID)
	})

	t.Run("no cookie continues anonymously", func(t *testing.T) {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		require.False(t, ok)
	})

	t.Run("invalid cookie is cleared", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "garbage"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.False(t, ok)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		require.Equal(t, SessionCookieName, cookies[0].Name)
		require.Equal(t, -1, cookies[0].MaxAge)
	})
}

func TestRequireAuth(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: 1}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestValidateCSRF(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "abc"})
	req.Header.Set(CSRFHeaderName, "abc")
	require.NoError(t, ValidateCSRF(req))

	req.Header.Set(CSRFHeaderName, "abd")
	require.EqualError(t, ValidateCSRF(req), "CSRF token mismatch")

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	require.EqualError(t, ValidateCSRF(req), "missing CSRF cookie")
}
