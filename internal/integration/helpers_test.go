//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/aliuyar1234/taskboard/internal/app"
	"github.com/aliuyar1234/taskboard/internal/auth"
	"github.com/aliuyar1234/taskboard/internal/config"
	"github.com/aliuyar1234/taskboard/internal/db"
	"github.com/aliuyar1234/taskboard/internal/metrics"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

type envelopeResponse struct {
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
	Error     struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// testServer is a router over a private database
type testServer struct {
	t    *testing.T
	URL  string
	Pool *pgxpool.Pool
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)

	cfg := &config.Config{
		Env:            "dev",
		HTTPAddr:       ":0",
		BaseURL:        "http://localhost",
		DBDSN:          "unused",
		JWTSecret:      "test-secret",
		LogLevel:       "error",
		SessionDays:    7,
		LoginRateLimit: 0,
		BcryptCost:     4,
	}

	sqlDB := db.OpenSQL(pool)
	t.Cleanup(func() { _ = sqlDB.Close() })

	srv := httptest.NewServer(app.NewRouter(cfg, sqlDB, metrics.New()))
	t.Cleanup(srv.Close)

	return &testServer{t: t, URL: srv.URL, Pool: pool}
}

// session is one signed-up user with their own cookie jar
type session struct {
	t      *testing.T
	srv    *testServer
	client *http.Client
	csrf   string
	ID     int64
	Nick   string
}

func (s *testServer) signup(nick string) *session {
	s.t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(s.t, err)
	baseURL, err := url.Parse(s.URL)
	require.NoError(s.t, err)

	csrfToken, err := auth.GenerateCSRFToken()
	require.NoError(s.t, err)
	jar.SetCookies(baseURL, []*http.Cookie{{Name: auth.CSRFCookieName, Value: csrfToken, Path: "/"}})

	sess := &session{t: s.t, srv: s, client: &http.Client{Jar: jar}, csrf: csrfToken, Nick: nick}

	var me struct {
		ID int64 `json:"user_id"`
	}
	sess.decode(sess.expect(http.MethodPost, "/api/v1/auth/signup", http.StatusCreated, map[string]any{
		"email":    nick + "@example.com",
		"nick":     nick,
		"name":     nick,
		"surname":  "Tester",
		"password": "password123",
	}), &me)
	require.NotZero(s.t, me.ID)
	sess.ID = me.ID
	return sess
}

func (s *session) do(method, path string, payload any) (int, envelopeResponse) {
	s.t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(s.t, err)
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, s.srv.URL+path, body)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.CSRFHeaderName, s.csrf)

	resp, err := s.client.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)

	var env envelopeResponse
	require.NoError(s.t, json.Unmarshal(raw, &env), "body: %s", string(raw))
	require.NotEmpty(s.t, env.RequestID)
	return resp.StatusCode, env
}

// expect performs the request and fails unless the status matches
func (s *session) expect(method, path string, wantStatus int, payload any) envelopeResponse {
	s.t.Helper()
	status, env := s.do(method, path, payload)
	require.Equal(s.t, wantStatus, status, "%s %s: %s %s", method, path, env.Error.Type, env.Error.Message)
	return env
}

// expectError asserts a failure of the given kind and message
func (s *session) expectError(method, path string, wantStatus int, wantMessage string, payload any) {
	s.t.Helper()
	env := s.expect(method, path, wantStatus, payload)
	if wantMessage != "" {
		require.Equal(s.t, wantMessage, env.Error.Message)
	}
}

func (s *session) decode(env envelopeResponse, v any) {
	s.t.Helper()
	require.NoError(s.t, json.Unmarshal(env.Data, v))
}

func path(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
