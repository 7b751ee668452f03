package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"notejournal/auth"
	"notejournal/db/dbtest"
	"notejournal/journal"
	"notejournal/middleware"
	"notejournal/repository"
)

const testPassword = "violet-kettle-42"

type testServer struct {
	router http.Handler
	db     *sql.DB
	tokens *auth.Tokens
}

type session struct {
	token   string
	refresh string
	csrf    string
}

func newTestServer(t *testing.T, autoCreate bool) *testServer {
	t.Helper()
	return newTestServerWith(t, autoCreate, RouterConfig{
		Logger:             zerolog.Nop(),
		AllowedOrigin:      "*",
		LoginRatePerMinute: 1000,
	})
}

func newTestServerWith(t *testing.T, autoCreate bool, cfg RouterConfig) *testServer {
	t.Helper()
	conn := dbtest.Open(t)
	tokens := auth.NewTokens("handlers-test-secret-0123", time.Hour, 24*time.Hour, auth.NewMemoryRevoker())
	svc := journal.NewService(repository.NewNotes(conn, nil), repository.NewCategories(conn), journal.Options{
		Policy:               journal.PolicyDynamic,
		AutoCreateCategories: autoCreate,
	})
	h := New(svc, auth.NewService(repository.NewUsers(conn), true), tokens)
	cfg.DB = conn
	router := NewRouter(h, cfg)
	return &testServer{router: router, db: conn, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path string, body any, sess *session) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sess != nil {
		req.Header.Set("Authorization", "Bearer "+sess.token)
		req.Header.Set(middleware.CSRFHeader, sess.csrf)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) login(t *testing.T, username string) *session {
	t.Helper()
	rr := s.do(t, "POST", "/api/register", map[string]string{"username": username, "password": testPassword}, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", username, rr.Code, rr.Body.String())
	}
	rr = s.do(t, "POST", "/api/login", map[string]string{"username": username, "password": testPassword}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", username, rr.Code, rr.Body.String())
	}
	var pair auth.TokenPair
	if err := json.Unmarshal(rr.Body.Bytes(), &pair); err != nil {
		t.Fatal(err)
	}
	return &session{token: pair.AccessToken, refresh: pair.RefreshToken, csrf: pair.CSRFToken}
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}
