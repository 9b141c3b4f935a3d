package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-rbac/aegis/internal/shared"
)

type stubRepository struct {
	users map[string]*User
}

func (s *stubRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := s.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func newFixture(t *testing.T) (*Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &stubRepository{users: map[string]*User{
		"admin@app.com": {ID: 1, Email: "admin@app.com", Name: "Super Admin", PasswordHash: string(hash), RoleID: 1},
	}}

	sessions := shared.NewSessionManager(client, "aegis_session", "session-secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, NewService(repo), sessions, csrf), sessions
}

func doLogin(t *testing.T, h *Handler, sess *shared.Session, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	h.MountRoutes(r)
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestLoginSuccessBindsSession(t *testing.T) {
	h, _ := newFixture(t)
	sess := &shared.Session{}

	rec := doLogin(t, h, sess, `{"email":"admin@app.com","password":"password"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if got := sess.User(); got != "1" {
		t.Fatalf("session user = %q, want 1", got)
	}
	var body struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Email != "admin@app.com" {
		t.Fatalf("email = %q", body.Email)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatal("response must not echo credential material")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h, _ := newFixture(t)
	sess := &shared.Session{}

	rec := doLogin(t, h, sess, `{"email":"admin@app.com","password":"nope"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if sess.User() != "" {
		t.Fatal("failed login must not bind a user")
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	h, _ := newFixture(t)
	sess := &shared.Session{}

	rec := doLogin(t, h, sess, `{"email":"ghost@app.com","password":"password"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestLoginValidation(t *testing.T) {
	h, _ := newFixture(t)
	sess := &shared.Session{}

	rec := doLogin(t, h, sess, `{"email":"not-an-email","password":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	h, sessions := newFixture(t)
	sess := &shared.Session{}
	sess.SetUser("1")

	r := chi.NewRouter()
	h.MountRoutes(r)
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	commitRec := httptest.NewRecorder()
	if err := sessions.Commit(context.Background(), commitRec, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookies := commitRec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Fatal("logout must expire the session cookie on commit")
	}
}

func TestCSRFEndpointIssuesStableToken(t *testing.T) {
	h, _ := newFixture(t)
	sess := &shared.Session{ID: "sess-1"}

	r := chi.NewRouter()
	h.MountRoutes(r)

	fetch := func() string {
		req := httptest.NewRequest(http.MethodGet, "/csrf", nil)
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return body["csrf_token"]
	}

	first := fetch()
	if first == "" {
		t.Fatal("token must not be empty")
	}
	if second := fetch(); second != first {
		t.Fatal("token must be stable for the session")
	}
}
