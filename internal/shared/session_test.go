package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "aegis_session", "test-secret", time.Hour, false)
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("42")
	sess.Set("theme", "dark")

	rec := httptest.NewRecorder()
	if err := sm.Commit(ctx, rec, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one session cookie, got %d", len(cookies))
	}
	if !cookies[0].HttpOnly {
		t.Fatal("session cookie must be HttpOnly")
	}

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, req2)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := loaded.User(); got != "42" {
		t.Fatalf("user = %q, want 42", got)
	}
	if got := loaded.Get("theme"); got != "dark" {
		t.Fatalf("theme = %q, want dark", got)
	}
}

func TestSessionDestroyClearsCookieAndStore(t *testing.T) {
	sm := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("42")
	rec := httptest.NewRecorder()
	if err := sm.Commit(ctx, rec, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookie := rec.Result().Cookies()[0]

	req2 := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req2.AddCookie(cookie)
	sess2, err := sm.Load(ctx, req2)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	sm.Destroy(sess2)
	rec2 := httptest.NewRecorder()
	if err := sm.Commit(ctx, rec2, req2, sess2); err != nil {
		t.Fatalf("commit destroy: %v", err)
	}
	cleared := rec2.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge != -1 {
		t.Fatal("destroy must expire the session cookie")
	}

	req3 := httptest.NewRequest(http.MethodGet, "/", nil)
	req3.AddCookie(cookie)
	sess3, err := sm.Load(ctx, req3)
	if err != nil {
		t.Fatalf("load after destroy: %v", err)
	}
	if sess3.User() != "" {
		t.Fatal("destroyed session must not resurrect the user")
	}
}

func TestCSRFTokenLifecycle(t *testing.T) {
	cm := NewCSRFManager("csrf-secret")
	ctx := context.Background()
	sess := &Session{ID: "sess-1", values: map[string]string{}}

	token, err := cm.EnsureToken(ctx, sess)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if token == "" {
		t.Fatal("token must not be empty")
	}

	again, err := cm.EnsureToken(ctx, sess)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if again != token {
		t.Fatal("token must be stable within a session")
	}

	if err := cm.VerifyToken(ctx, sess, token); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := cm.VerifyToken(ctx, sess, "tampered"); err != ErrCSRFTokenMismatch {
		t.Fatalf("verify tampered = %v, want ErrCSRFTokenMismatch", err)
	}
	if err := cm.VerifyToken(ctx, sess, ""); err != ErrCSRFTokenMissing {
		t.Fatalf("verify empty = %v, want ErrCSRFTokenMissing", err)
	}
}

func TestPaginationDefaults(t *testing.T) {
	p := NewPagination(0, 0, 12)
	if p.Page != 1 || p.PerPage != DefaultPerPage {
		t.Fatalf("page=%d perPage=%d, want 1 and %d", p.Page, p.PerPage, DefaultPerPage)
	}
	if p.TotalPages != 3 {
		t.Fatalf("total pages = %d, want 3", p.TotalPages)
	}

	p = NewPagination(2, 5, 12)
	if p.Offset() != 5 {
		t.Fatalf("offset = %d, want 5", p.Offset())
	}
}
