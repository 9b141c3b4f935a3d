package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aegis-rbac/aegis/internal/shared"
)

// DecisionRecorder counts authorization outcomes per permission.
// Implemented by observability.Metrics.
type DecisionRecorder interface {
	RecordDecision(permission, outcome string)
	PrimeDecision(permission string)
}

// Middleware wires gate enforcement in front of HTTP handlers.
type Middleware struct {
	Gate    *Gate
	Logger  *slog.Logger
	Metrics DecisionRecorder
}

// Require short-circuits the request with 403 unless the session user
// holds the named permission. Denials, anonymous callers and store
// outages all produce the same bare Forbidden so the response leaks
// nothing about the permission catalog or store health.
func (m Middleware) Require(permission string) func(http.Handler) http.Handler {
	permission = strings.TrimSpace(permission)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if permission == "" {
				next.ServeHTTP(w, r)
				return
			}
			actor := m.currentActor(r)
			allowed, err := m.Gate.Can(r.Context(), actor, permission)
			if err != nil {
				if m.Logger != nil && errors.Is(err, shared.ErrStoreUnavailable) {
					m.Logger.Error("authorization store unavailable, denying",
						slog.String("permission", permission), slog.Any("error", err))
				}
				allowed = false
			}
			m.record(permission, allowed)
			if !allowed {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// currentActor resolves the authenticated user from the session. A
// missing or malformed session yields the anonymous actor.
func (m Middleware) currentActor(r *http.Request) Actor {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return Actor{}
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return Actor{}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("parse session user id", slog.String("value", raw))
		}
		return Actor{}
	}
	return Actor{ID: id}
}

func (m Middleware) record(permission string, allowed bool) {
	if m.Metrics == nil {
		return
	}
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	m.Metrics.RecordDecision(permission, outcome)
}
