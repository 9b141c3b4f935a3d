package rbac

import (
	"context"
	"fmt"

	"github.com/aegis-rbac/aegis/internal/shared"
)

// Gate is the single choke point for permission-gated actions. Every
// check is a live lookup against the role-permission graph; nothing is
// cached, so mutations are visible to the next check without a restart.
type Gate struct {
	repo Repository
}

// NewGate constructs a Gate backed by the provided repository.
func NewGate(repo Repository) *Gate {
	return &Gate{repo: repo}
}

// Can reports whether the actor may perform the named permission. The
// actor is passed explicitly; there is no ambient current-user lookup.
// Anonymous actors are always denied. A store failure is returned as a
// wrapped ErrStoreUnavailable together with allowed == false, so the
// caller can log the outage while still denying.
func (g *Gate) Can(ctx context.Context, actor Actor, permissionName string) (bool, error) {
	if actor.Anonymous() {
		return false, nil
	}
	allowed, err := g.repo.UserHasPermission(ctx, actor.ID, permissionName)
	if err != nil {
		return false, fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	return allowed, nil
}

// Authorize runs fn only when the actor holds the permission. On denial
// fn is never invoked and ErrForbidden is returned; a store failure
// propagates as ErrStoreUnavailable, which is still a deny.
func (g *Gate) Authorize(ctx context.Context, actor Actor, permissionName string, fn func(context.Context) error) error {
	allowed, err := g.Can(ctx, actor, permissionName)
	if err != nil {
		return err
	}
	if !allowed {
		return shared.ErrForbidden
	}
	return fn(ctx)
}
