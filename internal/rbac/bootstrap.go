package rbac

import (
	"context"
	"log/slog"

	"github.com/aegis-rbac/aegis/internal/shared"
)

// Bootstrap reconciles the gate with the permission catalog at process
// start. Because Gate.Can resolves permissions live there is no check
// table to rebuild; Sync verifies the store is reachable, logs the
// catalog size and primes per-permission decision metrics.
type Bootstrap struct {
	service *Service
	logger  *slog.Logger
	metrics DecisionRecorder
}

// NewBootstrap constructs a Bootstrap.
func NewBootstrap(service *Service, logger *slog.Logger, metrics DecisionRecorder) *Bootstrap {
	return &Bootstrap{service: service, logger: logger, metrics: metrics}
}

// Sync loads the permission catalog. When the store is unreachable the
// sync is skipped with a warning: no checks get registered and the gate
// keeps denying everything until the store recovers.
func (b *Bootstrap) Sync(ctx context.Context) int {
	// The core platform permissions always get a metric series, even
	// when the catalog below cannot be read.
	if b.metrics != nil {
		for _, name := range shared.CoreScopes() {
			b.metrics.PrimeDecision(name)
		}
	}

	perms, _, err := b.service.ListPermissions(ctx, "", 1, allPermissionsPageSize)
	if err != nil {
		if b.logger != nil {
			b.logger.Warn("permission sync skipped, gate denies all", slog.Any("error", err))
		}
		return 0
	}
	if b.metrics != nil {
		for _, p := range perms {
			b.metrics.PrimeDecision(p.Name)
		}
	}
	if b.logger != nil {
		b.logger.Info("permission catalog synchronized", slog.Int("permissions", len(perms)))
	}
	return len(perms)
}

// Large enough to cover any realistic catalog in one page.
const allPermissionsPageSize = 10000
