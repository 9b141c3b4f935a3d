package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-rbac/aegis/internal/shared"
)

type primeRecorder struct {
	primed map[string]bool
}

func (p *primeRecorder) RecordDecision(string, string) {}

func (p *primeRecorder) PrimeDecision(permission string) {
	if p.primed == nil {
		p.primed = make(map[string]bool)
	}
	p.primed[permission] = true
}

func TestSyncPrimesCatalog(t *testing.T) {
	repo := newMockRepository()
	repo.addRole(1, "super-admin")
	svc := newTestService(repo)

	_, err := svc.DefinePermission(context.Background(), "reports.view", "View Reports", "desc")
	require.NoError(t, err)

	recorder := &primeRecorder{}
	count := NewBootstrap(svc, testLogger(), recorder).Sync(context.Background())

	assert.Equal(t, 1, count)
	assert.True(t, recorder.primed["reports.view"])
	for _, name := range shared.CoreScopes() {
		assert.True(t, recorder.primed[name], "core scope %s must be primed", name)
	}
}

func TestSyncSkipsOnStoreOutage(t *testing.T) {
	repo := newMockRepository()
	repo.failErr = errors.New("connection refused")
	svc := newTestService(repo)

	recorder := &primeRecorder{}
	count := NewBootstrap(svc, testLogger(), recorder).Sync(context.Background())

	assert.Zero(t, count)
	// Core scopes still get their zero series for dashboards.
	assert.True(t, recorder.primed[shared.PermUsersView])
}
