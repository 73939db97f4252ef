package authz

import (
	"testing"
	"time"

	"creator-hub-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnershipConfersSpaceOwner(t *testing.T) {
	store := newFakeStore()
	store.addHub("hub-1")
	store.addServer("srv-1", "hub-1", "alice")

	e := NewEvaluator(store)

	bindings, err := e.EffectiveBindings("alice", models.Scope{HubID: "hub-1", ServerID: "srv-1"})
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Equal(t, models.RoleSpaceOwner, bindings[0].Role)
	assert.Equal(t, models.Scope{HubID: "hub-1", ServerID: "srv-1"}, bindings[0].Scope)

	// Synthesized bindings are never written back.
	assert.Empty(t, store.bindings)
}

func TestActiveDelegationConfersSpaceOwner(t *testing.T) {
	store := newFakeStore()
	store.addHub("hub-1")
	store.addServer("srv-1", "hub-1", "alice")
	future := time.Now().Add(time.Hour)
	store.addAssignment("srv-1", "bob", &future)

	e := NewEvaluator(store)

	bindings, err := e.EffectiveBindings("bob", models.Scope{HubID: "hub-1", ServerID: "srv-1"})
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Equal(t, models.RoleSpaceOwner, bindings[0].Role)
}

func TestLapsedDelegationExpiresLazily(t *testing.T) {
	store := newFakeStore()
	store.addHub("hub-1")
	store.addServer("srv-1", "hub-1", "alice")
	past := time.Now().Add(-time.Minute)
	a := store.addAssignment("srv-1", "bob", &past)

	e := NewEvaluator(store)
	scope := models.Scope{HubID: "hub-1", ServerID: "srv-1"}

	bindings, err := e.EffectiveBindings("bob", scope)
	require.NoError(t, err)
	assert.Empty(t, bindings)
	assert.Equal(t, models.AssignmentExpired, a.Status)

	// Re-evaluating an already-expired delegation is a no-op, not an error.
	bindings, err = e.EffectiveBindings("bob", scope)
	require.NoError(t, err)
	assert.Empty(t, bindings)
	assert.Equal(t, models.AssignmentExpired, a.Status)
	assert.Equal(t, 2, store.expireCalls)
}

func TestRevokedDelegationConfersNothing(t *testing.T) {
	store := newFakeStore()
	store.addHub("hub-1")
	store.addServer("srv-1", "hub-1", "alice")
	a := store.addAssignment("srv-1", "bob", nil)
	a.Status = models.AssignmentRevoked

	e := NewEvaluator(store)

	bindings, err := e.EffectiveBindings("bob", models.Scope{HubID: "hub-1", ServerID: "srv-1"})
	require.NoError(t, err)
	assert.Empty(t, bindings)
}

func TestStaticBindingsCombineWithDerived(t *testing.T) {
	store := newFakeStore()
	store.addHub("hub-1")
	store.addServer("srv-1", "hub-1", "alice")
	store.addBinding("alice", models.RoleHubAdmin, models.Scope{HubID: "hub-1"})

	e := NewEvaluator(store)

	bindings, err := e.EffectiveBindings("alice", models.Scope{HubID: "hub-1", ServerID: "srv-1"})
	require.NoError(t, err)
	require.Len(t, bindings, 2)

	roles := []models.Role{bindings[0].Role, bindings[1].Role}
	assert.Contains(t, roles, models.RoleHubAdmin)
	assert.Contains(t, roles, models.RoleSpaceOwner)
}

func TestOwnershipTransferMovesAuthorityImmediately(t *testing.T) {
	store := newFakeStore()
	store.addHub("hub-1")
	srv := store.addServer("srv-1", "hub-1", "alice")

	e := NewEvaluator(store)
	scope := models.Scope{HubID: "hub-1", ServerID: "srv-1"}

	// Transfer: the owner column is the single source of implicit
	// authority, so flipping it moves everything at once.
	srv.OwnerUserID = "bob"

	aliceBindings, err := e.EffectiveBindings("alice", scope)
	require.NoError(t, err)
	assert.Empty(t, aliceBindings)

	bobBindings, err := e.EffectiveBindings("bob", scope)
	require.NoError(t, err)
	require.Len(t, bobBindings, 1)
	assert.Equal(t, models.RoleSpaceOwner, bobBindings[0].Role)
}

func TestHubScopeQuerySkipsDerivedBindings(t *testing.T) {
	store := newFakeStore()
	store.addHub("hub-1")
	store.addServer("srv-1", "hub-1", "alice")

	e := NewEvaluator(store)

	// A hub-only query has no server axis, so ownership of some server
	// underneath contributes nothing.
	bindings, err := e.EffectiveBindings("alice", models.Scope{HubID: "hub-1"})
	require.NoError(t, err)
	assert.Empty(t, bindings)
}
