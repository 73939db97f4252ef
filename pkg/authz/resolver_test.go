package authz

import (
	"testing"

	"creator-hub-backend/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestResolveFillsAncestorsFromChannel(t *testing.T) {
	store := newFakeStore()
	store.addHub("hub-1")
	store.addServer("srv-1", "hub-1", "owner")
	store.addChannel("chan-1", "srv-1")

	r := NewScopeResolver(store)

	resolved := r.Resolve(models.Scope{ChannelID: "chan-1"})
	assert.Equal(t, models.Scope{HubID: "hub-1", ServerID: "srv-1", ChannelID: "chan-1"}, resolved)
}

func TestResolveFillsHubFromServer(t *testing.T) {
	store := newFakeStore()
	store.addHub("hub-1")
	store.addServer("srv-1", "hub-1", "owner")

	r := NewScopeResolver(store)

	resolved := r.Resolve(models.Scope{ServerID: "srv-1"})
	assert.Equal(t, models.Scope{HubID: "hub-1", ServerID: "srv-1"}, resolved)
}

func TestResolveUnknownIDsYieldEmptyScope(t *testing.T) {
	store := newFakeStore()
	store.addHub("hub-1")

	r := NewScopeResolver(store)

	assert.True(t, r.Resolve(models.Scope{ChannelID: "nope"}).IsEmpty())
	assert.True(t, r.Resolve(models.Scope{ServerID: "nope"}).IsEmpty())
	assert.True(t, r.Resolve(models.Scope{HubID: "nope"}).IsEmpty())
}

func TestResolveExistingHubPassesThrough(t *testing.T) {
	store := newFakeStore()
	store.addHub("hub-1")

	r := NewScopeResolver(store)

	resolved := r.Resolve(models.Scope{HubID: "hub-1"})
	assert.Equal(t, models.Scope{HubID: "hub-1"}, resolved)
}
