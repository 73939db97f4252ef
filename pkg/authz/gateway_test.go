package authz

import (
	"errors"
	"testing"

	"creator-hub-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatewayFixture() (*fakeStore, *Gateway) {
	store := newFakeStore()
	store.addHub("hub-1")
	store.addServer("srv-1", "hub-1", "owner")
	store.addChannel("chan-1", "srv-1")
	store.addChannel("chan-2", "srv-1")
	store.addBinding("mod", models.RoleSpaceModerator,
		models.Scope{HubID: "hub-1", ServerID: "srv-1", ChannelID: "chan-1"})

	resolver := NewScopeResolver(store)
	evaluator := NewEvaluator(store)
	return store, NewGateway(store, resolver, evaluator)
}

func TestGatewayGrantedRunsEffectAndAudits(t *testing.T) {
	store, g := gatewayFixture()

	ran := false
	result, err := g.Execute(ActionRequest{
		ActorUserID:  "mod",
		Action:       models.ActionModerationKick,
		Scope:        models.Scope{ChannelID: "chan-1"},
		TargetUserID: "troll",
	}, func() (interface{}, error) {
		ran = true
		return "done", nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, "done", result)

	require.Len(t, store.audits, 1)
	rec := store.audits[0]
	assert.Equal(t, models.OutcomeGranted, rec.Outcome)
	assert.Equal(t, "mod", rec.ActorUserID)
	assert.Equal(t, models.ActionModerationKick, rec.Action)
	assert.Equal(t, "troll", rec.TargetUserID)
	assert.Equal(t, models.Scope{HubID: "hub-1", ServerID: "srv-1", ChannelID: "chan-1"}, rec.Scope)
}

func TestGatewayDeniedSkipsEffectAndAudits(t *testing.T) {
	store, g := gatewayFixture()

	ran := false
	_, err := g.Execute(ActionRequest{
		ActorUserID: "mod",
		Action:      models.ActionModerationKick,
		Scope:       models.Scope{ChannelID: "chan-2"}, // outside the mod's channel
	}, func() (interface{}, error) {
		ran = true
		return nil, nil
	})
	require.Error(t, err)
	assert.Equal(t, CodeForbiddenScope, CodeOf(err))
	assert.False(t, ran)

	require.Len(t, store.audits, 1)
	assert.Equal(t, models.OutcomeDenied, store.audits[0].Outcome)
	assert.Equal(t, CodeForbiddenScope, store.audits[0].Reason)
}

func TestGatewayActionOutsideRoleMatrixDenied(t *testing.T) {
	store, g := gatewayFixture()

	// Moderators can kick in their channel but never ban, even there.
	_, err := g.Execute(ActionRequest{
		ActorUserID: "mod",
		Action:      models.ActionModerationBan,
		Scope:       models.Scope{ChannelID: "chan-1"},
	}, func() (interface{}, error) {
		t.Fatal("effect must not run")
		return nil, nil
	})
	require.Error(t, err)
	assert.Equal(t, CodeForbiddenScope, CodeOf(err))
	require.Len(t, store.audits, 1)
	assert.Equal(t, models.OutcomeDenied, store.audits[0].Outcome)
}

func TestGatewayOwnerAuthorizedViaDerivedBinding(t *testing.T) {
	store, g := gatewayFixture()

	_, err := g.Execute(ActionRequest{
		ActorUserID: "owner",
		Action:      models.ActionModerationBan,
		Scope:       models.Scope{ServerID: "srv-1"},
	}, func() (interface{}, error) {
		return "banned", nil
	})
	require.NoError(t, err)
	require.Len(t, store.audits, 1)
	assert.Equal(t, models.OutcomeGranted, store.audits[0].Outcome)
}

func TestGatewayEffectErrorPropagatesAfterAudit(t *testing.T) {
	store, g := gatewayFixture()

	boom := ErrAdapterFailure("homeserver unreachable")
	_, err := g.Execute(ActionRequest{
		ActorUserID: "owner",
		Action:      models.ActionModerationKick,
		Scope:       models.Scope{ChannelID: "chan-1"},
	}, func() (interface{}, error) {
		return nil, boom
	})
	require.Error(t, err)
	assert.Equal(t, CodeAdapterFailure, CodeOf(err))

	// The granted row was written before the effect ran: the trail
	// answers "was this actor allowed to try" even when the try failed.
	require.Len(t, store.audits, 1)
	assert.Equal(t, models.OutcomeGranted, store.audits[0].Outcome)
}

func TestGatewayUnresolvableScopeDenied(t *testing.T) {
	store, g := gatewayFixture()

	_, err := g.Execute(ActionRequest{
		ActorUserID: "owner",
		Action:      models.ActionModerationKick,
		Scope:       models.Scope{ChannelID: "ghost"},
	}, func() (interface{}, error) {
		t.Fatal("effect must not run")
		return nil, nil
	})
	require.Error(t, err)
	assert.Equal(t, CodeForbiddenScope, CodeOf(err))
	require.Len(t, store.audits, 1)
	assert.Equal(t, models.OutcomeDenied, store.audits[0].Outcome)
}

func TestGatewayEffectBlockedWhenAuditFails(t *testing.T) {
	store, g := gatewayFixture()
	store.auditErr = errors.New("disk full")

	ran := false
	_, err := g.Execute(ActionRequest{
		ActorUserID: "owner",
		Action:      models.ActionModerationKick,
		Scope:       models.Scope{ChannelID: "chan-1"},
	}, func() (interface{}, error) {
		ran = true
		return nil, nil
	})
	require.Error(t, err)
	assert.False(t, ran, "effect must not run without a durable audit row")
}

func TestOwnerMintedModeratorStillCannotBan(t *testing.T) {
	store, g := gatewayFixture()
	resolver := NewScopeResolver(store)
	evaluator := NewEvaluator(store)
	granter := NewGrantAuthorizer(resolver, evaluator)

	// The owner delegates moderation of the whole server to u2.
	d, err := granter.AuthorizeGrant("owner", models.RoleSpaceModerator, models.Scope{ServerID: "srv-1"})
	require.NoError(t, err)
	require.True(t, d.Allowed)
	store.addBinding("u2", models.RoleSpaceModerator, d.ResolvedScope)

	// u2 can kick anywhere in the server but still cannot ban.
	_, err = g.Execute(ActionRequest{
		ActorUserID: "u2",
		Action:      models.ActionModerationKick,
		Scope:       models.Scope{ServerID: "srv-1"},
	}, func() (interface{}, error) { return nil, nil })
	require.NoError(t, err)

	_, err = g.Execute(ActionRequest{
		ActorUserID: "u2",
		Action:      models.ActionModerationBan,
		Scope:       models.Scope{ServerID: "srv-1"},
	}, func() (interface{}, error) {
		t.Fatal("effect must not run")
		return nil, nil
	})
	require.Error(t, err)
	assert.Equal(t, CodeForbiddenScope, CodeOf(err))

	require.Len(t, store.audits, 2)
	assert.Equal(t, models.OutcomeGranted, store.audits[0].Outcome)
	assert.Equal(t, models.OutcomeDenied, store.audits[1].Outcome)
}

func TestGatewayExactlyOneAuditRowPerCall(t *testing.T) {
	store, g := gatewayFixture()

	for i := 0; i < 3; i++ {
		_, _ = g.Execute(ActionRequest{
			ActorUserID: "mod",
			Action:      models.ActionModerationKick,
			Scope:       models.Scope{ChannelID: "chan-1"},
		}, func() (interface{}, error) { return nil, nil })
	}
	_, _ = g.Execute(ActionRequest{
		ActorUserID: "mod",
		Action:      models.ActionModerationBan,
		Scope:       models.Scope{ChannelID: "chan-1"},
	}, func() (interface{}, error) { return nil, nil })

	assert.Len(t, store.audits, 4)
}
