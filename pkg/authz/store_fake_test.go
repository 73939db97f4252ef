package authz

import (
	"fmt"
	"time"

	"creator-hub-backend/pkg/database"
	"creator-hub-backend/pkg/models"
)

// fakeStore is an in-memory Store for authorization tests. It mimics the
// Postgres implementation's contracts: not-found errors wrap
// database.ErrNotFound, expiry flips are idempotent, and the active
// lookup never returns a lapsed assignment.
type fakeStore struct {
	hubs        map[string]*models.Hub
	servers     map[string]*models.Server
	channels    map[string]*models.Channel
	bindings    []models.RoleBinding
	assignments []*models.SpaceOwnerAssignment
	audits      []*models.ModerationAction

	expireCalls int
	auditErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		hubs:     make(map[string]*models.Hub),
		servers:  make(map[string]*models.Server),
		channels: make(map[string]*models.Channel),
	}
}

func (f *fakeStore) addHub(id string) *models.Hub {
	h := &models.Hub{ID: id, Name: id}
	f.hubs[id] = h
	return h
}

func (f *fakeStore) addServer(id, hubID, ownerUserID string) *models.Server {
	s := &models.Server{ID: id, HubID: hubID, Name: id, OwnerUserID: ownerUserID}
	f.servers[id] = s
	return s
}

func (f *fakeStore) addChannel(id, serverID string) *models.Channel {
	c := &models.Channel{ID: id, ServerID: serverID, Name: id, Kind: "text"}
	f.channels[id] = c
	return c
}

func (f *fakeStore) addBinding(subject string, role models.Role, scope models.Scope) {
	f.bindings = append(f.bindings, models.RoleBinding{Subject: subject, Role: role, Scope: scope})
}

func (f *fakeStore) addAssignment(serverID, userID string, expiresAt *time.Time) *models.SpaceOwnerAssignment {
	a := &models.SpaceOwnerAssignment{
		ID:             fmt.Sprintf("assign-%d", len(f.assignments)+1),
		ServerID:       serverID,
		AssignedUserID: userID,
		Status:         models.AssignmentActive,
		ExpiresAt:      expiresAt,
	}
	f.assignments = append(f.assignments, a)
	return a
}

func (f *fakeStore) GetHub(hubID string) (*models.Hub, error) {
	if h, ok := f.hubs[hubID]; ok {
		return h, nil
	}
	return nil, fmt.Errorf("hub %s: %w", hubID, database.ErrNotFound)
}

func (f *fakeStore) GetServer(serverID string) (*models.Server, error) {
	if s, ok := f.servers[serverID]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("server %s: %w", serverID, database.ErrNotFound)
}

func (f *fakeStore) GetChannel(channelID string) (*models.Channel, error) {
	if c, ok := f.channels[channelID]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("channel %s: %w", channelID, database.ErrNotFound)
}

func (f *fakeStore) ListRoleBindingsBySubject(subject string) ([]models.RoleBinding, error) {
	var out []models.RoleBinding
	for _, b := range f.bindings {
		if b.Subject == subject {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) FindActiveSpaceOwnerAssignment(serverID, userID string) (*models.SpaceOwnerAssignment, error) {
	now := time.Now()
	for _, a := range f.assignments {
		if a.ServerID == serverID && a.AssignedUserID == userID && !a.Lapsed(now) {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ExpireStaleSpaceOwnerAssignments(serverID, userID string) error {
	f.expireCalls++
	now := time.Now()
	for _, a := range f.assignments {
		if a.ServerID == serverID && a.AssignedUserID == userID &&
			a.Status == models.AssignmentActive && a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
			a.Status = models.AssignmentExpired
		}
	}
	return nil
}

func (f *fakeStore) InsertModerationAction(rec *models.ModerationAction) error {
	if f.auditErr != nil {
		return f.auditErr
	}
	rec.CreatedAt = time.Now()
	f.audits = append(f.audits, rec)
	return nil
}
