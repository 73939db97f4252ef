package authz

import "creator-hub-backend/pkg/models"

// ScopeResolver completes a partial scope with its ancestor chain
// (channel -> server -> hub) so authorization always evaluates against
// a full triple.
type ScopeResolver struct {
	db Store
}

func NewScopeResolver(db Store) *ScopeResolver {
	return &ScopeResolver{db: db}
}

// Resolve fills in missing ancestor ids. It never returns an error: an
// id that does not exist (or a failing lookup) yields an all-empty
// scope, which callers reject as a denial.
func (r *ScopeResolver) Resolve(partial models.Scope) models.Scope {
	s := partial
	if s.ChannelID != "" {
		ch, err := r.db.GetChannel(s.ChannelID)
		if err != nil {
			return models.Scope{}
		}
		if s.ServerID == "" {
			s.ServerID = ch.ServerID
		}
	}
	if s.ServerID != "" {
		srv, err := r.db.GetServer(s.ServerID)
		if err != nil {
			return models.Scope{}
		}
		if s.HubID == "" {
			s.HubID = srv.HubID
		}
	}
	if s.HubID != "" && s.ServerID == "" && s.ChannelID == "" {
		if _, err := r.db.GetHub(s.HubID); err != nil {
			return models.Scope{}
		}
	}
	return s
}
