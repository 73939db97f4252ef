package models

// Scope identifies a point in the hub -> server -> channel hierarchy.
// An empty component on a binding means "any value" (wildcard); an empty
// component on a query means "this axis is not being checked".
type Scope struct {
	HubID     string `json:"hub_id,omitempty" db:"hub_id"`
	ServerID  string `json:"server_id,omitempty" db:"server_id"`
	ChannelID string `json:"channel_id,omitempty" db:"channel_id"`
}

// IsEmpty reports whether no component is set. Resolvers return an empty
// scope for ids that do not exist; callers reject it before matching,
// since an all-empty query leaves every axis unchecked.
func (s Scope) IsEmpty() bool {
	return s.HubID == "" && s.ServerID == "" && s.ChannelID == ""
}

// Covers reports whether a binding with scope s applies to query q.
// Each axis matches independently; the binding covers the query only if
// all three axes match.
func (s Scope) Covers(q Scope) bool {
	return axisMatches(s.HubID, q.HubID) &&
		axisMatches(s.ServerID, q.ServerID) &&
		axisMatches(s.ChannelID, q.ChannelID)
}

func axisMatches(binding, query string) bool {
	return binding == "" || query == "" || binding == query
}
