package domain

// Action websocket frame action
type Action string

const (
	// RosterSnapshot full ordered roster, sent once after the bulk load
	RosterSnapshot Action = "roster_snapshot"
	// RosterUpdate one changed display record
	RosterUpdate Action = "roster_update"
	// RosterState load state change (loading / ready / failed / stale)
	RosterState Action = "roster_state"

	// Heartbeat inbound, client reports own liveness
	Heartbeat Action = "heartbeat"
	// Reload inbound, retry the bulk load after a failure
	Reload Action = "reload"
)

// WSRequest websocket Request
type WSRequest struct {
	Action string `json:"action"`
	Status string `json:"status,omitempty"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
