package collab

import (
	"encoding/json"

	"github.com/siteshift/siteshift/internal/engine"
)

// Message is the envelope of every frame on a document channel.
type Message struct {
	Type       string          `json:"type"`
	DocumentID string          `json:"documentId,omitempty"`
	ClientID   string          `json:"clientId,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	Seq        int64           `json:"seq,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

const (
	// Connection
	TypeWelcome = "welcome"
	TypeError   = "error"

	// Who is looking at which entities
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"

	// Redraw notifications
	TypeDocDirty = "doc.dirty"

	// Transform transactions
	TypeTransformSubmit     = "transform.submit"
	TypeTransformCommitted  = "transform.committed"
	TypeTransformRolledBack = "transform.rolledback"
)

type WelcomePayload struct {
	ClientID   string `json:"clientId"`
	DocumentID string `json:"documentId"`
	Version    int    `json:"version"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PresencePayload is what one watcher currently has selected.
type PresencePayload struct {
	Selection   []string `json:"selection,omitempty"`
	DisplayName string   `json:"displayName,omitempty"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

// DirtyPayload lists entities to redraw after a commit.
type DirtyPayload struct {
	Version int      `json:"version"`
	Scope   string   `json:"scope,omitempty"`
	IDs     []string `json:"ids"`
	// Selected is the subset of IDs some watcher has selected.
	Selected []string `json:"selected,omitempty"`
}

// TransformSubmitPayload asks the server to run one transaction. Job is a
// transform job in its JSON form, the same body the HTTP transform route
// takes. RequestID is echoed back in the outcome.
type TransformSubmitPayload struct {
	RequestID string          `json:"requestId"`
	Job       json.RawMessage `json:"job"`
}

// TransformOutcomePayload reports a transaction to every watcher.
type TransformOutcomePayload struct {
	RequestID string         `json:"requestId,omitempty"`
	Result    *engine.Result `json:"result"`
}
