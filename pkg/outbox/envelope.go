package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies who produced an event. TefaID is set when the actor
// acted in a tefa-scoped role rather than as a plain user.
type ActorRef struct {
	UserID uuid.UUID  `json:"userId"`
	TefaID *uuid.UUID `json:"tefaId,omitempty"`
	Role   string     `json:"role,omitempty"`
}

// PayloadEnvelope is the wire shape stored in outbox_events and consumed
// downstream. The Version field lets consumers handle schema evolution
// without a registry.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
