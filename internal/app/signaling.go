package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/avelark/parley/internal/core"
	"github.com/avelark/parley/internal/domain"
)

// Signaling routes call-negotiation events between peers. It holds no
// call-session state and never inspects the negotiation payload; the
// outbound frame mirrors the inbound kind 1:1, annotated with the
// sender's identity and display name.
type Signaling struct {
	Presence *Presence
	Rooms    *Rooms
}

func NewSignaling(presence *Presence, rooms *Rooms) *Signaling {
	return &Signaling{Presence: presence, Rooms: rooms}
}

// Route resolves recipients the same way the message relay does:
// room-addressed events go to the room's other members,
// identity-addressed events go to the single resolved endpoint.
// A presence miss is a silent drop.
func (s *Signaling) Route(sender *domain.User, ep core.Endpoint, kind string, room domain.RoomKey, target domain.UserID, payload json.RawMessage) {
	frame, ok := encode(struct {
		Type       string          `json:"type"`
		Room       domain.RoomKey  `json:"room,omitempty"`
		SenderID   domain.UserID   `json:"sender_id"`
		SenderName string          `json:"sender_name"`
		Payload    json.RawMessage `json:"payload,omitempty"`
	}{kind, room, sender.ID, sender.Username, payload})
	if !ok {
		return
	}

	if room != "" {
		closeDropped(s.Rooms.Broadcast(room, frame, ep))
		return
	}

	tep, found := s.Presence.Lookup(target)
	if !found {
		log.Debug().Str("module", "app.signaling").Str("kind", kind).Str("target", string(target)).Msg("target offline, dropped")
		return
	}
	if err := tep.TrySend(frame); err != nil {
		closeDropped([]core.Endpoint{tep})
	}
}
