package app

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avelark/parley/internal/core"
	"github.com/avelark/parley/internal/domain"
)

// Relay resolves chat events to recipient endpoints and delivers
// envelopes. Delivery is best-effort, at-most-once: a lookup miss drops
// silently, a rejected send disconnects the slow endpoint.
type Relay struct {
	Presence *Presence
	Rooms    *Rooms

	now func() time.Time
}

func NewRelay(presence *Presence, rooms *Rooms) *Relay {
	return &Relay{Presence: presence, Rooms: rooms, now: time.Now}
}

func (rl *Relay) envelope(kind string, key domain.RoomKey, sender *domain.User) domain.Envelope {
	return domain.Envelope{
		ID:         uuid.NewString(),
		Kind:       kind,
		Room:       key,
		SenderID:   sender.ID,
		SenderName: sender.Username,
		SentAt:     rl.now(),
	}
}

// JoinRoom adds the endpoint to the room and, on first join only,
// announces the display name to the room's other current members.
func (rl *Relay) JoinRoom(sender *domain.User, ep core.Endpoint, key domain.RoomKey) {
	if !rl.Rooms.Join(key, ep, sender) {
		return
	}
	frame, ok := encode(rl.envelope(domain.KindJoined, key, sender))
	if !ok {
		return
	}
	closeDropped(rl.Rooms.Broadcast(key, frame, ep))
}

// JoinPrivate joins the derived pair room for sender and other.
func (rl *Relay) JoinPrivate(sender *domain.User, ep core.Endpoint, other domain.UserID) domain.RoomKey {
	key := domain.PrivateRoomKey(sender.ID, other)
	rl.JoinRoom(sender, ep, key)
	return key
}

// SendRoom broadcasts a room-addressed message, always delivering one
// direct copy to the sender's own endpoint. The sender is excluded from
// the room broadcast, so it sees its message exactly once whether or
// not it has joined the room.
func (rl *Relay) SendRoom(sender *domain.User, ep core.Endpoint, key domain.RoomKey, content, replyTo string) {
	env := rl.envelope(domain.KindMessage, key, sender)
	env.Content = content
	env.ReplyTo = replyTo
	frame, ok := encode(env)
	if !ok {
		return
	}
	dropped := rl.Rooms.Broadcast(key, frame, ep)
	if err := ep.TrySend(frame); err != nil {
		dropped = append(dropped, ep)
	}
	closeDropped(dropped)
}

// SendPrivate delivers one copy to the target's live endpoint, if any,
// plus one echo to the sender. An offline target is a silent drop; the
// recipient catches up through message history on reconnect.
func (rl *Relay) SendPrivate(sender *domain.User, ep core.Endpoint, target domain.UserID, content string) {
	env := rl.envelope(domain.KindMessage, domain.PrivateRoomKey(sender.ID, target), sender)
	env.Target = target
	env.Content = content
	frame, ok := encode(env)
	if !ok {
		return
	}

	var dropped []core.Endpoint
	if tep, ok := rl.Presence.Lookup(target); ok && tep != ep {
		if err := tep.TrySend(frame); err != nil {
			dropped = append(dropped, tep)
		}
	}
	if err := ep.TrySend(frame); err != nil {
		dropped = append(dropped, ep)
	}
	closeDropped(dropped)
}

// Typing notifies the room's other members; it is never echoed to the
// sender and never persisted.
func (rl *Relay) Typing(sender *domain.User, ep core.Endpoint, key domain.RoomKey, isTyping bool) {
	frame, ok := encode(struct {
		Type       string         `json:"type"`
		Room       domain.RoomKey `json:"room"`
		SenderID   domain.UserID  `json:"sender_id"`
		SenderName string         `json:"sender_name"`
		IsTyping   bool           `json:"is_typing"`
	}{domain.KindTyping, key, sender.ID, sender.Username, isTyping})
	if !ok {
		return
	}
	closeDropped(rl.Rooms.Broadcast(key, frame, ep))
}

// Push fans an already-stored envelope out to the room's current
// members. It is the write-path bridge's delivery primitive, invoked
// only after a durable write. The sender still gets exactly one copy:
// via the broadcast when joined, via a direct send otherwise.
func (rl *Relay) Push(env domain.Envelope) {
	frame, ok := encode(env)
	if !ok {
		return
	}
	dropped := rl.Rooms.Broadcast(env.Room, frame, nil)
	if sep, ok := rl.Presence.Lookup(env.SenderID); ok && !rl.Rooms.Contains(env.Room, sep) {
		if err := sep.TrySend(frame); err != nil {
			dropped = append(dropped, sep)
		}
	}
	closeDropped(dropped)
}

// closeDropped disconnects endpoints that rejected a frame. Their
// teardown runs the normal unregister cycle; the frame itself is not
// retried.
func closeDropped(dropped []core.Endpoint) {
	for _, ep := range dropped {
		log.Warn().Str("module", "app.relay").Msg("closing backpressured endpoint")
		ep.Close()
	}
}
