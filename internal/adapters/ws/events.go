package ws

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/avelark/parley/internal/domain"
)

// Inbound payload contracts, validated once at the boundary. A
// violation means the event is ignored and the connection stays open.

type joinRoomEvent struct {
	Room string `json:"room" validate:"required"`
}

type messageEvent struct {
	Room    string `json:"room" validate:"required"`
	Content string `json:"content" validate:"required"`
	ReplyTo string `json:"reply_to"`
}

type privateMessageEvent struct {
	Target  string `json:"target" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type joinPrivateChatEvent struct {
	Target string `json:"target" validate:"required"`
}

type typingEvent struct {
	Room     string `json:"room" validate:"required"`
	IsTyping bool   `json:"is_typing"`
}

// signalEvent carries either a room or a target; the payload is opaque
// to the relay.
type signalEvent struct {
	Room    string          `json:"room"`
	Target  string          `json:"target"`
	Payload json.RawMessage `json:"payload"`
}

var signalKinds = map[string]struct{}{
	"call-request":          {},
	"private-call-request":  {},
	"call-offer":            {},
	"call-answer":           {},
	"ice-candidate":         {},
	"call-ended":            {},
	"call-rejected":         {},
	"call-accepted":         {},
	"private-call-rejected": {},
	"private-call-accepted": {},
}

var validate = validator.New()

func decode[T any](data []byte) (T, error) {
	var p T
	if err := json.Unmarshal(data, &p); err != nil {
		return p, err
	}
	if err := validate.Struct(&p); err != nil {
		return p, err
	}
	return p, nil
}

func (ctl *Controller) handleEvent(user *domain.User, c *wsEndpoint, data []byte) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("bad json")
		return
	}

	switch head.Type {
	case "join-room":
		p, err := decode[joinRoomEvent](data)
		if err != nil {
			ctl.malformed(head.Type, err)
			return
		}
		ctl.Relay.JoinRoom(user, c, domain.RoomKey(p.Room))
	case "message":
		p, err := decode[messageEvent](data)
		if err != nil {
			ctl.malformed(head.Type, err)
			return
		}
		if !ctl.allow(user) {
			return
		}
		ctl.Relay.SendRoom(user, c, domain.RoomKey(p.Room), p.Content, p.ReplyTo)
	case "private-message":
		p, err := decode[privateMessageEvent](data)
		if err != nil {
			ctl.malformed(head.Type, err)
			return
		}
		if !ctl.allow(user) {
			return
		}
		ctl.Relay.SendPrivate(user, c, domain.UserID(p.Target), p.Content)
	case "join-private-chat":
		p, err := decode[joinPrivateChatEvent](data)
		if err != nil {
			ctl.malformed(head.Type, err)
			return
		}
		ctl.Relay.JoinPrivate(user, c, domain.UserID(p.Target))
	case "typing":
		p, err := decode[typingEvent](data)
		if err != nil {
			ctl.malformed(head.Type, err)
			return
		}
		ctl.Relay.Typing(user, c, domain.RoomKey(p.Room), p.IsTyping)
	default:
		if _, ok := signalKinds[head.Type]; !ok {
			log.Warn().Str("module", "ws").Str("type", head.Type).Msg("unknown event")
			return
		}
		p, err := decode[signalEvent](data)
		if err != nil || (p.Room == "" && p.Target == "") {
			ctl.malformed(head.Type, err)
			return
		}
		ctl.Signaling.Route(user, c, head.Type, domain.RoomKey(p.Room), domain.UserID(p.Target), p.Payload)
	}
}

func (ctl *Controller) allow(user *domain.User) bool {
	if ctl.Limiter == nil || ctl.Limiter.Allow(user.ID) {
		return true
	}
	log.Warn().Str("module", "ws").Str("user", string(user.ID)).Msg("rate limited, event dropped")
	return false
}

func (ctl *Controller) malformed(kind string, err error) {
	log.Warn().Err(err).Str("module", "ws").Str("type", kind).Msg("malformed event ignored")
}
