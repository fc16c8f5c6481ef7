package domain

import "time"

// Envelope kinds for chat traffic. Signaling kinds are mirrored 1:1 from
// the inbound event and never take envelope form.
const (
	KindMessage = "new-message"
	KindTyping  = "user-typing"
	KindJoined  = "user-joined"
	KindUpdated = "message-updated"
)

// Envelope is the canonical in-flight representation of a chat event.
// Sender fields come from the authenticated connection, never from the
// payload. The core treats it as transient; durable storage is the
// message store's concern.
type Envelope struct {
	ID         string              `json:"id"`
	Kind       string              `json:"type"`
	Room       RoomKey             `json:"room"`
	SenderID   UserID              `json:"sender_id"`
	SenderName string              `json:"sender_name"`
	Target     UserID              `json:"target,omitempty"`
	Content    string              `json:"content,omitempty"`
	ReplyTo    string              `json:"reply_to,omitempty"`
	Reactions  map[string][]UserID `json:"reactions,omitempty"`
	Edited     bool                `json:"edited,omitempty"`
	SentAt     time.Time           `json:"sent_at"`
}
