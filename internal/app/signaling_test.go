package app

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avelark/parley/internal/domain"
)

func Test_Route_TargetedDelivery(t *testing.T) {
	req := require.New(t)
	p := NewPresence()
	r := NewRooms()
	s := NewSignaling(p, r)
	alice := &domain.User{ID: "alice", Username: "Alice"}
	bob := &domain.User{ID: "bob", Username: "Bob"}
	e1 := &fakeEndpoint{}
	e2 := &fakeEndpoint{}
	p.Register(alice, e1)
	p.Register(bob, e2)

	sdp := json.RawMessage(`{"sdp":"v=0...","kind":"offer"}`)
	s.Route(alice, e1, "call-offer", "", "bob", sdp)

	got := e2.eventsOfType(t, "call-offer")
	req.Len(got, 1)
	req.Equal("alice", got[0]["sender_id"])
	req.Equal("Alice", got[0]["sender_name"])
	// Payload passes through untouched.
	req.Equal("v=0...", got[0]["payload"].(map[string]any)["sdp"])
	// No echo for signaling.
	req.Empty(e1.eventsOfType(t, "call-offer"))
}

func Test_Route_RoomBroadcastExcludesSender(t *testing.T) {
	req := require.New(t)
	p := NewPresence()
	r := NewRooms()
	s := NewSignaling(p, r)
	alice := &domain.User{ID: "alice", Username: "Alice"}
	bob := &domain.User{ID: "bob", Username: "Bob"}
	e1 := &fakeEndpoint{}
	e2 := &fakeEndpoint{}
	p.Register(alice, e1)
	p.Register(bob, e2)
	r.Join("lobby", e1, alice)
	r.Join("lobby", e2, bob)

	s.Route(alice, e1, "call-request", "lobby", "", nil)

	req.Len(e2.eventsOfType(t, "call-request"), 1)
	req.Empty(e1.eventsOfType(t, "call-request"))
}

func Test_Route_OfflineTargetDropped(t *testing.T) {
	req := require.New(t)
	p := NewPresence()
	r := NewRooms()
	s := NewSignaling(p, r)
	alice := &domain.User{ID: "alice", Username: "Alice"}
	bob := &domain.User{ID: "bob", Username: "Bob"}
	e1 := &fakeEndpoint{}
	e2 := &fakeEndpoint{}
	p.Register(alice, e1)
	p.Register(bob, e2)

	// Alice disconnects; the next roster excludes her and an offer
	// addressed to her goes nowhere without an error.
	p.Unregister("alice", e1)
	rosters := e2.eventsOfType(t, "online-users")
	users := rosters[len(rosters)-1]["users"].([]any)
	req.Len(users, 1)
	req.Equal("Bob", users[0].(map[string]any)["username"])

	s.Route(bob, e2, "call-offer", "", "alice", json.RawMessage(`{}`))
	req.Empty(e1.eventsOfType(t, "call-offer"))
	req.Empty(e2.eventsOfType(t, "call-offer"))
}
