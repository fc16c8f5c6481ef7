package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avelark/parley/internal/domain"
)

func Test_Join_Idempotent(t *testing.T) {
	req := require.New(t)
	r := NewRooms()
	alice := &domain.User{ID: "alice", Username: "Alice"}
	e1 := &fakeEndpoint{}

	req.True(r.Join("lobby", e1, alice))
	req.False(r.Join("lobby", e1, alice))
	req.Len(r.Members("lobby"), 1)
}

func Test_DropEndpoint_EvictsEverywhere(t *testing.T) {
	req := require.New(t)
	r := NewRooms()
	alice := &domain.User{ID: "alice", Username: "Alice"}
	bob := &domain.User{ID: "bob", Username: "Bob"}
	e1 := &fakeEndpoint{}
	e2 := &fakeEndpoint{}
	r.Join("lobby", e1, alice)
	r.Join("lobby", e2, bob)
	r.Join(domain.PrivateRoomKey("alice", "bob"), e1, alice)

	r.DropEndpoint(e1)

	req.False(r.Contains("lobby", e1))
	req.True(r.Contains("lobby", e2))
	req.Empty(r.Members(domain.PrivateRoomKey("alice", "bob")))
}

func Test_Broadcast_ReportsRejections(t *testing.T) {
	req := require.New(t)
	r := NewRooms()
	ok := &fakeEndpoint{}
	slow := &fakeEndpoint{reject: true}
	r.Join("lobby", ok, &domain.User{ID: "a", Username: "a"})
	r.Join("lobby", slow, &domain.User{ID: "b", Username: "b"})

	dropped := r.Broadcast("lobby", []byte(`{"type":"x"}`), nil)
	req.Len(dropped, 1)
	req.Same(slow, dropped[0].(*fakeEndpoint))
	req.Len(ok.frames, 1)
}
