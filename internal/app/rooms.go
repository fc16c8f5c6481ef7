package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/avelark/parley/internal/core"
	"github.com/avelark/parley/internal/domain"
)

// Rooms is the room multiplexer: lock-guarded membership sets keyed by
// room key. Rooms are created lazily on first join and decay as their
// member endpoints disconnect; nothing deletes a room explicitly.
type Rooms struct {
	mu    sync.RWMutex
	rooms map[domain.RoomKey]map[core.Endpoint]*domain.User
}

func NewRooms() *Rooms {
	return &Rooms{rooms: make(map[domain.RoomKey]map[core.Endpoint]*domain.User)}
}

// Join adds ep to the room, creating it on first use. Idempotent:
// rejoining reports false so callers announce only the first join.
func (r *Rooms) Join(key domain.RoomKey, ep core.Endpoint, user *domain.User) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[key]
	if !ok {
		members = make(map[core.Endpoint]*domain.User)
		r.rooms[key] = members
	}
	if _, ok := members[ep]; ok {
		return false
	}
	members[ep] = user
	log.Info().Str("module", "app.rooms").Str("room", string(key)).Str("user", string(user.ID)).Msg("member joined")
	return true
}

// Broadcast delivers frame to every current member except the excluded
// endpoint. Returns endpoints that rejected the frame so the caller can
// apply backpressure policy.
func (r *Rooms) Broadcast(key domain.RoomKey, frame core.Frame, except core.Endpoint) []core.Endpoint {
	r.mu.RLock()
	targets := make([]core.Endpoint, 0, len(r.rooms[key]))
	for ep := range r.rooms[key] {
		if ep == except {
			continue
		}
		targets = append(targets, ep)
	}
	r.mu.RUnlock()

	var dropped []core.Endpoint
	for _, ep := range targets {
		if err := ep.TrySend(frame); err != nil {
			dropped = append(dropped, ep)
		}
	}
	if len(dropped) > 0 {
		log.Debug().Str("module", "app.rooms").Str("room", string(key)).Int("dropped", len(dropped)).Msg("broadcast backpressure")
	}
	return dropped
}

// Contains reports whether ep is currently a member of the room.
func (r *Rooms) Contains(key domain.RoomKey, ep core.Endpoint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[key][ep]
	return ok
}

// Members returns a read-only membership snapshot.
func (r *Rooms) Members(key domain.RoomKey) []core.UserDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.UserDTO, 0, len(r.rooms[key]))
	for _, u := range r.rooms[key] {
		out = append(out, core.UserDTO{ID: u.ID, Username: u.Username})
	}
	return out
}

// DropEndpoint removes ep from every room it joined. Called once per
// disconnect; empty rooms are collected here.
func (r *Rooms) DropEndpoint(ep core.Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, members := range r.rooms {
		if _, ok := members[ep]; !ok {
			continue
		}
		delete(members, ep)
		if len(members) == 0 {
			delete(r.rooms, key)
		}
	}
}
