package app

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/avelark/parley/internal/core"
	"github.com/avelark/parley/internal/domain"
)

type presenceEntry struct {
	user     *domain.User
	endpoint core.Endpoint
	lastSeen time.Time
}

// Presence tracks which identities currently have a live connection and
// to which endpoint. At most one authoritative endpoint per identity; a
// new registration for the same identity overwrites, never merges.
type Presence struct {
	mu      sync.RWMutex
	entries map[domain.UserID]*presenceEntry
}

func NewPresence() *Presence {
	return &Presence{entries: make(map[domain.UserID]*presenceEntry)}
}

// Register binds ep as the identity's authoritative endpoint
// (last-connect-wins). A replaced endpoint is closed so its teardown
// path runs. Every presence change pushes a fresh roster to all
// connected endpoints.
func (p *Presence) Register(user *domain.User, ep core.Endpoint) {
	p.mu.Lock()
	var replaced core.Endpoint
	if prev, ok := p.entries[user.ID]; ok && prev.endpoint != ep {
		replaced = prev.endpoint
	}
	p.entries[user.ID] = &presenceEntry{user: user, endpoint: ep, lastSeen: time.Now()}
	p.mu.Unlock()

	if replaced != nil {
		replaced.Close()
	}
	log.Info().Str("module", "app.presence").Str("user", string(user.ID)).Str("username", user.Username).Msg("registered")
	p.broadcastRoster()
}

// Unregister removes the identity's entry. No-op when the identity is
// absent, or when ep is non-nil and a newer registration has already
// replaced it (a slow-closing old socket must not evict its successor).
func (p *Presence) Unregister(id domain.UserID, ep core.Endpoint) {
	p.mu.Lock()
	entry, ok := p.entries[id]
	if !ok || (ep != nil && entry.endpoint != ep) {
		p.mu.Unlock()
		return
	}
	delete(p.entries, id)
	p.mu.Unlock()

	log.Info().Str("module", "app.presence").Str("user", string(id)).Msg("unregistered")
	p.broadcastRoster()
}

// Lookup reports the live endpoint for an identity. Absence is not an
// error; callers deliver nothing on a miss.
func (p *Presence) Lookup(id domain.UserID) (core.Endpoint, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if e, ok := p.entries[id]; ok {
		return e.endpoint, true
	}
	return nil, false
}

// Touch refreshes the last-seen timestamp, fed by keepalive pongs.
func (p *Presence) Touch(id domain.UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[id]; ok {
		e.lastSeen = time.Now()
	}
}

// Snapshot returns the ordered roster of connected identities.
func (p *Presence) Snapshot() []core.UserDTO {
	p.mu.RLock()
	out := lo.MapToSlice(p.entries, func(_ domain.UserID, e *presenceEntry) core.UserDTO {
		return core.UserDTO{ID: e.user.ID, Username: e.user.Username}
	})
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (p *Presence) endpoints() []core.Endpoint {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return lo.MapToSlice(p.entries, func(_ domain.UserID, e *presenceEntry) core.Endpoint {
		return e.endpoint
	})
}

func (p *Presence) broadcastRoster() {
	frame, ok := encode(struct {
		Type  string         `json:"type"`
		Users []core.UserDTO `json:"users"`
	}{Type: "online-users", Users: p.Snapshot()})
	if !ok {
		return
	}
	for _, ep := range p.endpoints() {
		if err := ep.TrySend(frame); err != nil {
			log.Debug().Err(err).Str("module", "app.presence").Msg("roster push dropped")
		}
	}
}
