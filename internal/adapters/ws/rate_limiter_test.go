package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avelark/parley/internal/domain"
)

func Test_RateLimiter_BlocksOverLimit(t *testing.T) {
	req := require.New(t)
	rl := NewMessageRateLimiter(3, time.Minute)

	req.True(rl.Allow("alice"))
	req.True(rl.Allow("alice"))
	req.True(rl.Allow("alice"))
	req.False(rl.Allow("alice"))
	// Other identities have their own window.
	req.True(rl.Allow("bob"))
}

func Test_RateLimiter_WindowSlides(t *testing.T) {
	req := require.New(t)
	rl := NewMessageRateLimiter(1, 10*time.Millisecond)

	req.True(rl.Allow("alice"))
	req.False(rl.Allow("alice"))
	time.Sleep(20 * time.Millisecond)
	req.True(rl.Allow("alice"))
}

func Test_RateLimiter_Forget(t *testing.T) {
	req := require.New(t)
	rl := NewMessageRateLimiter(1, time.Minute)

	req.True(rl.Allow("alice"))
	req.False(rl.Allow("alice"))
	rl.Forget("alice")
	req.True(rl.Allow("alice"))
}

func Test_HandleEvent_RateLimitedDropped(t *testing.T) {
	req := require.New(t)
	ctl := testController()
	ctl.Limiter = NewMessageRateLimiter(1, time.Minute)
	alice := &domain.User{ID: "alice", Username: "Alice"}
	ep := newEndpoint(nil)
	ctl.Presence.Register(alice, ep)

	ctl.handleEvent(alice, ep, []byte(`{"type":"message","room":"lobby","content":"one"}`))
	ctl.handleEvent(alice, ep, []byte(`{"type":"message","room":"lobby","content":"two"}`))

	msgs := ofType(drain(t, ep), domain.KindMessage)
	req.Len(msgs, 1)
	req.Equal("one", msgs[0]["content"])
}
