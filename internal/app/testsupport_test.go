package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avelark/parley/internal/core"
)

var errReject = errors.New("backpressure")

// fakeEndpoint captures frames for fan-out assertions.
type fakeEndpoint struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
	reject bool
}

func (f *fakeEndpoint) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject {
		return errReject
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeEndpoint) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeEndpoint) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// events decodes every captured frame into a generic map.
func (f *fakeEndpoint) events(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, fr := range f.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(fr, &m))
		out = append(out, m)
	}
	return out
}

// eventsOfType filters captured events by their type tag.
func (f *fakeEndpoint) eventsOfType(t *testing.T, kind string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, e := range f.events(t) {
		if e["type"] == kind {
			out = append(out, e)
		}
	}
	return out
}
