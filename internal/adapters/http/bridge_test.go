package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/avelark/parley/internal/app"
	"github.com/avelark/parley/internal/auth"
	"github.com/avelark/parley/internal/config"
	"github.com/avelark/parley/internal/storage"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	messages, err := storage.Open(t.TempDir(), 50)
	require.NoError(t, err)
	t.Cleanup(func() { _ = messages.Close() })

	cfg := &config.Config{
		Mode:        "release",
		Secret:      "test-secret",
		StaticPath:  t.TempDir(),
		PingPeriod:  54 * time.Second,
		HistoryPage: 50,
	}
	presence := app.NewPresence()
	rooms := app.NewRooms()
	return SetupRouter(context.Background(), cfg, Deps{
		Presence:  presence,
		Rooms:     rooms,
		Relay:     app.NewRelay(presence, rooms),
		Signaling: app.NewSignaling(presence, rooms),
		Verifier:  auth.NewVerifier(cfg.Secret, time.Hour),
		Messages:  messages,
	})
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func login(t *testing.T, r *gin.Engine, username string) string {
	t.Helper()
	w, out := doJSON(t, r, http.MethodPost, "/api/login", "", gin.H{"username": username})
	require.Equal(t, http.StatusOK, w.Code)
	return out["token"].(string)
}

func Test_Bridge_PostEditReactHistory(t *testing.T) {
	req := require.New(t)
	r := testRouter(t)
	token := login(t, r, "Alice")

	w, stored := doJSON(t, r, http.MethodPost, "/api/messages", token, gin.H{"room": "lobby", "content": "hi"})
	req.Equal(http.StatusCreated, w.Code)
	id := stored["id"].(string)

	w, edited := doJSON(t, r, http.MethodPatch, "/api/messages/"+id, token, gin.H{"content": "hi there"})
	req.Equal(http.StatusOK, w.Code)
	req.Equal("hi there", edited["content"])
	req.Equal(true, edited["edited"])

	w, reacted := doJSON(t, r, http.MethodPost, "/api/messages/"+id+"/reactions", token, gin.H{"emoji": "👍"})
	req.Equal(http.StatusOK, w.Code)
	req.NotNil(reacted["reactions"])

	w, history := doJSON(t, r, http.MethodGet, "/api/history?room=lobby", token, nil)
	req.Equal(http.StatusOK, w.Code)
	msgs := history["messages"].([]any)
	req.Len(msgs, 1)
	req.Equal("hi there", msgs[0].(map[string]any)["content"])
}

func Test_Bridge_RequiresIdentity(t *testing.T) {
	req := require.New(t)
	r := testRouter(t)

	w, _ := doJSON(t, r, http.MethodPost, "/api/messages", "", gin.H{"room": "lobby", "content": "hi"})
	req.Equal(http.StatusUnauthorized, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/api/history?room=lobby", "bogus", nil)
	req.Equal(http.StatusUnauthorized, w.Code)
}

func Test_Bridge_EditUnknownMessage(t *testing.T) {
	req := require.New(t)
	r := testRouter(t)
	token := login(t, r, "Alice")

	w, _ := doJSON(t, r, http.MethodPatch, "/api/messages/nope", token, gin.H{"content": "x"})
	req.Equal(http.StatusNotFound, w.Code)
}

func Test_Login_RejectsEmptyName(t *testing.T) {
	req := require.New(t)
	r := testRouter(t)
	w, _ := doJSON(t, r, http.MethodPost, "/api/login", "", gin.H{"username": ""})
	req.Equal(http.StatusBadRequest, w.Code)
}
