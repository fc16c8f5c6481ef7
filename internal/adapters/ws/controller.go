package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avelark/parley/internal/app"
	"github.com/avelark/parley/internal/auth"
)

type Controller struct {
	Presence  *app.Presence
	Rooms     *app.Rooms
	Relay     *app.Relay
	Signaling *app.Signaling
	Verifier  *auth.Verifier
	Limiter   *MessageRateLimiter

	ReadLimit  int64
	PingPeriod time.Duration
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func bearerToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// HandleWS gatekeeps and admits one connection. The resolved identity
// is bound to the connection for its lifetime; a failed verification
// rejects the handshake before any event exchange is possible.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	user, err := ctl.Verifier.Verify(bearerToken(c))
	if err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("handshake rejected")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		conn.SetReadLimit(ctl.ReadLimit)
	}

	ep := newEndpoint(conn)
	ctx, cancel := context.WithCancel(ctx)

	ctl.Presence.Register(user, ep)
	log.Info().Str("module", "ws").Str("user", string(user.ID)).Str("username", user.Username).Msg("connection admitted")

	go ctl.writePump(ctx, ep)
	go ctl.readPump(ctx, cancel, user, ep)
}
