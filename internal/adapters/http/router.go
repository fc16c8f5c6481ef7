package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/avelark/parley/internal/adapters/ws"
	"github.com/avelark/parley/internal/app"
	"github.com/avelark/parley/internal/auth"
	"github.com/avelark/parley/internal/config"
	"github.com/avelark/parley/internal/storage"
)

type Deps struct {
	Presence  *app.Presence
	Rooms     *app.Rooms
	Relay     *app.Relay
	Signaling *app.Signaling
	Verifier  *auth.Verifier
	Messages  *storage.Messages
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("ParleySessions", store))

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ctl := &ws.Controller{
		Presence:   deps.Presence,
		Rooms:      deps.Rooms,
		Relay:      deps.Relay,
		Signaling:  deps.Signaling,
		Verifier:   deps.Verifier,
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
	}
	if cfg.MsgLimit > 0 {
		ctl.Limiter = ws.NewMessageRateLimiter(cfg.MsgLimit, cfg.MsgWindow)
	}

	api := r.Group("/api")
	api.POST("/login", loginHandler(deps.Verifier))
	api.GET("/ws", func(c *gin.Context) {
		ctl.HandleWS(ctx, c)
	})

	authed := api.Group("", requireIdentity(deps.Verifier))
	authed.GET("/history", historyHandler(deps.Messages))
	authed.POST("/messages", postMessageHandler(deps))
	authed.PATCH("/messages/:id", editMessageHandler(deps))
	authed.POST("/messages/:id/reactions", reactionHandler(deps))

	return r
}
