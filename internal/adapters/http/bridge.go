package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avelark/parley/internal/auth"
	"github.com/avelark/parley/internal/domain"
	"github.com/avelark/parley/internal/storage"
)

// loginHandler mints an identity token. The display name is also kept
// in the cookie session so the web client can restore it.
func loginHandler(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
		user, err := domain.NewUser(req.Username)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		token, err := v.Issue(user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue"})
			return
		}
		sess := sessions.Default(c)
		sess.Set("username", user.Username)
		_ = sess.Save()
		c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
	}
}

func requireIdentity(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
				token = strings.TrimPrefix(h, "Bearer ")
			}
		}
		user, err := v.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set("user", user)
		c.Next()
	}
}

func identityFrom(c *gin.Context) *domain.User {
	return c.MustGet("user").(*domain.User)
}

func historyHandler(messages *storage.Messages) gin.HandlerFunc {
	return func(c *gin.Context) {
		room := c.Query("room")
		if room == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "room required"})
			return
		}
		var cursor *string
		if cur := c.Query("cursor"); cur != "" {
			cursor = &cur
		}
		page, next, err := messages.History(domain.RoomKey(room), cursor)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("history query")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "history"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": page, "cursor": next})
	}
}

// postMessageHandler is the durable write path for new messages: the
// envelope is persisted first, then pushed into the live fan-out. A
// message travels exactly one of the two paths (WS relay or this one),
// which is what keeps delivery single-copy.
func postMessageHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Room    string `json:"room" binding:"required"`
			Content string `json:"content" binding:"required"`
			ReplyTo string `json:"reply_to"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
		user := identityFrom(c)
		env := domain.Envelope{
			ID:         uuid.NewString(),
			Kind:       domain.KindMessage,
			Room:       domain.RoomKey(req.Room),
			SenderID:   user.ID,
			SenderName: user.Username,
			Content:    req.Content,
			ReplyTo:    req.ReplyTo,
			SentAt:     time.Now().UTC(),
		}
		stored, err := deps.Messages.Append(env)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("message append")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "store"})
			return
		}
		deps.Relay.Push(stored.Envelope)
		c.JSON(http.StatusCreated, stored)
	}
}

func editMessageHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Content string `json:"content" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
		env, err := deps.Messages.Edit(c.Param("id"), req.Content)
		if err != nil {
			bridgeStoreError(c, err)
			return
		}
		env.Kind = domain.KindUpdated
		deps.Relay.Push(env)
		c.JSON(http.StatusOK, env)
	}
}

func reactionHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Emoji string `json:"emoji" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
		env, err := deps.Messages.React(c.Param("id"), req.Emoji, identityFrom(c).ID)
		if err != nil {
			bridgeStoreError(c, err)
			return
		}
		env.Kind = domain.KindUpdated
		deps.Relay.Push(env)
		c.JSON(http.StatusOK, env)
	}
}

func bridgeStoreError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	log.Error().Err(err).Str("module", "adapters.http").Msg("message store")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "store"})
}
