package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bookrental/internal/auth"
	"bookrental/internal/domain"
	"bookrental/internal/models"
)

const (
	headerRequestID = "X-Request-ID"

	ctxRequestID = "req_id"
	ctxUser      = "user"
)

// RequestID propagates the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(ctxRequestID, rid)
		c.Header(headerRequestID, rid)
		c.Next()
	}
}

func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"req_id", c.GetString(ctxRequestID),
			"ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "err", c.Errors.Last().Err)
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("http", attrs...)
		case status >= http.StatusBadRequest:
			log.Warn("http", attrs...)
		default:
			log.Info("http", attrs...)
		}
	}
}

// UserLookup loads the account a token was issued for.
type UserLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Authenticate requires a valid bearer token for an existing, active user.
func Authenticate(secret string, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := auth.Parse(c.GetHeader("Authorization"), secret)
		if err != nil {
			_ = c.Error(err)
			respondMessage(c, http.StatusUnauthorized, "not authorized, token missing or invalid")
			c.Abort()
			return
		}

		user, err := users.Get(c.Request.Context(), identity.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			_ = c.Error(err)
			respondMessage(c, http.StatusUnauthorized, "not authorized, user not found")
			c.Abort()
			return
		}
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		if !user.IsActive {
			respondMessage(c, http.StatusUnauthorized, "account is deactivated")
			c.Abort()
			return
		}

		c.Set(ctxUser, user)
		c.Next()
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil || !user.IsAdmin() {
			respondMessage(c, http.StatusForbidden, "admin role required")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func actorFrom(c *gin.Context) domain.Actor {
	user := currentUser(c)
	if user == nil {
		return domain.Actor{}
	}
	return domain.Actor{UserID: user.ID, Role: user.Role}
}
