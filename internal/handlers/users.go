package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bookrental/internal/services"
)

const healthTimeout = 2 * time.Second

func (h *Handler) me(c *gin.Context) {
	respond(c, http.StatusOK, currentUser(c))
}

func (h *Handler) updateMe(c *gin.Context) {
	var req services.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), currentUser(c).ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, users)
}

func (h *Handler) createUser(c *gin.Context) {
	var req services.UserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, user)
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
