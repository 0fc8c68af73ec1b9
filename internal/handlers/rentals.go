package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bookrental/internal/models"
	"bookrental/internal/services"
)

type createRentalRequest struct {
	BookID uuid.UUID `json:"bookId"`
	Days   int       `json:"days"`
	Notes  string    `json:"notes" binding:"max=1000"`
}

func (h *Handler) createRental(c *gin.Context) {
	var req createRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}

	rental, err := h.rentals.Create(c.Request.Context(), actorFrom(c), services.CreateRentalInput{
		BookID: req.BookID,
		Days:   req.Days,
		Notes:  req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, rental)
}

func (h *Handler) listRentals(c *gin.Context) {
	q := services.RentalQuery{Status: models.RentalStatus(c.Query("status"))}
	if v := c.Query("userId"); v != "" {
		userID, err := uuid.Parse(v)
		if err != nil {
			respondMessage(c, http.StatusBadRequest, "invalid userId")
			return
		}
		q.UserID = userID
	}

	rentals, err := h.rentals.List(c.Request.Context(), actorFrom(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, rentals)
}

func (h *Handler) getRental(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	rental, err := h.rentals.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, rental)
}

func (h *Handler) returnRental(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	rental, err := h.rentals.Return(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, rental)
}

func (h *Handler) cancelRental(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	rental, err := h.rentals.Cancel(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, rental)
}

func (h *Handler) rentalStats(c *gin.Context) {
	stats, err := h.rentals.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}
