package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bookrental/internal/repositories"
	"bookrental/internal/services"
)

func (h *Handler) listBooks(c *gin.Context) {
	filter := repositories.BookFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	if v := c.Query("available"); v != "" {
		available, err := strconv.ParseBool(v)
		if err != nil {
			respondMessage(c, http.StatusBadRequest, "available must be true or false")
			return
		}
		filter.AvailableOnly = available
	}

	books, err := h.books.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, books)
}

func (h *Handler) getBook(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	book, err := h.books.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, book)
}

func (h *Handler) createBook(c *gin.Context) {
	var req services.BookInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}

	book, err := h.books.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, book)
}

func (h *Handler) updateBook(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req services.BookUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}

	book, err := h.books.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, book)
}

func (h *Handler) deleteBook(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.books.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "book deleted")
}

func (h *Handler) bookStats(c *gin.Context) {
	stats, err := h.books.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}
