package handlers

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"bookrental/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Books     services.BookService
	Rentals   services.RentalService
	Users     services.UserService
	Store     Pinger
	JWTSecret string
	Logger    *slog.Logger
}

type Handler struct {
	books   services.BookService
	rentals services.RentalService
	users   services.UserService
	store   Pinger
}

// NewRouter builds the gin engine with middleware and every route mounted.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(deps.Logger))
	RegisterRoutes(r, deps)
	return r
}

func RegisterRoutes(r *gin.Engine, deps Dependencies) {
	h := &Handler{
		books:   deps.Books,
		rentals: deps.Rentals,
		users:   deps.Users,
		store:   deps.Store,
	}
	authn := Authenticate(deps.JWTSecret, deps.Users)
	admin := RequireAdmin()

	r.GET("/manage/health", h.health)

	api := r.Group("/api")

	// Catalogue, public reads
	api.GET("/books", h.listBooks)
	api.GET("/books/:id", h.getBook)

	// Catalogue management
	api.POST("/books", authn, admin, h.createBook)
	api.PUT("/books/:id", authn, admin, h.updateBook)
	api.DELETE("/books/:id", authn, admin, h.deleteBook)

	// Rentals
	rentals := api.Group("/rentals", authn)
	rentals.POST("", h.createRental)
	rentals.GET("", h.listRentals)
	rentals.GET("/:id", h.getRental)
	rentals.PUT("/:id/return", h.returnRental)
	rentals.PUT("/:id/cancel", h.cancelRental)

	// Reporting
	stats := api.Group("/stats", authn, admin)
	stats.GET("/books", h.bookStats)
	stats.GET("/rentals", h.rentalStats)

	// Accounts
	users := api.Group("/users", authn)
	users.GET("/me", h.me)
	users.PUT("/me", h.updateMe)
	users.GET("", admin, h.listUsers)
	users.POST("", admin, h.createUser)

	// Profile paths kept for existing web clients
	legacy := api.Group("/auth", authn)
	legacy.GET("/me", h.me)
	legacy.PUT("/updateprofile", h.updateMe)
}
