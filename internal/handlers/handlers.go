package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"swapshelf/internal/middleware"
	"swapshelf/internal/models"
	"swapshelf/internal/queue"
	"swapshelf/internal/service"
)

// PendingLister reads the moderation review feed.
type PendingLister interface {
	List(ctx context.Context, limit int64) ([]queue.PendingItem, error)
}

// HealthCheck pings one backing service.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Deps struct {
	Log            zerolog.Logger
	Environment    string
	JWTSecret      string
	MaxUploadBytes int64
	Listings       *service.ListingService
	Transfers      *service.TransferService
	Catalog        *service.CatalogService
	Pending        PendingLister
	HealthChecks   []HealthCheck
}

type HandlerSet struct {
	log            zerolog.Logger
	environment    string
	jwtSecret      string
	maxUploadBytes int64
	listings       *service.ListingService
	transfers      *service.TransferService
	catalog        *service.CatalogService
	pending        PendingLister
	checks         []HealthCheck
}

func NewHandlerSet(deps Deps) HandlerSet {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 64 << 20
	}
	return HandlerSet{
		log:            deps.Log,
		environment:    deps.Environment,
		jwtSecret:      deps.JWTSecret,
		maxUploadBytes: deps.MaxUploadBytes,
		listings:       deps.Listings,
		transfers:      deps.Transfers,
		catalog:        deps.Catalog,
		pending:        deps.Pending,
		checks:         deps.HealthChecks,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		v1.GET("/listings", h.ListListings)
		v1.GET("/listings/:id", h.GetListing)
	}

	protected := v1.Group("")
	protected.Use(middleware.Auth(h.jwtSecret, h.catalog))
	{
		protected.POST("/listings", h.CreateListing)
		protected.POST("/transfers", h.CreateTransfer)
		protected.GET("/me", h.Me)
		protected.GET("/me/transactions", h.MyTransactions)
	}

	admin := v1.Group("/admin")
	admin.Use(
		middleware.Auth(h.jwtSecret, h.catalog),
		middleware.RequireRoles(models.UserRoleAdmin),
	)
	{
		admin.POST("/users", h.AdminCreateUser)
		admin.GET("/flagged", h.AdminListFlagged)
		admin.GET("/moderation/pending", h.AdminListPending)
	}
}
