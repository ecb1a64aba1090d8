package handlers

import (
	"FleetStock/internal/auth"
	"FleetStock/internal/catalog"
	"FleetStock/internal/config"
	"FleetStock/internal/middleware"
	"FleetStock/internal/mirror"
	"FleetStock/internal/syncer"
	"FleetStock/internal/transfer"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	authService *auth.Service,
	catalogService *catalog.Service,
	engine *transfer.Engine,
	sync *syncer.Syncer,
	m *mirror.Mirror,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithAuth(config.AuthSecret))

	// Handlers
	authHandler := NewAuthHandler(authService, logger, config)
	inventoryHandler := NewInventoryHandler(m, sync, logger)
	categoryHandler := NewCategoryHandler(m, logger)
	transferHandler := NewTransferHandler(engine, sync, logger)
	adminHandler := NewAdminHandler(catalogService, authService, logger)

	// Session
	r.Post("/api/login", authHandler.Login)
	r.Post("/api/logout", authHandler.Logout)
	r.Post("/api/pin", authHandler.ChangePIN)

	// Inventory reads
	r.Get("/api/parts", inventoryHandler.Parts)
	r.Get("/api/parts/{id}", inventoryHandler.Part)
	r.Get("/api/alerts", inventoryHandler.Alerts)
	r.Get("/api/history", inventoryHandler.History)
	r.Get("/api/trucks", inventoryHandler.Trucks)
	r.Get("/api/technicians", inventoryHandler.Technicians)
	r.Post("/api/refresh", inventoryHandler.Refresh)

	// Category tree
	r.Get("/api/categories", categoryHandler.Roots)
	r.Get("/api/categories/{id}/children", categoryHandler.Children)
	r.Get("/api/categories/{id}/breadcrumb", categoryHandler.Breadcrumb)
	r.Get("/api/categories/{id}/parts", categoryHandler.Parts)

	// Stock movements
	r.Post("/api/transfers/load", transferHandler.Load)
	r.Post("/api/transfers/return", transferHandler.Return)
	r.Post("/api/transfers/transfer", transferHandler.Transfer)
	r.Post("/api/transfers/receive", transferHandler.Receive)
	r.Post("/api/transfers/use", transferHandler.UseOnJob)
	r.Get("/api/quickload", transferHandler.QuickLoadPlan)
	r.Post("/api/quickload", transferHandler.ApplyQuickLoad)

	// Catalog administration
	r.Post("/api/parts", adminHandler.AddPart)
	r.Post("/api/categories", adminHandler.SaveCategory)
	r.Delete("/api/categories/{id}", adminHandler.DeleteCategory)
	r.Post("/api/trucks", adminHandler.SaveTruck)
	r.Delete("/api/trucks/{id}", adminHandler.DeleteTruck)
	r.Post("/api/settings/seasons", adminHandler.SaveSeasons)
	r.Get("/api/users", adminHandler.Users)
	r.Post("/api/users", adminHandler.SaveUser)
	r.Delete("/api/users/{pin}", adminHandler.DeleteUser)

	return &Handler{Router: r}
}
