package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/99minutos/shipment-legs/internal/api/handler"
	"github.com/99minutos/shipment-legs/internal/api/middleware"
	"github.com/99minutos/shipment-legs/internal/core/ports"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Shipments ports.ShipmentService
	Legs      ports.LegService
	Ledger    ports.LedgerService
	Proofs    ports.ProofService

	// Health lists the dependencies pinged by /health/ready.
	Health map[string]handler.Pinger

	JWTSecret     string
	MaxProofBytes int64
	Logger        zerolog.Logger

	// Registerer receives the HTTP request metrics; nil means the default
	// registry, which also serves /metrics.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "shipment_legs_http",
		Registerer: deps.Registerer,
	}))

	// --- Health probes and scraping (no auth required) ---
	healthHandler := handler.NewHealthHandler(deps.Health)
	e.GET("/health", healthHandler.Liveness)        // liveness: is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness: are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Authenticated API ---
	v1 := e.Group("/v1", middleware.Auth(deps.JWTSecret))
	staff := middleware.StaffOnly()

	shipmentHandler := handler.NewShipmentHandler(deps.Shipments)
	v1.POST("/shipments", shipmentHandler.Dispatch, staff)
	v1.GET("/shipments/:orderId", shipmentHandler.Get)

	legHandler := handler.NewLegHandler(deps.Legs)
	v1.GET("/legs", legHandler.List)
	v1.GET("/legs/by-tracking-code/:code", legHandler.GetByCode)
	v1.GET("/legs/by-short-code/:code", legHandler.GetByShortCode)
	v1.GET("/legs/:id", legHandler.Get)
	v1.POST("/legs/:id/verify", legHandler.Verify)
	v1.POST("/legs/:id/assign", legHandler.Assign, staff)
	v1.POST("/legs/:id/pickup", legHandler.Pickup)
	v1.POST("/legs/:id/transit", legHandler.Transit)
	v1.POST("/legs/:id/deliver", legHandler.Deliver)
	v1.POST("/legs/:id/return", legHandler.Return)
	v1.POST("/legs/:id/return/complete", legHandler.CompleteReturn)
	v1.POST("/legs/:id/cancel", legHandler.Cancel)

	proofHandler := handler.NewProofHandler(deps.Proofs, deps.MaxProofBytes)
	v1.POST("/legs/:id/proof", proofHandler.Upload)
	v1.POST("/legs/:id/proof/ref", proofHandler.Attach)
	v1.GET("/legs/:id/proof", proofHandler.List)

	ledgerHandler := handler.NewLedgerHandler(deps.Ledger)
	ledger := v1.Group("/couriers/:id/ledger")
	ledger.GET("/balance", ledgerHandler.Balance)
	ledger.POST("/deposits", ledgerHandler.Deposit)
	ledger.GET("/transactions", ledgerHandler.ListTransactions)
	ledger.POST("/entries", ledgerHandler.RecordEntry, staff)

	return e
}
