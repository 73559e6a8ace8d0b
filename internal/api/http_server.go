package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"hoteldesk/internal/config"
	"hoteldesk/internal/domain"
	"hoteldesk/internal/export"
	"hoteldesk/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

const (
	permReadBookings  = "read:bookings"
	permWriteBookings = "write:bookings"
	permWaiveFines    = "write:fines"
	permReadReports   = "read:reports"
	permReadInventory = "read:inventory"
	permWriteStock    = "write:inventory"
	permReadOrders    = "read:orders"
	permWriteOrders   = "write:orders"
	permAdmin         = "admin"
)

// SyncAdmin controls the Sheets sync queue.
type SyncAdmin interface {
	EnqueueResync(ctx context.Context) error
	RequeueFailed(ctx context.Context) (int64, error)
}

// Deps are the collaborators behind the HTTP API. Sync, Limits and Ready may be nil.
type Deps struct {
	Bookings    *service.BookingService
	Inspections *service.InspectionService
	Inventory   *service.InventoryService
	Orders      *service.OrderService
	Categories  *service.CategoryService
	Exporter    *export.Exporter
	Sync        SyncAdmin
	Limits      domain.RateLimitStore
	Ready       Pinger
	Location    *time.Location
}

// HTTPServer exposes the booking API over HTTP.
type HTTPServer struct {
	cfg    config.APIConfig
	deps   Deps
	server *http.Server
	auth   *HTTPAuth
	limits *tieredLimiter
	loc    *time.Location
	logger *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, limits config.RateLimitsConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "http").Logger()

	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}

	srv := &HTTPServer{
		cfg:    cfg,
		deps:   deps,
		auth:   NewHTTPAuth(cfg),
		limits: &tieredLimiter{cfg: limits, store: deps.Limits, logger: &l},
		loc:    loc,
		logger: &l,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(observe(s.logger))
	r.Use(middleware.Recoverer)
	if len(s.cfg.HTTP.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.HTTP.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader, s.auth.keys.keyHeader, s.auth.keys.extraHeader},
			ExposedHeaders: []string{requestIDHeader, "Retry-After"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	read := s.auth.Require(permReadBookings)
	write := s.auth.Require(permWriteBookings)
	strict := s.limits.Limit(tierStrict)
	dashboard := s.limits.Limit(tierDashboard)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.limits.Limit(tierAPI))

		r.Route("/bookings", func(r chi.Router) {
			r.With(read, dashboard).Get("/", s.handleListBookings)
			r.With(write, strict).Post("/", s.handleCreateBooking)
			r.With(s.auth.Require(permReadReports), strict).Get("/export.xlsx", s.handleExportBookings)
			r.With(read).Get("/by-number/{bookingNo}", s.handleGetBookingByNo)

			r.Route("/{id}", func(r chi.Router) {
				r.With(read).Get("/", s.handleGetBooking)
				r.With(write).Patch("/", s.handleUpdateBooking)
				r.With(write, strict).Delete("/", s.handleDeleteBooking)
				r.With(write).Post("/check-in", s.handleCheckIn)
				r.With(write, strict).Post("/check-out", s.handleCheckOut)
				r.With(write).Post("/cancel", s.handleCancel)
				r.With(s.auth.Require(permWaiveFines), strict).Post("/waive-fine", s.handleWaiveFine)
				r.With(read, dashboard).Get("/inspections", s.handleListInspections)
				r.With(read, s.auth.Require(permReadOrders), dashboard).Get("/orders", s.handleListBookingOrders)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			admin := s.auth.Require(permAdmin)
			r.With(read).Get("/", s.handleListCategories)
			r.With(admin).Post("/", s.handleCreateCategory)
			r.With(read).Get("/{id}", s.handleGetCategory)
			r.With(admin).Patch("/{id}", s.handleUpdateCategory)
			r.With(admin).Delete("/{id}", s.handleDeleteCategory)
		})

		r.Route("/inventory", func(r chi.Router) {
			readStock := s.auth.Require(permReadInventory)
			writeStock := s.auth.Require(permWriteStock)
			r.With(readStock, dashboard).Get("/", s.handleListItems)
			r.With(writeStock).Post("/", s.handleCreateItem)
			r.With(readStock, dashboard).Get("/low-stock", s.handleLowStock)
			r.With(readStock, dashboard).Get("/movements", s.handleListMovements)

			r.Route("/{id}", func(r chi.Router) {
				r.With(readStock).Get("/", s.handleGetItem)
				r.With(writeStock).Patch("/", s.handleUpdateItem)
				r.With(writeStock, strict).Delete("/", s.handleDeleteItem)
				r.With(writeStock).Post("/stock-in", s.handleStockIn)
				r.With(writeStock).Post("/stock-out", s.handleStockOut)
				r.With(writeStock).Post("/consume", s.handleConsume)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			readOrders := s.auth.Require(permReadOrders)
			writeOrders := s.auth.Require(permWriteOrders)
			r.With(readOrders, dashboard).Get("/", s.handleListOrders)
			r.With(writeOrders).Post("/", s.handleCreateOrder)
			r.With(writeOrders, strict).Post("/link-bookings", s.handleLinkOrders)
			r.With(readOrders).Get("/{id}", s.handleGetOrder)
			r.With(writeOrders).Patch("/{id}", s.handleUpdateOrder)
			r.With(writeOrders).Post("/{id}/status", s.handleOrderStatus)
		})

		r.Route("/inspections", func(r chi.Router) {
			r.With(write).Post("/", s.handleCreateInspection)
			r.With(read).Get("/{id}", s.handleGetInspection)
		})

		r.With(s.auth.Require(permReadReports), strict).Post("/exports", s.handleSaveExport)

		r.Route("/sync", func(r chi.Router) {
			r.Use(s.auth.Require(permAdmin))
			r.Post("/resync", s.handleResync)
			r.Post("/requeue", s.handleRequeue)
		})
	})

	return r
}

// Handler returns the routed handler with all middleware applied.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready.PingContext(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("readiness check failed")
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
