// Package api wires the HTTP router, middleware and handlers.
package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/api/handlers"
	custommiddleware "github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/api/middleware"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/config"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(analysisService *service.AnalysisService, db *sql.DB, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(db)
			r.Get("/health", systemHandler.Health)
		})

		// Analysis namespace
		r.Route("/analysis", func(r chi.Router) {
			analysisHandler := handlers.NewAnalysisHandler(analysisService)
			r.Post("/", analysisHandler.Upload)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/status", analysisHandler.Status)
				r.Get("/result", analysisHandler.Result)
			})
		})
	})

	return r
}
