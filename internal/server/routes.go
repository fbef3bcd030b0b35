package server

import (
	"net/http"
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ledgerkeep/ledgerkeep/internal/observability"
	"github.com/ledgerkeep/ledgerkeep/internal/server/handlers"
	servermw "github.com/ledgerkeep/ledgerkeep/internal/server/middleware"
)

const adminTokenEnv = "LEDGERKEEP_ADMIN_TOKEN"

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	// Standard health endpoints
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	// Version endpoint
	s.router.Get("/version", handlers.VersionHandler)

	// Metrics endpoint (in server package to access HandleError)
	s.router.Get("/metrics", MetricsHandler)

	s.registerAPIRoutes()

	// Admin signal endpoint (optional, requires LEDGERKEEP_ADMIN_TOKEN)
	s.registerAdminEndpoint()
}

// registerAPIRoutes mounts the authenticated application API.
func (s *Server) registerAPIRoutes() {
	auth := &handlers.AuthHandler{
		Orchestrator: s.deps.Orchestrator,
		Login:        s.deps.LoginLimiter,
	}
	sessions := &handlers.SessionsHandler{Registry: s.deps.Registry}
	finance := &handlers.FinanceHandler{Service: s.deps.Finance}

	s.router.Route("/api/v1", func(r chi.Router) {
		// Sign-in validates the principal itself; everything else goes
		// through the authentication middleware.
		r.Post("/auth/signin", auth.SignIn)

		r.Group(func(r chi.Router) {
			r.Use(servermw.Authenticate(s.deps.Identity))

			r.Post("/auth/signout", auth.SignOut)

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", sessions.List)
				r.Delete("/{sessionID}", sessions.Revoke)
				r.Post("/revoke-others", sessions.RevokeOthers)
				r.Post("/cleanup", sessions.Cleanup)
				r.Get("/suspicion", sessions.Suspicion)
			})

			registerCRUD(r, "/expenses",
				finance.ListExpenses, finance.CreateExpense,
				finance.UpdateExpense, finance.DeleteExpense)
			registerCRUD(r, "/incomes",
				finance.ListIncomes, finance.CreateIncome,
				finance.UpdateIncome, finance.DeleteIncome)
			registerCRUD(r, "/installments",
				finance.ListInstallments, finance.CreateInstallment,
				finance.UpdateInstallment, finance.DeleteInstallment)
			registerCRUD(r, "/savings-goals",
				finance.ListSavingsGoals, finance.CreateSavingsGoal,
				finance.UpdateSavingsGoal, finance.DeleteSavingsGoal)
		})
	})
}

func registerCRUD(r chi.Router, path string, list, create, update, del http.HandlerFunc) {
	r.Route(path, func(r chi.Router) {
		r.Get("/", list)
		r.Post("/", create)
		r.Put("/{id}", update)
		r.Delete("/{id}", del)
	})
}

// registerAdminEndpoint optionally registers the admin signal endpoint
func (s *Server) registerAdminEndpoint() {
	adminToken := os.Getenv(adminTokenEnv)
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + adminTokenEnv + " set)")
		}
		return
	}

	// HTTP signal handler with bearer token auth and rate limiting
	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,  // requests per minute
		RateBurst: 5,   // burst size
		Manager:   nil, // use default global manager
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
