package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"readinglab-backend/internal/handlers"
	"readinglab-backend/internal/middleware"
	"readinglab-backend/internal/models"
	"readinglab-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	activityHandler *handlers.ActivityHandler,
	statsHandler *handlers.StatsHandler,
	sessionHandler *handlers.SessionHandler,
	adminHandler *handlers.AdminHandler,
	healthHandler *handlers.HealthHandler,
	wsHub *websocket.Hub,
	frontendURL string,
	activityPerMinute int,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Interaction rate limiter (per user)
	activityLimiter := middleware.NewRateLimiter(activityPerMinute, time.Minute)

	r.Get("/health", healthHandler.Health)

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Study Sign-in (disabled in production) ────
		if authHandler != nil {
			r.Route("/auth", func(r chi.Router) {
				r.Post("/login", authHandler.Login)

				r.Group(func(r chi.Router) {
					r.Use(jwtAuth.Middleware)
					r.Post("/logout", authHandler.Logout)
				})
			})
		}

		// ──── Activity Log ────
		r.Route("/activity", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.With(activityLimiter.Middleware).Post("/", activityHandler.Log)
			r.Get("/", activityHandler.List)
		})

		// ──── Reading Sessions ────
		r.Route("/sessions", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(activityLimiter.Middleware)
			r.Post("/", sessionHandler.Open)
			r.Post("/{id}/events", sessionHandler.RecordEvent)
			r.Put("/{id}/progress", sessionHandler.Progress)
			r.Post("/{id}/heartbeat", sessionHandler.Heartbeat)
			r.Post("/{id}/ask", sessionHandler.Ask)
			r.Post("/{id}/close", sessionHandler.Close)
		})

		// ──── Reading List ────
		r.Route("/materials", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", statsHandler.ReadingList)
		})

		// ──── Stats ────
		r.Route("/stats", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/me/progress", statsHandler.MyProgress)
			r.Get("/materials/{id}/read-state", statsHandler.ReadState)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Get("/dashboard", statsHandler.Dashboard)
				r.Get("/participants", statsHandler.Participants)
				r.Get("/materials/{id}", statsHandler.MaterialState)
			})
		})

		// ──── Admin ────
		r.Route("/admin", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(middleware.RequireRole(models.RoleAdmin))
			r.Get("/users", adminHandler.ListUsers)
			r.Post("/users", adminHandler.CreateUser)
			r.Get("/users/{id}", adminHandler.GetUser)
			r.Put("/users/{id}", adminHandler.UpdateUser)
			r.Delete("/users/{id}", adminHandler.DeleteUser)
			r.Get("/materials", adminHandler.ListMaterials)
			r.Post("/materials", adminHandler.CreateMaterial)
			r.Delete("/materials/{id}", adminHandler.DeleteMaterial)
			r.Post("/materials/{id}/assign", adminHandler.AssignMaterial)
			r.Get("/forms", adminHandler.ListForms)
			r.Post("/forms", adminHandler.CreateForm)
			r.Delete("/forms/{id}", adminHandler.DeleteForm)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
