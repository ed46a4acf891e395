package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"outline-backend/infrastructure/di"
	"outline-backend/interfaces/http/rest/handlers"
	"outline-backend/interfaces/http/rest/middleware"
)

// NewRouter builds the HTTP API. Everything under /api/v2 requires a
// bearer token (or the development bypass when no JWT secret is set).
func NewRouter(container *di.Container) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	if container.Config.EnableTracing {
		r.Use(middleware.Tracing(container.Tracer))
	}
	if container.Config.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   container.Config.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", healthCheck)
	r.Get("/ready", healthCheck)

	noteHandler := handlers.NewNoteHandler(container.CommandBus, container.Registry, container.Logger)
	outlineHandler := handlers.NewOutlineHandler(container.CommandBus, container.QueryBus, container.Registry, container.Logger)

	r.Route("/api/v2", func(api chi.Router) {
		api.Use(middleware.Authenticate(container.JWTValidator, container.Logger))
		api.Use(middleware.Logger(container.Logger))

		api.Get("/projects", outlineHandler.ListProjects)

		api.Route("/projects/{projectID}", func(p chi.Router) {
			p.Delete("/", outlineHandler.DeleteProject)
			p.Get("/outline", outlineHandler.GetOutline)
			p.Post("/save", outlineHandler.Save)
			p.Post("/load", outlineHandler.Load)
			p.Get("/export", outlineHandler.Export)
			p.Post("/import", outlineHandler.Import)

			p.Post("/undo", outlineHandler.Undo)
			p.Get("/undo", outlineHandler.UndoStatus)
			p.Post("/expansion", outlineHandler.SetExpansion)

			p.Post("/drag-session", outlineHandler.BeginDrag)
			p.Delete("/drag-session", outlineHandler.EndDrag)

			p.Post("/notes", noteHandler.AddNote)
			p.Route("/notes/{noteID}", func(n chi.Router) {
				n.Patch("/", noteHandler.UpdateNote)
				n.Delete("/", noteHandler.DeleteNote)
				n.Post("/move", noteHandler.MoveNote)
				n.Post("/select", noteHandler.SelectNote)
				n.Post("/toggle", noteHandler.ToggleExpanded)
			})
		})
	})

	return r
}

// healthCheck responds to liveness and readiness probes
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
