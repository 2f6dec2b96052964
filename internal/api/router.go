package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/jiralike-api/internal/api/middleware"
)

// RouterDeps holds what NewRouter wires into routes.
type RouterDeps struct {
	Auth           *AuthHandler
	Tasks          *TaskHandler
	AuthMiddleware *middleware.AuthMiddleware
	Logger         *slog.Logger
}

// NewRouter creates the application router: health check at /health and the
// JSON API under /api. Reads are public; mutations and file access require a
// bearer token.
func NewRouter(deps RouterDeps) http.Handler {
	if deps.Auth == nil || deps.Tasks == nil || deps.AuthMiddleware == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("router dependencies cannot be nil")
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Trace(log))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", deps.Auth.Register)
		r.Post("/auth/login", deps.Auth.Login)

		r.Get("/tasks", deps.Tasks.ListTasks)
		r.Get("/tasks/{id}", deps.Tasks.GetTask)
		r.Get("/tasks/{id}/comments", deps.Tasks.ListComments)

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.Authenticate)

			r.Post("/tasks", deps.Tasks.CreateTask)
			r.Delete("/tasks/{id}", deps.Tasks.DeleteTask)
			r.Post("/tasks/{id}/comments", deps.Tasks.AddComment)
			r.Post("/tasks/{id}/close", deps.Tasks.CloseTask)
			r.Post("/tasks/{id}/file", deps.Tasks.UploadFile)
			r.Get("/tasks/{id}/file", deps.Tasks.DownloadFile)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
