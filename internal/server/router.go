package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ladlehq/ladle/internal/api"
	"github.com/ladlehq/ladle/internal/api/handlers"
	"github.com/ladlehq/ladle/internal/api/middleware"
)

type RouterConfig struct {
	SearchHandler  *handlers.SearchHandler
	StatsHandler   *handlers.StatsHandler
	RecipeHandler  *handlers.RecipeHandler
	ProjectHandler *handlers.ProjectHandler
	PhotoHandler   *handlers.PhotoHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/search", cfg.SearchHandler.Search)
	r.Get("/documents/stats", cfg.StatsHandler.Get)

	r.Route("/recipes", func(r chi.Router) {
		r.Post("/", cfg.RecipeHandler.Create)
		r.Get("/", cfg.RecipeHandler.List)
		r.Get("/{id}", cfg.RecipeHandler.Get)
		r.Put("/{id}", cfg.RecipeHandler.Update)
		r.Delete("/{id}", cfg.RecipeHandler.Delete)
		r.Get("/{id}/versions", cfg.RecipeHandler.ListVersions)
		r.Get("/{id}/document", cfg.RecipeHandler.GetDocument)

		r.Post("/{id}/photo/init", cfg.PhotoHandler.InitUpload)
		r.Post("/{id}/photo/confirm", cfg.PhotoHandler.ConfirmUpload)
		r.Get("/{id}/photo", cfg.PhotoHandler.GetURL)
	})

	r.Delete("/versions/{versionID}", cfg.RecipeHandler.DeleteVersion)

	r.Route("/projects", func(r chi.Router) {
		r.Post("/", cfg.ProjectHandler.Create)
		r.Get("/", cfg.ProjectHandler.List)
		r.Get("/{id}", cfg.ProjectHandler.Get)
		r.Delete("/{id}", cfg.ProjectHandler.Delete)
	})

	return r
}
