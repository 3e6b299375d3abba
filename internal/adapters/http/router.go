package http

import (
	"net/http"
	"time"

	"github.com/atvirokodosprendimai/gprcatalog/internal/application"
	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
	"github.com/atvirokodosprendimai/gprcatalog/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultMaxUploadBytes = 32 << 20

type Options struct {
	// MaxUploadBytes caps request bodies of upload and import endpoints.
	MaxUploadBytes int64
	// Metrics, when set, is served at /metrics.
	Metrics http.Handler
	// RequestTimeout bounds every request; zero disables it.
	RequestTimeout time.Duration
}

type Handler struct {
	service        *application.CatalogService
	maxUploadBytes int64
}

func NewRouter(service *application.CatalogService, opts Options) http.Handler {
	h := &Handler{service: service, maxUploadBytes: opts.MaxUploadBytes}
	if h.maxUploadBytes <= 0 {
		h.maxUploadBytes = defaultMaxUploadBytes
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware)
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/", h.handleIndex)
	r.Get("/health", h.handleHealth)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/", h.handleIndex)
		api.Get("/health", h.handleHealth)
		api.Get("/statistics", h.handleStatistics)
		api.Get("/search", h.handleSearch)
		api.Post("/bulk-upload", h.handleBulkUpload)
		api.Post("/import-csv", h.handleImportCSV)
		api.Post("/config/validate", h.handleValidateConfig)
		api.Get("/config/template", h.handleConfigTemplate)

		for _, kind := range domain.Kinds {
			api.Route("/"+kind.Path(), func(kr chi.Router) {
				kr.Get("/", h.handleList(kind))
				kr.Post("/", h.handleCreate(kind))
				kr.Get("/{id}", h.handleGet(kind))
				kr.Put("/{id}", h.handleUpdate(kind))
				kr.Patch("/{id}", h.handleUpdate(kind))
				kr.Delete("/{id}", h.handleDelete(kind))
			})
		}
	})

	return r
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	endpoints := map[string]string{
		"bulk_upload":     "/api/bulk-upload",
		"import_csv":      "/api/import-csv",
		"statistics":      "/api/statistics",
		"search":          "/api/search",
		"health":          "/api/health",
		"config_validate": "/api/config/validate",
		"config_template": "/api/config/template",
	}
	for _, kind := range domain.Kinds {
		endpoints[kind.String()] = "/api/" + kind.Path()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "GPR catalog API",
		"version":   "1.0.0",
		"endpoints": endpoints,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := h.service.Health(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":   health.Status,
			"database": health.Database,
			"error":    err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, health)
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Database statistics",
		"statistics": stats.Counts,
		"total":      stats.Total,
	})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
