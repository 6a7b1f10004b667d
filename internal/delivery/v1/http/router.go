package http

import (
	"github.com/DRSN-tech/finsmart-search/internal/metrics"
	"github.com/DRSN-tech/finsmart-search/internal/usecase"
	"github.com/DRSN-tech/finsmart-search/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(searchUC usecase.SearchUC, maxFileSize int64) {
	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.Recoverer)
	r.router.Use(metrics.Middleware())

	r.router.Get("/healthz", healthz)
	r.router.Handle("/metrics", promhttp.Handler())

	searchHandler := NewSearchHandler(searchUC, maxFileSize, r.logger)

	// Старый путь без версии оставлен для существующих клиентов
	r.router.Post("/search_multimodal", searchHandler.searchMultimodal)

	r.router.Route("/api/v1", func(v1 chi.Router) {
		registerSearchRoutes(v1, searchHandler)
	})
}

func registerSearchRoutes(router chi.Router, searchHandler *SearchHandler) {
	router.Post("/search_multimodal", searchHandler.searchMultimodal)
}
