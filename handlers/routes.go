package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apimw "movierockstar/api"
	"movierockstar/metrics"
)

// RegisterRoutes wires every page, API, and operational endpoint onto the
// router. The JSON API subtree additionally carries per-IP rate limiting.
func RegisterRoutes(r *mux.Router, pages *PagesHandler, apiHandler *APIHandler, health *HealthHandler, m *metrics.Metrics, limiter *apimw.IPRateLimiter) {
	r.Use(apimw.RequestIDMiddleware())
	r.Use(apimw.RecoverMiddleware())

	// HTML pages
	r.HandleFunc("/", pages.Home).Methods(http.MethodGet)
	r.HandleFunc("/movie/{id}", pages.MovieDetail).Methods(http.MethodGet)
	r.HandleFunc("/tv/{id}", pages.TVDetail).Methods(http.MethodGet)
	r.HandleFunc("/search", pages.SearchPage).Methods(http.MethodGet)
	r.HandleFunc("/watch/{kind:movie|tv}/{id}", pages.WatchPage).Methods(http.MethodGet)

	// JSON API
	api := r.PathPrefix("/api").Subrouter()
	if limiter != nil {
		api.Use(apimw.RateLimitMiddleware(limiter))
	}
	api.HandleFunc("/trending", apiHandler.Trending).Methods(http.MethodGet)
	api.HandleFunc("/search", apiHandler.Search).Methods(http.MethodGet)
	api.HandleFunc("/movies/popular", apiHandler.PopularMovies).Methods(http.MethodGet)
	api.HandleFunc("/movies/top_rated", apiHandler.TopRatedMovies).Methods(http.MethodGet)
	api.HandleFunc("/tv/popular", apiHandler.PopularTV).Methods(http.MethodGet)
	api.HandleFunc("/tv/top_rated", apiHandler.TopRatedTV).Methods(http.MethodGet)
	api.HandleFunc("/movie/{id:[0-9]+}", apiHandler.MovieDetails).Methods(http.MethodGet)
	api.HandleFunc("/tv/{id:[0-9]+}", apiHandler.TVDetails).Methods(http.MethodGet)
	api.HandleFunc("/watch/{kind:movie|tv}/{id}/links", apiHandler.WatchLinks).Methods(http.MethodGet)

	// Operational endpoints
	r.HandleFunc("/health", health.Health).Methods(http.MethodGet)
	if m != nil {
		r.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", NewStaticHandler())).Methods(http.MethodGet)
}
