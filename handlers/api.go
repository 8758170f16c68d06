package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"movierockstar/models"
	"movierockstar/services/catalog"
)

type APIHandler struct {
	Catalog   catalogBrowser
	Streaming watchLinker
}

func NewAPIHandler(c catalogBrowser, s watchLinker) *APIHandler {
	return &APIHandler{Catalog: c, Streaming: s}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// documentStatus maps a catalog document to the HTTP status we answer with.
// Annotated upstream failures keep their status when it is a real HTTP code;
// transport-level failures surface as 502.
func documentStatus(doc catalog.Document) int {
	if !doc.Failed() {
		return http.StatusOK
	}
	if code := doc.StatusCode(); code >= 400 && code < 600 {
		return code
	}
	return http.StatusBadGateway
}

// Trending answers GET /api/trending?type=all&window=day.
func (h *APIHandler) Trending(w http.ResponseWriter, r *http.Request) {
	mediaType := strings.TrimSpace(r.URL.Query().Get("type"))
	window := strings.TrimSpace(r.URL.Query().Get("window"))
	results := h.Catalog.Trending(r.Context(), mediaType, window)
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Search answers GET /api/search?q=...&type=multi&page=1.
func (h *APIHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing query parameter: q"})
		return
	}
	mediaType := strings.TrimSpace(r.URL.Query().Get("type"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	doc := h.Catalog.Search(r.Context(), query, mediaType, page)
	writeJSON(w, documentStatus(doc), doc)
}

// MovieDetails answers GET /api/movie/{id}.
func (h *APIHandler) MovieDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	doc := h.Catalog.MovieDetails(r.Context(), id)
	writeJSON(w, documentStatus(doc), doc)
}

// TVDetails answers GET /api/tv/{id}.
func (h *APIHandler) TVDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	doc := h.Catalog.TVDetails(r.Context(), id)
	writeJSON(w, documentStatus(doc), doc)
}

// PopularMovies answers GET /api/movies/popular?page=1.
func (h *APIHandler) PopularMovies(w http.ResponseWriter, r *http.Request) {
	h.paged(w, r, h.Catalog.PopularMovies)
}

// TopRatedMovies answers GET /api/movies/top_rated?page=1.
func (h *APIHandler) TopRatedMovies(w http.ResponseWriter, r *http.Request) {
	h.paged(w, r, h.Catalog.TopRatedMovies)
}

// PopularTV answers GET /api/tv/popular?page=1.
func (h *APIHandler) PopularTV(w http.ResponseWriter, r *http.Request) {
	h.paged(w, r, h.Catalog.PopularTV)
}

// TopRatedTV answers GET /api/tv/top_rated?page=1.
func (h *APIHandler) TopRatedTV(w http.ResponseWriter, r *http.Request) {
	h.paged(w, r, h.Catalog.TopRatedTV)
}

func (h *APIHandler) paged(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, page int) []any) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	results := fetch(r.Context(), page)
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "page": pageShown(page)})
}

func pageShown(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// WatchLinks answers GET /api/watch/{kind}/{id}/links with the merged
// streaming bundle for a title.
func (h *APIHandler) WatchLinks(w http.ResponseWriter, r *http.Request) {
	kind := models.MediaKind(mux.Vars(r)["kind"])
	id, ok := pathID(r)
	if !kind.Valid() || !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid media type or id"})
		return
	}

	var doc catalog.Document
	if kind == models.MediaTV {
		doc = h.Catalog.TVDetails(r.Context(), id)
	} else {
		doc = h.Catalog.MovieDetails(r.Context(), id)
	}
	if doc.Failed() && doc.StatusCode() == http.StatusNotFound {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "title not found"})
		return
	}

	item := map[string]any(doc)
	title := displayTitle(item)
	year, _ := strconv.Atoi(releaseYear(item))
	bundle := h.Streaming.WatchBundle(r.Context(), kind, id, title, year)
	writeJSON(w, http.StatusOK, bundle)
}
