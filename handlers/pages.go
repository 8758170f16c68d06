package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sourcegraph/conc/pool"

	"movierockstar/models"
	"movierockstar/services/catalog"
	"movierockstar/services/streaming"
)

const homeSectionSize = 10

// catalogBrowser is the slice of the catalog client the page handlers need.
type catalogBrowser interface {
	Trending(ctx context.Context, mediaType, timeWindow string) []any
	Search(ctx context.Context, query, mediaType string, page int) catalog.Document
	MovieDetails(ctx context.Context, movieID int64) catalog.Document
	TVDetails(ctx context.Context, tvID int64) catalog.Document
	PopularMovies(ctx context.Context, page int) []any
	TopRatedMovies(ctx context.Context, page int) []any
	PopularTV(ctx context.Context, page int) []any
	TopRatedTV(ctx context.Context, page int) []any
}

var _ catalogBrowser = (*catalog.Client)(nil)

// watchLinker resolves the streaming bundle for the watch page.
type watchLinker interface {
	WatchBundle(ctx context.Context, kind models.MediaKind, id int64, title string, year int) models.StreamingBundle
}

var _ watchLinker = (*streaming.Service)(nil)

type PagesHandler struct {
	Catalog   catalogBrowser
	Streaming watchLinker
}

func NewPagesHandler(c catalogBrowser, s watchLinker) *PagesHandler {
	return &PagesHandler{Catalog: c, Streaming: s}
}

// Home renders the landing page. The four sections are fetched concurrently
// and each degrades to an empty shelf on failure.
func (h *PagesHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var trending, popularMovies, topRatedMovies, popularTV []any
	p := pool.New()
	p.Go(func() { trending = capSection(h.Catalog.Trending(ctx, "all", "day")) })
	p.Go(func() { popularMovies = capSection(h.Catalog.PopularMovies(ctx, 1)) })
	p.Go(func() { topRatedMovies = capSection(h.Catalog.TopRatedMovies(ctx, 1)) })
	p.Go(func() { popularTV = capSection(h.Catalog.PopularTV(ctx, 1)) })
	p.Wait()

	renderPage(w, http.StatusOK, "index", map[string]any{
		"Title":          "Home",
		"Trending":       trending,
		"PopularMovies":  popularMovies,
		"TopRatedMovies": topRatedMovies,
		"PopularTV":      popularTV,
	})
}

// MovieDetail renders /movie/{id}.
func (h *PagesHandler) MovieDetail(w http.ResponseWriter, r *http.Request) {
	h.detail(w, r, models.MediaMovie)
}

// TVDetail renders /tv/{id}.
func (h *PagesHandler) TVDetail(w http.ResponseWriter, r *http.Request) {
	h.detail(w, r, models.MediaTV)
}

func (h *PagesHandler) detail(w http.ResponseWriter, r *http.Request, kind models.MediaKind) {
	id, ok := pathID(r)
	if !ok {
		renderErrorPage(w, http.StatusNotFound, "Title not found.")
		return
	}

	doc := h.details(r.Context(), kind, id)
	if doc.Failed() {
		if doc.StatusCode() == http.StatusNotFound {
			renderErrorPage(w, http.StatusNotFound, "Title not found.")
			return
		}
		renderErrorPage(w, http.StatusBadGateway, "The catalog is unavailable right now. Try again shortly.")
		return
	}

	renderPage(w, http.StatusOK, "detail", map[string]any{
		"Title": displayTitle(map[string]any(doc)),
		"Kind":  string(kind),
		"ID":    id,
		"Item":  map[string]any(doc),
	})
}

// SearchPage renders /search?q=...; an empty query bounces back home.
func (h *PagesHandler) SearchPage(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	doc := h.Catalog.Search(r.Context(), query, "multi", page)
	results := make([]any, 0, len(doc.Results()))
	for _, item := range doc.Results() {
		if mediaKind(item) != "" {
			results = append(results, item)
		}
	}

	renderPage(w, http.StatusOK, "search", map[string]any{
		"Title":   "Search: " + query,
		"Query":   query,
		"Results": results,
	})
}

// WatchPage renders /watch/{kind}/{id} with every streaming link we can
// assemble for the title.
func (h *PagesHandler) WatchPage(w http.ResponseWriter, r *http.Request) {
	kind := models.MediaKind(mux.Vars(r)["kind"])
	id, ok := pathID(r)
	if !kind.Valid() || !ok {
		renderErrorPage(w, http.StatusNotFound, "Title not found.")
		return
	}

	doc := h.details(r.Context(), kind, id)
	if doc.Failed() && doc.StatusCode() == http.StatusNotFound {
		renderErrorPage(w, http.StatusNotFound, "Title not found.")
		return
	}

	item := map[string]any(doc)
	title := displayTitle(item)
	year, _ := strconv.Atoi(releaseYear(item))
	bundle := h.Streaming.WatchBundle(r.Context(), kind, id, title, year)

	renderPage(w, http.StatusOK, "watch", map[string]any{
		"Title":  title,
		"Kind":   string(kind),
		"ID":     id,
		"Item":   item,
		"Bundle": bundle,
	})
}

func (h *PagesHandler) details(ctx context.Context, kind models.MediaKind, id int64) catalog.Document {
	if kind == models.MediaTV {
		return h.Catalog.TVDetails(ctx, id)
	}
	return h.Catalog.MovieDetails(ctx, id)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func capSection(items []any) []any {
	if len(items) > homeSectionSize {
		return items[:homeSectionSize]
	}
	return items
}
