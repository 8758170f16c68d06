package handlers

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"

	"movierockstar/services/catalog"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = parseTemplates()

// parseTemplates builds one template set per page, each sharing layout.html.
func parseTemplates() map[string]*template.Template {
	funcMap := template.FuncMap{
		"posterURL":    posterURL,
		"backdropURL":  backdropURL,
		"displayTitle": displayTitle,
		"releaseYear":  releaseYear,
		"mediaKind":    mediaKind,
		"itemID":       itemID,
		"truncate":     truncateText,
		"str":          stringValue,
	}

	pages := []string{"index", "detail", "search", "watch", "error"}
	tmpls := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			panic(fmt.Sprintf("parse %s template: %v", page, err))
		}
		tmpls[page] = t
	}
	return tmpls
}

func renderPage(w http.ResponseWriter, status int, page string, data any) {
	t, ok := pageTemplates[page]
	if !ok {
		log.Printf("[handlers] unknown page template %q", page)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		log.Printf("[handlers] render %s: %v", page, err)
	}
}

func renderErrorPage(w http.ResponseWriter, status int, message string) {
	renderPage(w, status, "error", map[string]any{
		"Title":   fmt.Sprintf("%d", status),
		"Status":  status,
		"Message": message,
	})
}

// stringValue coerces a decoded JSON field to a string for templates.
func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func posterURL(v any) string {
	if path := stringValue(v); path != "" {
		return catalog.ImageBaseURL + "w342" + path
	}
	return "/static/images/no-logo.png"
}

func backdropURL(v any) string {
	if path := stringValue(v); path != "" {
		return catalog.ImageBaseURL + "w1280" + path
	}
	return ""
}

// displayTitle returns the human title of a catalog item, whichever of the
// movie and TV fields is present.
func displayTitle(item any) string {
	m, ok := item.(map[string]any)
	if !ok {
		return ""
	}
	if title := stringValue(m["title"]); title != "" {
		return title
	}
	return stringValue(m["name"])
}

func releaseYear(item any) string {
	m, ok := item.(map[string]any)
	if !ok {
		return ""
	}
	date := stringValue(m["release_date"])
	if date == "" {
		date = stringValue(m["first_air_date"])
	}
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

// mediaKind infers "movie" or "tv" from a catalog item, preferring the
// explicit media_type field multi-search results carry.
func mediaKind(item any) string {
	m, ok := item.(map[string]any)
	if !ok {
		return ""
	}
	switch stringValue(m["media_type"]) {
	case "movie":
		return "movie"
	case "tv":
		return "tv"
	case "person":
		return ""
	}
	if _, hasTitle := m["title"]; hasTitle {
		return "movie"
	}
	return "tv"
}

// itemID renders a catalog item's numeric id without the float notation
// encoding/json decodes numbers into.
func itemID(item any) string {
	m, ok := item.(map[string]any)
	if !ok {
		return ""
	}
	switch id := m["id"].(type) {
	case float64:
		return strconv.FormatInt(int64(id), 10)
	case int64:
		return strconv.FormatInt(id, 10)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}

func truncateText(v any, n int) string {
	s := stringValue(v)
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := s[:n]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "…"
}
