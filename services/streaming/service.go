package streaming

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
	"github.com/sourcegraph/conc/pool"

	"movierockstar/models"
	"movierockstar/services/catalog"
)

// Builds the watch-page view of a title: authoritative provider data from the
// catalog, best-effort AI suggestions layered on top, trailers for embedding.

// regionOrder is the precedence for provider regions; earlier regions win on
// duplicate providers.
var regionOrder = []string{"US", "GB", "CA", "IN"}

// providerDeepLinks maps catalog provider IDs to direct watch URLs keyed by
// the title's catalog ID. Everything else falls back to the catalog watch page.
var providerDeepLinks = map[int64]string{
	8:   "https://www.netflix.com/title/%d",                    // Netflix
	119: "https://www.primevideo.com/detail/%d",                // Amazon Prime
	337: "https://www.disneyplus.com/movies/%d",                // Disney+
	15:  "https://www.hulu.com/movie/%d",                       // Hulu
	384: "https://play.hbomax.com/feature/%d",                  // HBO Max
	350: "https://tv.apple.com/movie/%d",                       // Apple TV+
	3:   "https://play.google.com/store/movies/details?id=%d",  // Google Play
	7:   "https://www.vudu.com/content/movies/details/%d",      // Vudu
	68:  "https://www.microsoft.com/en-us/p/%d",                // Microsoft Store
}

// youtubeProviderID gets a search link instead; there is no per-title URL.
const youtubeProviderID = 192

type catalogClient interface {
	WatchProviders(ctx context.Context, kind models.MediaKind, id int64) catalog.Document
	Videos(ctx context.Context, kind models.MediaKind, id int64) []any
}

type linkSuggester interface {
	IsConfigured() bool
	StreamingLinks(ctx context.Context, title string, kind models.MediaKind, year int) []models.StreamingLink
}

// Service merges catalog provider data with AI-suggested links.
type Service struct {
	catalog catalogClient
	suggest linkSuggester // nil when enrichment is disabled
	regions []string
}

// NewService constructs the streaming service. suggest may be nil.
func NewService(c catalogClient, suggest linkSuggester, regions []string) *Service {
	if len(regions) == 0 {
		regions = regionOrder
	}
	return &Service{catalog: c, suggest: suggest, regions: regions}
}

// Links returns catalog-backed streaming links only (the JSON API path).
func (s *Service) Links(ctx context.Context, kind models.MediaKind, id int64) models.StreamingBundle {
	return s.catalogLinks(ctx, kind, id)
}

// WatchBundle assembles everything the watch page needs. Provider data, AI
// suggestions and embeds are fetched concurrently; each leg degrades to empty
// on its own failures. AI links are listed before catalog links; if nothing at
// all was found the bundle carries a single catalog watch-page link.
func (s *Service) WatchBundle(ctx context.Context, kind models.MediaKind, id int64, title string, year int) models.StreamingBundle {
	var (
		bundle  models.StreamingBundle
		embeds  []models.VideoEmbed
		aiLinks []models.StreamingLink
	)

	p := pool.New()
	p.Go(func() { bundle = s.catalogLinks(ctx, kind, id) })
	p.Go(func() { embeds = s.Embeds(ctx, kind, id) })
	if s.suggest != nil && s.suggest.IsConfigured() && strings.TrimSpace(title) != "" {
		p.Go(func() { aiLinks = s.suggest.StreamingLinks(ctx, title, kind, year) })
	}
	p.Wait()

	for i := range aiLinks {
		if aiLinks[i].LogoURL == "" {
			aiLinks[i].LogoURL = logoPath(aiLinks[i].Provider)
		}
	}
	bundle = prependLinks(bundle, aiLinks)
	bundle.Embeds = embeds

	if bundle.Empty() {
		bundle.Stream = []models.StreamingLink{{
			Provider: "TMDB",
			URL:      watchPageURL(kind, id),
			Kind:     "stream",
			Source:   "catalog",
		}}
	}
	return bundle
}

// Embeds returns YouTube-hosted trailers/teasers for a title.
func (s *Service) Embeds(ctx context.Context, kind models.MediaKind, id int64) []models.VideoEmbed {
	var embeds []models.VideoEmbed
	for _, raw := range s.catalog.Videos(ctx, kind, id) {
		video, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if stringField(video, "site") != "YouTube" {
			continue
		}
		key := stringField(video, "key")
		if key == "" {
			continue
		}
		name := stringField(video, "name")
		if name == "" {
			name = "Video"
		}
		videoType := stringField(video, "type")
		if videoType == "" {
			videoType = "Trailer"
		}
		embeds = append(embeds, models.VideoEmbed{
			Name: name,
			Key:  key,
			Type: videoType,
			URL:  "https://www.youtube.com/embed/" + key,
		})
	}
	return embeds
}

// catalogLinks flattens the per-region provider document into buckets,
// deduplicating by provider name with region precedence.
func (s *Service) catalogLinks(ctx context.Context, kind models.MediaKind, id int64) models.StreamingBundle {
	doc := s.catalog.WatchProviders(ctx, kind, id)
	regions, ok := doc["results"].(map[string]any)
	if !ok {
		return models.StreamingBundle{}
	}

	var bundle models.StreamingBundle
	seen := map[string]bool{}
	for _, region := range s.regions {
		regionData, ok := regions[region].(map[string]any)
		if !ok {
			continue
		}
		for bucketName, kindLabel := range map[string]string{"flatrate": "stream", "rent": "rent", "buy": "buy"} {
			entries, ok := regionData[bucketName].([]any)
			if !ok {
				continue
			}
			for _, raw := range entries {
				provider, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				name := stringField(provider, "provider_name")
				if name == "" {
					name = "Unknown"
				}
				dedupeKey := kindLabel + "|" + name
				if seen[dedupeKey] {
					continue
				}
				seen[dedupeKey] = true

				link := models.StreamingLink{
					Provider: name,
					URL:      deepLink(intField(provider, "provider_id"), kind, id, name),
					Kind:     kindLabel,
					Source:   "catalog",
				}
				if logo := stringField(provider, "logo_path"); logo != "" {
					link.LogoURL = catalog.ImageBaseURL + "w92" + logo
				}
				switch kindLabel {
				case "stream":
					link.Price = "Included with subscription"
					bundle.Stream = append(bundle.Stream, link)
				case "rent":
					bundle.Rent = append(bundle.Rent, link)
				case "buy":
					bundle.Buy = append(bundle.Buy, link)
				}
			}
		}
	}
	return bundle
}

func prependLinks(bundle models.StreamingBundle, links []models.StreamingLink) models.StreamingBundle {
	for i := len(links) - 1; i >= 0; i-- {
		link := links[i]
		switch link.Kind {
		case "rent":
			bundle.Rent = append([]models.StreamingLink{link}, bundle.Rent...)
		case "buy":
			bundle.Buy = append([]models.StreamingLink{link}, bundle.Buy...)
		default:
			bundle.Stream = append([]models.StreamingLink{link}, bundle.Stream...)
		}
	}
	return bundle
}

// deepLink returns a direct provider URL when the provider is in the known
// table, otherwise the catalog's own watch page for the title.
func deepLink(providerID int64, kind models.MediaKind, id int64, title string) string {
	if providerID == youtubeProviderID {
		return "https://www.youtube.com/results?search_query=" + url.QueryEscape(title)
	}
	if tmpl, ok := providerDeepLinks[providerID]; ok {
		return fmt.Sprintf(tmpl, id)
	}
	return watchPageURL(kind, id)
}

func watchPageURL(kind models.MediaKind, id int64) string {
	return fmt.Sprintf("https://www.themoviedb.org/%s/%d/watch", kind, id)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9-]+`)

// logoPath maps a provider name to a bundled logo asset path.
func logoPath(provider string) string {
	slug := unidecode.Unidecode(strings.ToLower(strings.TrimSpace(provider)))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = nonSlug.ReplaceAllString(slug, "")
	if slug == "" {
		return "/static/images/no-logo.png"
	}
	return "/static/images/" + slug + ".png"
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	}
	return 0
}
