package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"movierockstar/metrics"
	"movierockstar/models"
	"movierockstar/utils"
)

// Best-effort streaming-link suggestions from an LLM completion. One shot, no
// retry: a failure here is never allowed to break the page that asked.

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-3.5-turbo"

	requestTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20
)

// Config holds provider construction parameters.
type Config struct {
	APIKey  string // empty disables the provider entirely
	BaseURL string
	Model   string
	Metrics *metrics.Metrics
}

// Provider wraps a single-shot chat completion call. The returned links are
// text completions, not verified availability data.
type Provider struct {
	apiKey  string
	baseURL string
	model   string
	metrics *metrics.Metrics
	httpc   *http.Client
}

// New constructs a provider. A missing API key yields a disabled provider
// that always returns no links.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &Provider{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		metrics: cfg.Metrics,
		httpc:   &http.Client{Timeout: requestTimeout},
	}
}

// IsConfigured reports whether an API key is present.
func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// suggestedLink is the JSON schema the prompt asks the model to emit.
type suggestedLink struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
	Type     string `json:"type"`    // "subscription" | "rent" | "buy"
	Price    string `json:"price"`   // e.g. "Included", "$3.99"
	Quality  string `json:"quality"` // e.g. "HD", "4K"
}

// StreamingLinks asks the model where a title can be watched. Any failure —
// transport, non-2xx, malformed or non-array output — degrades to an empty
// slice; this method never returns an error.
func (p *Provider) StreamingLinks(ctx context.Context, title string, kind models.MediaKind, year int) []models.StreamingLink {
	if !p.IsConfigured() || strings.TrimSpace(title) == "" {
		return nil
	}

	text, err := p.complete(ctx, buildPrompt(title, kind, year))
	if err != nil {
		log.Printf("[recommend] completion failed title=%q: %v", title, err)
		p.metrics.IncDegraded("openai")
		return nil
	}

	suggestions, err := parseLinks(text)
	if err != nil {
		log.Printf("[recommend] unparseable completion title=%q: %v", title, err)
		p.metrics.IncDegraded("openai")
		return nil
	}

	links := make([]models.StreamingLink, 0, len(suggestions))
	for _, s := range suggestions {
		if strings.TrimSpace(s.URL) == "" {
			continue
		}
		cleanURL, err := utils.SanitizeLinkURL(s.URL)
		if err != nil {
			log.Printf("[recommend] dropping suggested link provider=%q: %v", s.Provider, err)
			continue
		}
		links = append(links, models.StreamingLink{
			Provider: s.Provider,
			URL:      cleanURL,
			Kind:     linkKind(s.Type),
			Price:    s.Price,
			Quality:  s.Quality,
			Source:   "ai",
		})
	}
	return links
}

func buildPrompt(title string, kind models.MediaKind, year int) string {
	kindLabel := "Movie"
	if kind == models.MediaTV {
		kindLabel = "TV Show"
	}
	yearLine := ""
	if year > 0 {
		yearLine = fmt.Sprintf("Year: %d\n", year)
	}
	return fmt.Sprintf(`You are a streaming platform expert. For the following content, provide direct streaming links from legitimate sources. Only include official streaming platforms.

Title: %s
Type: %s
%s
Provide a list of streaming platforms where this content is available.
For each platform, include:
- Platform name (e.g., Netflix, Amazon Prime, Disney+)
- Direct URL to watch the content (if possible)
- Whether it's included with subscription, available to rent, or purchase
- Price if not included with subscription
- Video quality (SD, HD, 4K, HDR, etc.)

Respond with ONLY a JSON array of objects with these keys, no other text:
- "provider": platform name
- "url": direct watch URL
- "type": "subscription", "rent" or "buy"
- "price": e.g. "Included", "$3.99", "Not available"
- "quality": e.g. "HD", "4K", "HDR"`, title, kindLabel, yearLine)
}

// complete issues the single chat completion request and returns the raw
// assistant text.
func (p *Provider) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a helpful assistant that provides direct streaming links for movies and TV shows."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	start := time.Now()
	resp, err := p.httpc.Do(req)
	p.metrics.ObserveDuration("openai", time.Since(start))
	if err != nil {
		p.metrics.IncRequest("openai", "transport")
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.metrics.IncRequest("openai", statusClass(resp.StatusCode))
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("completion API %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	p.metrics.IncRequest("openai", "2xx")

	var cr chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&cr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if cr.Error != nil {
		return "", fmt.Errorf("completion API error: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return cr.Choices[0].Message.Content, nil
}

// parseLinks strips markdown code fences and parses the remainder as a JSON
// array of suggested links.
func parseLinks(text string) ([]suggestedLink, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var links []suggestedLink
	if err := json.Unmarshal([]byte(cleaned), &links); err != nil {
		return nil, err
	}
	return links, nil
}

func linkKind(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "rent":
		return "rent"
	case "buy", "purchase":
		return "buy"
	default:
		// "subscription" and anything unrecognized count as streaming
		return "stream"
	}
}

func statusClass(code int) string {
	switch {
	case code == http.StatusTooManyRequests:
		return "429"
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
