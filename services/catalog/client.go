package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/text/language"

	"movierockstar/metrics"
)

// TMDB v3 client. Every fetch resolves to a document with a "results" list —
// empty and annotated on failure — so page rendering never branches on
// transport errors.

const (
	DefaultBaseURL = "https://api.themoviedb.org/3"
	ImageBaseURL   = "https://image.tmdb.org/t/p/"

	defaultMaxAttempts = 3
	attemptTimeout     = 12 * time.Second
	backoffBase        = 1 * time.Second
	backoffCap         = 30 * time.Second
	defaultRetryAfter  = 5 * time.Second
	maxBodyBytes       = 4 << 20
)

// Config holds catalog client construction parameters.
type Config struct {
	APIKey      string
	BaseURL     string // defaults to the public TMDB v3 API
	Language    string // BCP-47 tag, normalized; defaults to en-US
	MaxAttempts int    // per-fetch attempt budget, defaults to 3
	Metrics     *metrics.Metrics
}

// Client issues GET requests against the catalog API with retry/backoff.
// The underlying *http.Client is created lazily on first use; a duplicate
// created under a concurrent first use is benign, both are valid.
type Client struct {
	apiKey      string
	baseURL     string
	language    string
	maxAttempts int
	metrics     *metrics.Metrics

	httpc atomic.Pointer[http.Client]

	// injectable for tests
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// New constructs a catalog client. The API key may be empty; every fetch then
// degrades to an annotated 401 document.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	return &Client{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		language:    normalizeLanguage(cfg.Language),
		maxAttempts: cfg.MaxAttempts,
		metrics:     cfg.Metrics,
		sleep:       sleepContext,
		jitter:      rand.Float64,
	}
}

// IsConfigured reports whether an API key is present.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// normalizeLanguage canonicalizes a BCP-47-ish tag ("en", "pt-br", "en_US")
// into language-REGION form, defaulting the region to US and the whole tag to
// en-US when unparseable.
func normalizeLanguage(lang string) string {
	lang = strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if lang == "" {
		return "en-US"
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return "en-US"
	}
	base, _ := tag.Base()
	region, conf := tag.Region()
	if conf != language.Exact {
		return base.String() + "-US"
	}
	return base.String() + "-" + region.String()
}

// Document is a decoded catalog API response. Failure documents carry an
// empty "results" list plus status_code/status_message annotations.
type Document map[string]any

// Results returns the document's results list, never nil.
func (d Document) Results() []any {
	if raw, ok := d["results"].([]any); ok {
		return raw
	}
	return []any{}
}

// Failed reports whether the document is a failure annotation.
func (d Document) Failed() bool {
	_, ok := d["status_code"]
	return ok
}

// StatusCode returns the annotated status code, or 0 for success documents.
func (d Document) StatusCode() int {
	switch v := d["status_code"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func emptyDocument(status int, message string) Document {
	doc := Document{"results": []any{}}
	if status != 0 {
		doc["status_code"] = status
	}
	if message != "" {
		doc["status_message"] = message
	}
	return doc
}

// per-attempt outcome of the retry state machine
type attemptState int

const (
	stateSuccess attemptState = iota
	stateRetryAfter             // 429: sleep Retry-After, does not advance backoff
	stateBackoff                // 5xx/transport: exponential backoff
	stateFatal                  // non-retryable, resolved to an annotated document
)

type attemptResult struct {
	state      attemptState
	doc        Document
	retryAfter time.Duration
	status     int
	message    string
}

// Fetch issues a GET against baseURL/endpoint with the API key injected,
// retrying transient failures up to the client's attempt budget. It never
// returns an error: any terminal failure is an annotated empty document.
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values) Document {
	return c.FetchAttempts(ctx, endpoint, params, c.maxAttempts)
}

// FetchAttempts is Fetch with an explicit attempt budget (>= 1).
func (c *Client) FetchAttempts(ctx context.Context, endpoint string, params url.Values, maxAttempts int) Document {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	u := c.requestURL(endpoint, params)

	var last attemptResult
	backoffExp := 0
	for attempt := 0; attempt < maxAttempts; attempt++ {
		res := c.attempt(ctx, u)
		switch res.state {
		case stateSuccess, stateFatal:
			return res.doc
		case stateRetryAfter:
			last = res
			if attempt == maxAttempts-1 {
				continue
			}
			log.Printf("[catalog] rate limited, waiting %s endpoint=%s attempt=%d/%d", res.retryAfter, endpoint, attempt+1, maxAttempts)
			c.metrics.IncRetry("tmdb")
			if err := c.sleep(ctx, res.retryAfter); err != nil {
				return emptyDocument(0, "request canceled: "+err.Error())
			}
		case stateBackoff:
			last = res
			if attempt == maxAttempts-1 {
				continue
			}
			delay := c.backoffDelay(backoffExp)
			backoffExp++
			log.Printf("[catalog] transient failure (%s), retrying in %s endpoint=%s attempt=%d/%d", res.message, delay, endpoint, attempt+1, maxAttempts)
			c.metrics.IncRetry("tmdb")
			if err := c.sleep(ctx, delay); err != nil {
				return emptyDocument(0, "request canceled: "+err.Error())
			}
		}
	}

	c.metrics.IncDegraded("tmdb")
	status := last.status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	log.Printf("[catalog] giving up after %d attempts endpoint=%s status=%d: %s", maxAttempts, endpoint, status, last.message)
	return emptyDocument(status, fmt.Sprintf("request failed after %d attempts: %s", maxAttempts, last.message))
}

func (c *Client) attempt(ctx context.Context, u string) attemptResult {
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return attemptResult{state: stateFatal, doc: emptyDocument(http.StatusInternalServerError, "invalid request: "+err.Error())}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json;charset=utf-8")

	start := time.Now()
	resp, err := c.client().Do(req)
	c.metrics.ObserveDuration("tmdb", time.Since(start))
	if err != nil {
		c.metrics.IncRequest("tmdb", "transport")
		return attemptResult{state: stateBackoff, status: http.StatusInternalServerError, message: err.Error()}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

	switch {
	case resp.StatusCode == http.StatusOK:
		c.metrics.IncRequest("tmdb", "2xx")
		var doc Document
		if err := json.Unmarshal(body, &doc); err != nil || doc == nil {
			log.Printf("[catalog] malformed JSON body (%d bytes): %v", len(body), err)
			return attemptResult{state: stateSuccess, doc: Document{"results": []any{}}}
		}
		return attemptResult{state: stateSuccess, doc: doc}

	case resp.StatusCode == http.StatusNoContent:
		c.metrics.IncRequest("tmdb", "2xx")
		return attemptResult{state: stateSuccess, doc: Document{"results": []any{}}}

	case resp.StatusCode == http.StatusTooManyRequests:
		c.metrics.IncRequest("tmdb", "429")
		return attemptResult{
			state:      stateRetryAfter,
			retryAfter: retryAfterDelay(resp.Header.Get("Retry-After")),
			status:     resp.StatusCode,
			message:    "rate limited",
		}

	case resp.StatusCode >= http.StatusInternalServerError:
		c.metrics.IncRequest("tmdb", "5xx")
		return attemptResult{
			state:   stateBackoff,
			status:  resp.StatusCode,
			message: fmt.Sprintf("%s: %s", resp.Status, trimBody(body)),
		}

	default:
		c.metrics.IncRequest("tmdb", "4xx")
		return attemptResult{
			state: stateFatal,
			doc:   emptyDocument(resp.StatusCode, fmt.Sprintf("%s: %s", resp.Status, trimBody(body))),
		}
	}
}

// client returns the shared http.Client, creating it on first use. The
// compare-and-swap keeps creation idempotent without a lock.
func (c *Client) client() *http.Client {
	if hc := c.httpc.Load(); hc != nil {
		return hc
	}
	c.httpc.CompareAndSwap(nil, &http.Client{})
	return c.httpc.Load()
}

// SetHTTPClient replaces the shared transport (tests, custom proxies).
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpc.Store(hc)
}

func (c *Client) requestURL(endpoint string, params url.Values) string {
	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("api_key", c.apiKey)
	if c.language != "" && q.Get("language") == "" {
		q.Set("language", c.language)
	}
	return c.baseURL + "/" + strings.Trim(endpoint, "/") + "?" + q.Encode()
}

func (c *Client) backoffDelay(exp int) time.Duration {
	d := backoffBase*(1<<exp) + time.Duration(c.jitter()*float64(time.Second))
	if d > backoffCap {
		return backoffCap
	}
	return d
}

func retryAfterDelay(header string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func trimBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}

// Ping checks catalog reachability with a lightweight configuration fetch.
// Unlike Fetch it reports failure as an error, for startup and health checks.
func (c *Client) Ping(ctx context.Context) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL("configuration", nil), nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Accept", "application/json")
			resp, err := c.client().Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound {
				return retry.Unrecoverable(fmt.Errorf("catalog ping: %s", resp.Status))
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("catalog ping: %s", resp.Status)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}
