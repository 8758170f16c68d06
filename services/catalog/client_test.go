package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(baseURL string) (*Client, *[]time.Duration) {
	c := New(Config{APIKey: "test-key", BaseURL: baseURL, Language: "en-US"})
	sleeps := &[]time.Duration{}
	c.sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	c.jitter = func() float64 { return 0 }
	return c, sleeps
}

func TestFetchSuccessPassthrough(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Errorf("api_key not injected, query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"results":[{"id":1}]}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL)
	doc := c.Fetch(context.Background(), "/movie/popular/", nil)

	if doc.Failed() {
		t.Fatalf("unexpected failure document: %v", doc)
	}
	results := doc.Results()
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	entry, ok := results[0].(map[string]any)
	if !ok || entry["id"] != float64(1) {
		t.Fatalf("payload not passed through unchanged: %v", results[0])
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly 1 request, got %d", got)
	}
}

func TestFetchMalformedJSONDoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"results": [unterminated`))
	}))
	defer srv.Close()

	c, sleeps := newTestClient(srv.URL)
	doc := c.Fetch(context.Background(), "trending/movie/day", nil)

	if len(doc.Results()) != 0 {
		t.Fatalf("expected empty results, got %v", doc.Results())
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("malformed body must not be retried, got %d calls", calls)
	}
	if len(*sleeps) != 0 {
		t.Fatalf("expected no sleeps, got %v", *sleeps)
	}
}

func TestFetchNoContent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL)
	doc := c.Fetch(context.Background(), "movie/popular", nil)

	if doc.Failed() || len(doc.Results()) != 0 {
		t.Fatalf("expected clean empty document, got %v", doc)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("204 must not be retried, got %d calls", calls)
	}
}

func TestFetchServerErrorsRetryThenDegrade(t *testing.T) {
	for _, status := range []int{500, 502, 503, 504} {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			http.Error(w, "upstream sad", status)
		}))

		c, sleeps := newTestClient(srv.URL)
		doc := c.Fetch(context.Background(), "movie/popular", nil)
		srv.Close()

		if got := atomic.LoadInt32(&calls); got != 3 {
			t.Errorf("status %d: expected 3 attempts, got %d", status, got)
		}
		if len(*sleeps) != 2 {
			t.Errorf("status %d: expected 2 backoff sleeps, got %v", status, *sleeps)
		}
		if len(doc.Results()) != 0 {
			t.Errorf("status %d: expected empty results", status)
		}
		if doc.StatusCode() != status {
			t.Errorf("status %d: expected annotation, got %v", status, doc)
		}
	}
}

func TestFetchBackoffGrowsExponentially(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, sleeps := newTestClient(srv.URL)
	c.Fetch(context.Background(), "movie/popular", nil)

	// jitter pinned to 0: 1s then 2s
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if !reflect.DeepEqual(*sleeps, want) {
		t.Fatalf("expected backoff %v, got %v", want, *sleeps)
	}
}

func TestFetchTransportErrorRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c, sleeps := newTestClient(srv.URL)
	doc := c.Fetch(context.Background(), "movie/popular", nil)

	if len(*sleeps) != 2 {
		t.Fatalf("expected 2 backoff sleeps, got %v", *sleeps)
	}
	if len(doc.Results()) != 0 || !doc.Failed() {
		t.Fatalf("expected annotated empty document, got %v", doc)
	}
}

func TestFetchRateLimitHonorsRetryAfter(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"results":[{"id":42}]}`))
	}))
	defer srv.Close()

	c, sleeps := newTestClient(srv.URL)
	doc := c.Fetch(context.Background(), "movie/popular", nil)

	if doc.Failed() {
		t.Fatalf("expected success after rate limit, got %v", doc)
	}
	if want := []time.Duration{7 * time.Second}; !reflect.DeepEqual(*sleeps, want) {
		t.Fatalf("expected Retry-After sleep %v, got %v", want, *sleeps)
	}
}

func TestFetchRateLimitDefaultsToFiveSeconds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	c, sleeps := newTestClient(srv.URL)
	c.Fetch(context.Background(), "movie/popular", nil)

	if want := []time.Duration{5 * time.Second}; !reflect.DeepEqual(*sleeps, want) {
		t.Fatalf("expected default 5s sleep, got %v", *sleeps)
	}
}

func TestFetchRateLimitDoesNotAdvanceBackoff(t *testing.T) {
	// 500, 429, 500, 200: the 429 sleeps Retry-After and must not consume a
	// backoff step, so the second 500 still backs off with exponent 1.
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1, 3:
			http.Error(w, "boom", http.StatusInternalServerError)
		case 2:
			w.Header().Set("Retry-After", "9")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.Write([]byte(`{"results":[]}`))
		}
	}))
	defer srv.Close()

	c, sleeps := newTestClient(srv.URL)
	doc := c.FetchAttempts(context.Background(), "movie/popular", nil, 4)

	if doc.Failed() {
		t.Fatalf("expected eventual success, got %v", doc)
	}
	want := []time.Duration{1 * time.Second, 9 * time.Second, 2 * time.Second}
	if !reflect.DeepEqual(*sleeps, want) {
		t.Fatalf("expected sleeps %v, got %v", want, *sleeps)
	}
}

func TestFetchClientErrorDoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"status_message":"The resource you requested could not be found."}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c, sleeps := newTestClient(srv.URL)
	doc := c.Fetch(context.Background(), "movie/0", nil)

	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("4xx must not be retried, got %d calls", calls)
	}
	if len(*sleeps) != 0 {
		t.Fatalf("expected no sleeps, got %v", *sleeps)
	}
	if doc.StatusCode() != http.StatusNotFound || len(doc.Results()) != 0 {
		t.Fatalf("expected annotated 404 document, got %v", doc)
	}
}

func TestFetchIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"page":1,"results":[{"id":7,"title":"Heat"}]}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL)
	first := c.Fetch(context.Background(), "search/movie", nil)
	second := c.Fetch(context.Background(), "search/movie", nil)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical fetches diverged: %v vs %v", first, second)
	}
}

func TestFetchConcurrentCallsDoNotLeak(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// echo the caller's marker back so cross-call leakage is detectable
		w.Write([]byte(`{"results":[{"marker":"` + r.URL.Query().Get("marker") + `"}]}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key", BaseURL: srv.URL})

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			marker := string(rune('a' + i))
			doc := c.Fetch(context.Background(), "movie/popular", map[string][]string{"marker": {marker}})
			results := doc.Results()
			if len(results) != 1 {
				errs <- "missing results for marker " + marker
				return
			}
			entry := results[0].(map[string]any)
			if entry["marker"] != marker {
				errs <- "cross-call leakage: wanted " + marker
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}

func TestFetchCanceledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	c.jitter = func() float64 { return 0 }
	ctx, cancel := context.WithCancel(context.Background())
	c.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	doc := c.Fetch(ctx, "movie/popular", nil)
	if len(doc.Results()) != 0 {
		t.Fatalf("expected empty results on cancellation, got %v", doc)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := map[string]string{
		"":      "en-US",
		"en":    "en-US",
		"en_US": "en-US",
		"pt-br": "pt-BR",
		"fr-FR": "fr-FR",
		"es":    "es-US",
		"??":    "en-US",
	}
	for input, expect := range tests {
		if got := normalizeLanguage(input); got != expect {
			t.Fatalf("normalizeLanguage(%q) = %q, want %q", input, got, expect)
		}
	}
}

func TestRetryAfterDelay(t *testing.T) {
	if d := retryAfterDelay("7"); d != 7*time.Second {
		t.Fatalf("expected 7s, got %s", d)
	}
	if d := retryAfterDelay(""); d != 5*time.Second {
		t.Fatalf("expected default 5s for absent header, got %s", d)
	}
	if d := retryAfterDelay("soon"); d != 5*time.Second {
		t.Fatalf("expected default 5s for garbage header, got %s", d)
	}
	if d := retryAfterDelay("-3"); d != 5*time.Second {
		t.Fatalf("expected default 5s for negative header, got %s", d)
	}
}

func TestRequestURLTrimsSlashes(t *testing.T) {
	c := New(Config{APIKey: "k", BaseURL: "https://example.test/3/"})
	u := c.requestURL("/movie/550/", nil)
	if u != "https://example.test/3/movie/550?api_key=k&language=en-US" {
		t.Fatalf("unexpected url: %s", u)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"images":{}}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "k", BaseURL: srv.URL})
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer bad.Close()

	c = New(Config{APIKey: "k", BaseURL: bad.URL})
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error for unauthorized key")
	}
}
