package handlers

import "testing"

func TestItemIDFormatsLargeNumbers(t *testing.T) {
	tests := []struct {
		item map[string]any
		want string
	}{
		{map[string]any{"id": float64(550)}, "550"},
		// json numbers above 1e6 must not render in float notation
		{map[string]any{"id": float64(1156593)}, "1156593"},
		{map[string]any{"id": int64(42)}, "42"},
		{map[string]any{}, ""},
	}
	for _, tt := range tests {
		if got := itemID(tt.item); got != tt.want {
			t.Errorf("itemID(%v) = %q, want %q", tt.item, got, tt.want)
		}
	}
}

func TestMediaKindInference(t *testing.T) {
	tests := []struct {
		item map[string]any
		want string
	}{
		{map[string]any{"media_type": "movie"}, "movie"},
		{map[string]any{"media_type": "tv"}, "tv"},
		{map[string]any{"media_type": "person", "name": "Brad Pitt"}, ""},
		{map[string]any{"title": "Fight Club"}, "movie"},
		{map[string]any{"name": "The Wire"}, "tv"},
	}
	for _, tt := range tests {
		if got := mediaKind(tt.item); got != tt.want {
			t.Errorf("mediaKind(%v) = %q, want %q", tt.item, got, tt.want)
		}
	}
}

func TestReleaseYear(t *testing.T) {
	if got := releaseYear(map[string]any{"release_date": "1999-10-15"}); got != "1999" {
		t.Fatalf("expected 1999, got %q", got)
	}
	if got := releaseYear(map[string]any{"first_air_date": "2002-06-02"}); got != "2002" {
		t.Fatalf("expected 2002, got %q", got)
	}
	if got := releaseYear(map[string]any{"release_date": ""}); got != "" {
		t.Fatalf("expected empty year, got %q", got)
	}
}

func TestPosterURLFallback(t *testing.T) {
	if got := posterURL("/abc.jpg"); got != "https://image.tmdb.org/t/p/w342/abc.jpg" {
		t.Fatalf("unexpected poster URL %q", got)
	}
	if got := posterURL(nil); got != "/static/images/no-logo.png" {
		t.Fatalf("expected placeholder for missing poster, got %q", got)
	}
}

func TestTruncateBreaksOnWord(t *testing.T) {
	got := truncateText("An insomniac office worker crosses paths with a soap maker", 30)
	if len(got) > 34 {
		t.Fatalf("truncated text too long: %q", got)
	}
	if got[len(got)-3:] != "…" {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
	if got := truncateText("short", 30); got != "short" {
		t.Fatalf("short text must pass through, got %q", got)
	}
}
