package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"movierockstar/models"
)

// Convenience wrappers over Fetch. Each one is endpoint template plus
// parameter shaping; all retry and normalization policy lives in Fetch.

// detailAppend pulls the sub-resources detail pages need in one request.
const detailAppend = "videos,credits,recommendations,watch/providers,similar"

// Trending returns trending items for "movie", "tv" or "all" over the given
// window ("day" or "week").
func (c *Client) Trending(ctx context.Context, mediaType, timeWindow string) []any {
	if mediaType == "" {
		mediaType = "all"
	}
	if timeWindow == "" {
		timeWindow = "day"
	}
	doc := c.Fetch(ctx, fmt.Sprintf("trending/%s/%s", mediaType, timeWindow), nil)
	return doc.Results()
}

// Search runs a paged search. mediaType is "movie", "tv" or "multi".
func (c *Client) Search(ctx context.Context, query, mediaType string, page int) Document {
	if mediaType == "" {
		mediaType = "multi"
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(pageOrFirst(page)))
	params.Set("include_adult", "false")
	return c.Fetch(ctx, "search/"+mediaType, params)
}

// MovieDetails returns the raw movie document with videos, credits,
// recommendations, watch providers and similar titles appended.
func (c *Client) MovieDetails(ctx context.Context, movieID int64) Document {
	params := url.Values{}
	params.Set("append_to_response", detailAppend)
	return c.Fetch(ctx, fmt.Sprintf("movie/%d", movieID), params)
}

// TVDetails returns the raw TV document with the same appended sub-resources.
func (c *Client) TVDetails(ctx context.Context, tvID int64) Document {
	params := url.Values{}
	params.Set("append_to_response", detailAppend)
	return c.Fetch(ctx, fmt.Sprintf("tv/%d", tvID), params)
}

// PopularMovies returns one page of popular movies.
func (c *Client) PopularMovies(ctx context.Context, page int) []any {
	return c.pagedResults(ctx, "movie/popular", page)
}

// PopularTV returns one page of popular TV shows.
func (c *Client) PopularTV(ctx context.Context, page int) []any {
	return c.pagedResults(ctx, "tv/popular", page)
}

// TopRatedMovies returns one page of top rated movies.
func (c *Client) TopRatedMovies(ctx context.Context, page int) []any {
	return c.pagedResults(ctx, "movie/top_rated", page)
}

// TopRatedTV returns one page of top rated TV shows.
func (c *Client) TopRatedTV(ctx context.Context, page int) []any {
	return c.pagedResults(ctx, "tv/top_rated", page)
}

// WatchProviders returns the per-region watch provider document for a title.
func (c *Client) WatchProviders(ctx context.Context, kind models.MediaKind, id int64) Document {
	return c.Fetch(ctx, fmt.Sprintf("%s/%d/watch/providers", kind, id), nil)
}

// Videos returns the video entries (trailers, teasers) for a title.
func (c *Client) Videos(ctx context.Context, kind models.MediaKind, id int64) []any {
	doc := c.Fetch(ctx, fmt.Sprintf("%s/%d/videos", kind, id), nil)
	return doc.Results()
}

// Credits returns the raw credits document for a title.
func (c *Client) Credits(ctx context.Context, kind models.MediaKind, id int64) Document {
	return c.Fetch(ctx, fmt.Sprintf("%s/%d/credits", kind, id), nil)
}

// Similar returns titles similar to the given one.
func (c *Client) Similar(ctx context.Context, kind models.MediaKind, id int64) []any {
	doc := c.Fetch(ctx, fmt.Sprintf("%s/%d/similar", kind, id), nil)
	return doc.Results()
}

func (c *Client) pagedResults(ctx context.Context, endpoint string, page int) []any {
	params := url.Values{}
	params.Set("page", strconv.Itoa(pageOrFirst(page)))
	doc := c.Fetch(ctx, endpoint, params)
	return doc.Results()
}

func pageOrFirst(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
