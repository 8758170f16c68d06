package models

// MediaKind identifies whether an item is a movie or a TV show.
type MediaKind string

const (
	MediaMovie MediaKind = "movie"
	MediaTV    MediaKind = "tv"
)

// Valid reports whether the kind is one of the two supported values.
func (k MediaKind) Valid() bool {
	return k == MediaMovie || k == MediaTV
}

// StreamingLink is a single place to watch a title. Links sourced from the
// recommendation provider are unverified text completions and must not be
// treated as confirmed availability.
type StreamingLink struct {
	Provider string `json:"provider"`
	LogoURL  string `json:"logoUrl,omitempty"`
	URL      string `json:"url"`
	Kind     string `json:"kind"`              // "stream" | "rent" | "buy"
	Price    string `json:"price,omitempty"`   // e.g. "Included", "$3.99"
	Quality  string `json:"quality,omitempty"` // e.g. "HD", "4K"
	Source   string `json:"source"`            // "catalog" | "ai"
}

// VideoEmbed is an embeddable trailer/teaser hosted on YouTube.
type VideoEmbed struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	Type string `json:"type"` // "Trailer", "Teaser", ...
	URL  string `json:"url"`  // YouTube embed URL
}

// StreamingBundle is everything the watch page needs for one title.
type StreamingBundle struct {
	Stream []StreamingLink `json:"stream"`
	Rent   []StreamingLink `json:"rent"`
	Buy    []StreamingLink `json:"buy"`
	Embeds []VideoEmbed    `json:"embeds,omitempty"`
}

// Empty reports whether no links of any kind were found.
func (b StreamingBundle) Empty() bool {
	return len(b.Stream) == 0 && len(b.Rent) == 0 && len(b.Buy) == 0
}
