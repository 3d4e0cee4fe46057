package models

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the calendar-date format used for release dates
const DateLayout = "2006-01-02"

// ProviderSet holds the providers offering an item, split by monetization type
type ProviderSet struct {
	Flatrate []Provider
	Rent     []Provider
	Buy      []Provider
}

// All returns the providers from every bucket
func (s ProviderSet) All() []Provider {
	all := make([]Provider, 0, len(s.Flatrate)+len(s.Rent)+len(s.Buy))
	all = append(all, s.Flatrate...)
	all = append(all, s.Rent...)
	all = append(all, s.Buy...)
	return all
}

// IDs returns the sorted, deduplicated provider IDs across all buckets
func (s ProviderSet) IDs() []int {
	seen := make(map[int]struct{})
	var ids []int
	for _, p := range s.All() {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		ids = append(ids, p.ID)
	}
	sort.Ints(ids)
	return ids
}

// Has reports whether any bucket contains the provider
func (s ProviderSet) Has(providerID int) bool {
	for _, p := range s.All() {
		if p.ID == providerID {
			return true
		}
	}
	return false
}

// Empty reports whether all buckets are empty
func (s ProviderSet) Empty() bool {
	return len(s.Flatrate) == 0 && len(s.Rent) == 0 && len(s.Buy) == 0
}

// ContentItem is the canonical unit of the content mirror: one title with its
// Spanish availability. ReleaseDate holds the ES digital date for movies
// (falling back to theatrical, then the global date) and the first-air date
// for series; it is empty when no date could be resolved.
type ContentItem struct {
	ID       string // e.g. "movie_550"
	SourceID int64  // numeric ID at the catalog source

	Kind         ContentKind
	Title        string
	Overview     string
	PosterPath   string
	BackdropPath string
	ReleaseDate  string // YYYY-MM-DD

	VoteAverage float64
	VoteCount   int
	GenreIDs    []int

	// Movie specific
	Runtime int // minutes, 0 when unknown

	// Series specific
	Seasons        int
	Episodes       int
	EpisodeRuntime int // minutes, 0 when unknown

	Providers ProviderSet

	// FirstSeenAt maps provider ID (as string) to the moment the item was
	// first observed on that provider. Keys are never overwritten once set.
	FirstSeenAt map[string]time.Time
}

// ContentID builds the stable store key for a title
func ContentID(kind ContentKind, sourceID int64) string {
	return fmt.Sprintf("%s_%d", kind, sourceID)
}

// StoredContent is a ContentItem plus store bookkeeping
type StoredContent struct {
	ContentItem

	LastUpdated time.Time
	IsAvailable bool
}

// SyncState tracks when the content mirror was last reconciled
type SyncState struct {
	LastFullSync     time.Time
	ProviderLastSync map[string]time.Time
}

// Stats summarizes the current state of the content mirror
type Stats struct {
	TotalContent     int                  `json:"total_content"`
	AvailableContent int                  `json:"available_content"`
	LastFullSync     time.Time            `json:"last_full_sync"`
	ProviderLastSync map[string]time.Time `json:"provider_last_sync"`
}
