package tmdb

import (
	"time"

	"github.com/estrenarr/estrenarr/internal/models"
)

// TMDb per-country release types
const (
	releaseTypeTheatricalLimited = 2
	releaseTypeTheatrical        = 3
	releaseTypeDigital           = 4
	releaseTypeTV                = 6
)

// Digital availability is what matters for a streaming mirror, so it wins
// over a TV premiere, which wins over theatrical dates.
var releaseTypePreference = []int{
	releaseTypeDigital,
	releaseTypeTV,
	releaseTypeTheatrical,
	releaseTypeTheatricalLimited,
}

// upcomingWindowDays is how far into the future a title may be released and
// still be stored without any confirmed provider ("Coming Soon" allowance).
const upcomingWindowDays = 90

// Normalizer converts raw TMDb detail records into canonical ContentItems.
// It is a pure function of the record and the injected clock.
type Normalizer struct {
	region string
	now    func() time.Time
}

// NewNormalizer creates a normalizer. A nil clock defaults to time.Now.
func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{region: region, now: now}
}

// Normalize converts a raw detail record into a ContentItem, or nil when the
// record is not eligible for the mirror:
//   - movies with no resolvable release date are rejected, they cannot be
//     placed in any time-based view
//   - items without any supported provider are rejected unless their release
//     date lies strictly inside the upcoming window
//
// Providers outside the allow-list are dropped silently.
func (n *Normalizer) Normalize(detail *Detail, kind models.ContentKind) *models.ContentItem {
	providers := n.supportedProviders(detail)
	releaseDate := n.resolveReleaseDate(detail, kind)

	if kind == models.ContentKindMovie && releaseDate == "" {
		return nil
	}
	if providers.Empty() && !n.isUpcoming(releaseDate) {
		return nil
	}

	title := detail.Title
	if kind == models.ContentKindTV {
		title = detail.Name
	}

	item := &models.ContentItem{
		ID:           models.ContentID(kind, detail.ID),
		SourceID:     detail.ID,
		Kind:         kind,
		Title:        title,
		Overview:     detail.Overview,
		PosterPath:   detail.PosterPath,
		BackdropPath: detail.BackdropPath,
		ReleaseDate:  releaseDate,
		VoteAverage:  detail.VoteAverage,
		VoteCount:    detail.VoteCount,
		GenreIDs:     genreIDs(detail),
		Providers:    providers,
	}

	if kind == models.ContentKindMovie {
		item.Runtime = detail.Runtime
	} else {
		item.Seasons = detail.NumberOfSeasons
		item.Episodes = detail.NumberOfEpisodes
		if len(detail.EpisodeRunTime) > 0 {
			item.EpisodeRuntime = detail.EpisodeRunTime[0]
		}
	}

	return item
}

// supportedProviders restricts the region's provider lists to the allow-list
func (n *Normalizer) supportedProviders(detail *Detail) models.ProviderSet {
	regional, ok := detail.WatchProviders.Results[n.region]
	if !ok {
		return models.ProviderSet{}
	}

	return models.ProviderSet{
		Flatrate: filterSupported(regional.Flatrate),
		Rent:     filterSupported(regional.Rent),
		Buy:      filterSupported(regional.Buy),
	}
}

func filterSupported(providers []models.Provider) []models.Provider {
	var supported []models.Provider
	for _, p := range providers {
		if models.IsSupportedProvider(p.ID) {
			supported = append(supported, p)
		}
	}
	return supported
}

// resolveReleaseDate picks the canonical date for an item. Series use the
// first-air date. Movies prefer the Spanish per-type dates (digital > TV >
// theatrical, earliest of the chosen type) and fall back to the global
// release date. Empty when nothing usable exists.
func (n *Normalizer) resolveReleaseDate(detail *Detail, kind models.ContentKind) string {
	if kind == models.ContentKindTV {
		return isoDate(detail.FirstAirDate)
	}

	if date := n.regionReleaseDate(detail); date != "" {
		return date
	}
	return isoDate(detail.ReleaseDate)
}

func (n *Normalizer) regionReleaseDate(detail *Detail) string {
	var entries []releaseEntry
	for _, country := range detail.ReleaseDates.Results {
		if country.CountryCode == n.region {
			entries = country.ReleaseDates
			break
		}
	}
	if len(entries) == 0 {
		return ""
	}

	for _, releaseType := range releaseTypePreference {
		earliest := ""
		for _, entry := range entries {
			if entry.Type != releaseType {
				continue
			}
			date := isoDate(entry.ReleaseDate)
			if date == "" {
				continue
			}
			if earliest == "" || date < earliest {
				earliest = date
			}
		}
		if earliest != "" {
			return earliest
		}
	}
	return ""
}

// isoDate truncates an ISO timestamp to its calendar date
func isoDate(value string) string {
	if len(value) < len(models.DateLayout) {
		return value
	}
	return value[:len(models.DateLayout)]
}

// isUpcoming reports whether the date lies strictly between now and
// now + upcomingWindowDays
func (n *Normalizer) isUpcoming(releaseDate string) bool {
	if releaseDate == "" {
		return false
	}
	release, err := time.Parse(models.DateLayout, releaseDate)
	if err != nil {
		return false
	}

	now := n.now()
	return release.After(now) && !release.After(now.AddDate(0, 0, upcomingWindowDays))
}

// genreIDs takes genre identifiers from whichever representation the record
// carries: a flat id list or {id, name} objects
func genreIDs(detail *Detail) []int {
	if len(detail.GenreIDs) > 0 {
		return detail.GenreIDs
	}
	ids := make([]int, 0, len(detail.Genres))
	for _, g := range detail.Genres {
		ids = append(ids, g.ID)
	}
	return ids
}
