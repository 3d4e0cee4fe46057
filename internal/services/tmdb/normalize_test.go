package tmdb

import (
	"testing"
	"time"

	"github.com/estrenarr/estrenarr/internal/models"
)

func testNormalizer() *Normalizer {
	now, _ := time.Parse(time.RFC3339, "2024-06-01T12:00:00Z")
	return NewNormalizer(func() time.Time { return now })
}

func netflixDetail(id int64) *Detail {
	return &Detail{
		ID:          id,
		Title:       "Test Movie",
		ReleaseDate: "2024-05-01",
		VoteAverage: 7.2,
		VoteCount:   340,
		GenreIDs:    []int{28, 53},
		Runtime:     112,
		WatchProviders: watchProviders{
			Results: map[string]regionProviders{
				"ES": {Flatrate: []models.Provider{{ID: 8, Name: "Netflix"}}},
			},
		},
	}
}

func TestNormalizeMovie(t *testing.T) {
	item := testNormalizer().Normalize(netflixDetail(550), models.ContentKindMovie)
	if item == nil {
		t.Fatal("Expected a normalized item")
	}
	if item.ID != "movie_550" {
		t.Errorf("Expected ID movie_550, got %s", item.ID)
	}
	if item.Title != "Test Movie" {
		t.Errorf("Expected title, got %s", item.Title)
	}
	if item.Runtime != 112 {
		t.Errorf("Expected runtime 112, got %d", item.Runtime)
	}
	if got := item.Providers.IDs(); len(got) != 1 || got[0] != 8 {
		t.Errorf("Expected providers [8], got %v", got)
	}
}

func TestNormalizePrefersSpanishDigitalDate(t *testing.T) {
	detail := netflixDetail(1)
	detail.ReleaseDate = "2024-01-01"
	detail.ReleaseDates = releaseDates{
		Results: []countryReleases{
			{
				CountryCode: "US",
				ReleaseDates: []releaseEntry{
					{ReleaseDate: "2024-02-01T00:00:00.000Z", Type: releaseTypeDigital},
				},
			},
			{
				CountryCode: "ES",
				ReleaseDates: []releaseEntry{
					{ReleaseDate: "2024-03-15T00:00:00.000Z", Type: releaseTypeTheatrical},
					{ReleaseDate: "2024-05-10T00:00:00.000Z", Type: releaseTypeDigital},
					{ReleaseDate: "2024-05-05T00:00:00.000Z", Type: releaseTypeDigital},
				},
			},
		},
	}

	item := testNormalizer().Normalize(detail, models.ContentKindMovie)
	if item == nil {
		t.Fatal("Expected a normalized item")
	}
	if item.ReleaseDate != "2024-05-05" {
		t.Errorf("Expected the earliest Spanish digital date, got %s", item.ReleaseDate)
	}
}

func TestNormalizeFallsBackThroughReleaseTypes(t *testing.T) {
	detail := netflixDetail(1)
	detail.ReleaseDates = releaseDates{
		Results: []countryReleases{
			{
				CountryCode: "ES",
				ReleaseDates: []releaseEntry{
					{ReleaseDate: "2024-03-15T00:00:00.000Z", Type: releaseTypeTheatrical},
					{ReleaseDate: "2024-04-20T00:00:00.000Z", Type: releaseTypeTV},
				},
			},
		},
	}

	item := testNormalizer().Normalize(detail, models.ContentKindMovie)
	if item.ReleaseDate != "2024-04-20" {
		t.Errorf("Expected the TV premiere over theatrical, got %s", item.ReleaseDate)
	}

	detail.ReleaseDates.Results[0].ReleaseDates = []releaseEntry{
		{ReleaseDate: "2024-03-15T00:00:00.000Z", Type: releaseTypeTheatrical},
		{ReleaseDate: "2024-03-01T00:00:00.000Z", Type: releaseTypeTheatricalLimited},
	}
	item = testNormalizer().Normalize(detail, models.ContentKindMovie)
	if item.ReleaseDate != "2024-03-15" {
		t.Errorf("Expected the theatrical date over limited, got %s", item.ReleaseDate)
	}
}

func TestNormalizeUsesGlobalDateWithoutSpanishEntries(t *testing.T) {
	detail := netflixDetail(1)
	detail.ReleaseDate = "2024-04-01"
	detail.ReleaseDates = releaseDates{
		Results: []countryReleases{
			{
				CountryCode: "FR",
				ReleaseDates: []releaseEntry{
					{ReleaseDate: "2024-02-01T00:00:00.000Z", Type: releaseTypeDigital},
				},
			},
		},
	}

	item := testNormalizer().Normalize(detail, models.ContentKindMovie)
	if item.ReleaseDate != "2024-04-01" {
		t.Errorf("Expected the global release date, got %s", item.ReleaseDate)
	}
}

func TestNormalizeRejectsMovieWithoutDate(t *testing.T) {
	detail := netflixDetail(1)
	detail.ReleaseDate = ""

	if item := testNormalizer().Normalize(detail, models.ContentKindMovie); item != nil {
		t.Errorf("Expected dateless movie to be rejected, got %+v", item)
	}
}

func TestNormalizeDropsUnsupportedProviders(t *testing.T) {
	detail := netflixDetail(1)
	detail.WatchProviders.Results["ES"] = regionProviders{
		Flatrate: []models.Provider{
			{ID: 8, Name: "Netflix"},
			{ID: 999, Name: "Obscure Service"},
		},
		Rent: []models.Provider{{ID: 2, Name: "Some Rental"}},
	}

	item := testNormalizer().Normalize(detail, models.ContentKindMovie)
	if item == nil {
		t.Fatal("Expected a normalized item")
	}
	if got := item.Providers.IDs(); len(got) != 1 || got[0] != 8 {
		t.Errorf("Expected only the supported provider, got %v", got)
	}
}

func TestNormalizeUpcomingWindow(t *testing.T) {
	base := netflixDetail(1)
	base.WatchProviders = watchProviders{}

	// Far in the future, no providers: rejected
	detail := *base
	detail.ReleaseDate = "2025-01-01"
	if item := testNormalizer().Normalize(&detail, models.ContentKindMovie); item != nil {
		t.Errorf("Expected a far-future item without providers to be rejected, got %+v", item)
	}

	// Released in the past, no providers: rejected
	detail = *base
	detail.ReleaseDate = "2024-05-01"
	if item := testNormalizer().Normalize(&detail, models.ContentKindMovie); item != nil {
		t.Errorf("Expected a released item without providers to be rejected, got %+v", item)
	}

	// Released today, no providers: rejected, the window is strictly future
	detail = *base
	detail.ReleaseDate = "2024-06-01"
	if item := testNormalizer().Normalize(&detail, models.ContentKindMovie); item != nil {
		t.Errorf("Expected a same-day item without providers to be rejected, got %+v", item)
	}

	// Ten days out, no providers: kept as upcoming
	detail = *base
	detail.ReleaseDate = "2024-06-11"
	item := testNormalizer().Normalize(&detail, models.ContentKindMovie)
	if item == nil {
		t.Fatal("Expected an upcoming item to be kept")
	}
	if !item.Providers.Empty() {
		t.Errorf("Expected no providers, got %v", item.Providers.IDs())
	}
}

func TestNormalizeGenresFromBothRepresentations(t *testing.T) {
	detail := netflixDetail(1)
	detail.GenreIDs = []int{28, 53}
	item := testNormalizer().Normalize(detail, models.ContentKindMovie)
	if len(item.GenreIDs) != 2 || item.GenreIDs[0] != 28 {
		t.Errorf("Expected genre ids from the flat list, got %v", item.GenreIDs)
	}

	detail.GenreIDs = nil
	detail.Genres = []genreRef{{ID: 18, Name: "Drama"}, {ID: 9648, Name: "Mystery"}}
	item = testNormalizer().Normalize(detail, models.ContentKindMovie)
	if len(item.GenreIDs) != 2 || item.GenreIDs[0] != 18 {
		t.Errorf("Expected genre ids from the object list, got %v", item.GenreIDs)
	}
}

func TestNormalizeSeries(t *testing.T) {
	detail := &Detail{
		ID:               1399,
		Name:             "Test Series",
		FirstAirDate:     "2024-05-20",
		VoteAverage:      8.4,
		VoteCount:        1200,
		Genres:           []genreRef{{ID: 18, Name: "Drama"}},
		NumberOfSeasons:  3,
		NumberOfEpisodes: 24,
		EpisodeRunTime:   []int{55, 60},
		WatchProviders: watchProviders{
			Results: map[string]regionProviders{
				"ES": {Flatrate: []models.Provider{{ID: 337, Name: "Disney Plus"}}},
			},
		},
	}

	item := testNormalizer().Normalize(detail, models.ContentKindTV)
	if item == nil {
		t.Fatal("Expected a normalized item")
	}
	if item.ID != "tv_1399" {
		t.Errorf("Expected ID tv_1399, got %s", item.ID)
	}
	if item.Title != "Test Series" {
		t.Errorf("Expected the series name as title, got %s", item.Title)
	}
	if item.ReleaseDate != "2024-05-20" {
		t.Errorf("Expected the first air date, got %s", item.ReleaseDate)
	}
	if item.Seasons != 3 || item.Episodes != 24 || item.EpisodeRuntime != 55 {
		t.Errorf("Unexpected series fields: %+v", item)
	}
}

func TestNormalizeSeriesWithoutDateIsKeptWhenStreaming(t *testing.T) {
	detail := &Detail{
		ID:   7,
		Name: "Undated Series",
		WatchProviders: watchProviders{
			Results: map[string]regionProviders{
				"ES": {Flatrate: []models.Provider{{ID: 8, Name: "Netflix"}}},
			},
		},
	}

	item := testNormalizer().Normalize(detail, models.ContentKindTV)
	if item == nil {
		t.Fatal("Expected a dateless series with providers to be kept")
	}
	if item.ReleaseDate != "" {
		t.Errorf("Expected empty release date, got %s", item.ReleaseDate)
	}
}
