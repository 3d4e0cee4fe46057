package tmdb

import "github.com/estrenarr/estrenarr/internal/models"

// discoverResponse is a page of /discover results
type discoverResponse struct {
	Page         int             `json:"page"`
	Results      []discoverEntry `json:"results"`
	TotalPages   int             `json:"total_pages"`
	TotalResults int             `json:"total_results"`
}

type discoverEntry struct {
	ID int64 `json:"id"`
}

// Detail is the full record for one title, fetched with
// append_to_response so providers and release dates arrive in one request
type Detail struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`          // movies
	Name         string `json:"name"`           // series
	Overview     string `json:"overview"`
	PosterPath   string `json:"poster_path"`
	BackdropPath string `json:"backdrop_path"`
	ReleaseDate  string `json:"release_date"`   // movies, global
	FirstAirDate string `json:"first_air_date"` // series

	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`

	// Discover rows carry genre_ids, detail responses carry genres
	GenreIDs []int      `json:"genre_ids"`
	Genres   []genreRef `json:"genres"`

	Runtime          int   `json:"runtime"`
	NumberOfSeasons  int   `json:"number_of_seasons"`
	NumberOfEpisodes int   `json:"number_of_episodes"`
	EpisodeRunTime   []int `json:"episode_run_time"`

	WatchProviders watchProviders `json:"watch/providers"`
	ReleaseDates   releaseDates   `json:"release_dates"`
}

type genreRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type watchProviders struct {
	Results map[string]regionProviders `json:"results"`
}

type regionProviders struct {
	Flatrate []models.Provider `json:"flatrate"`
	Rent     []models.Provider `json:"rent"`
	Buy      []models.Provider `json:"buy"`
}

type releaseDates struct {
	Results []countryReleases `json:"results"`
}

type countryReleases struct {
	CountryCode  string         `json:"iso_3166_1"`
	ReleaseDates []releaseEntry `json:"release_dates"`
}

type releaseEntry struct {
	ReleaseDate string `json:"release_date"` // ISO timestamp
	Type        int    `json:"type"`
}
