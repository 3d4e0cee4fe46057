package models

// ContentKind represents the type of content (movie or tv series)
type ContentKind string

const (
	ContentKindMovie ContentKind = "movie"
	ContentKindTV    ContentKind = "tv"
)

// Monetization buckets reported per watch region
const (
	MonetizationFlatrate = "flatrate"
	MonetizationRent     = "rent"
	MonetizationBuy      = "buy"
)

// Provider represents a streaming platform as the catalog source identifies it
type Provider struct {
	ID   int    `json:"provider_id"`
	Name string `json:"provider_name"`
}

// SupportedProviders is the fixed allow-list of Spanish streaming platforms.
// Providers outside this list are dropped during normalization.
var SupportedProviders = []Provider{
	{ID: 8, Name: "Netflix"},
	{ID: 119, Name: "Prime Video"},
	{ID: 384, Name: "Max"},
	{ID: 337, Name: "Disney+"},
	{ID: 174, Name: "Filmin"},
	{ID: 149, Name: "Movistar Plus+"},
	{ID: 350, Name: "Apple TV+"},
}

// IsSupportedProvider reports whether the provider ID is on the allow-list
func IsSupportedProvider(id int) bool {
	for _, p := range SupportedProviders {
		if p.ID == id {
			return true
		}
	}
	return false
}

// SupportedProviderIDs returns the allow-listed provider IDs
func SupportedProviderIDs() []int {
	ids := make([]int, 0, len(SupportedProviders))
	for _, p := range SupportedProviders {
		ids = append(ids, p.ID)
	}
	return ids
}
