package catalog

import (
	"context"

	"github.com/estrenarr/estrenarr/internal/models"
)

// FullPage is the number of results a complete discovery page carries.
// A shorter page signals the end of a result set.
const FullPage = 20

// Candidate identifies a title surfaced by a discovery source. Only the
// source ID travels here; full detail is fetched separately.
type Candidate struct {
	SourceID int64
	Kind     models.ContentKind
}

// Lister is a paginated discovery source for recently released content
type Lister interface {
	Name() string

	// ListRecent returns a page of recently released titles regardless of
	// which provider surfaces them.
	ListRecent(ctx context.Context, kind models.ContentKind, page int) ([]Candidate, error)

	// ListByProviders returns a page of titles available on any of the
	// given providers.
	ListByProviders(ctx context.Context, kind models.ContentKind, providerIDs []int, page int) ([]Candidate, error)
}
