package catalog

import (
	"context"

	"github.com/estrenarr/estrenarr/internal/models"
	"github.com/sirupsen/logrus"
)

// Chain queries an ordered list of discovery sources; the first source that
// returns a non-empty page wins. A failing source is logged and the next one
// tried, so a secondary catalog keeps discovery alive when the primary is
// down. An error is returned only when every source failed.
type Chain struct {
	sources []Lister
	logger  *logrus.Logger
}

// NewChain creates a source chain. Order matters: earlier sources are
// preferred.
func NewChain(logger *logrus.Logger, sources ...Lister) *Chain {
	return &Chain{
		sources: sources,
		logger:  logger,
	}
}

// Name implements Lister
func (c *Chain) Name() string {
	return "chain"
}

// ListRecent implements Lister
func (c *Chain) ListRecent(ctx context.Context, kind models.ContentKind, page int) ([]Candidate, error) {
	return c.list(kind, page, func(s Lister) ([]Candidate, error) {
		return s.ListRecent(ctx, kind, page)
	})
}

// ListByProviders implements Lister
func (c *Chain) ListByProviders(ctx context.Context, kind models.ContentKind, providerIDs []int, page int) ([]Candidate, error) {
	return c.list(kind, page, func(s Lister) ([]Candidate, error) {
		return s.ListByProviders(ctx, kind, providerIDs, page)
	})
}

func (c *Chain) list(kind models.ContentKind, page int, query func(Lister) ([]Candidate, error)) ([]Candidate, error) {
	var lastErr error

	for _, source := range c.sources {
		candidates, err := query(source)
		if err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"source": source.Name(),
				"kind":   kind,
				"page":   page,
			}).Warn("Discovery source failed, trying next")
			lastErr = err
			continue
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
	}

	return nil, lastErr
}
