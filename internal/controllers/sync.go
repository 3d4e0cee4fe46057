package controllers

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/estrenarr/estrenarr/internal/models"
	"github.com/estrenarr/estrenarr/internal/services/catalog"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	// Page counts for the two entry points: incremental passes only check
	// the first discovery pages where new titles surface, full passes dig
	// deeper for reconciliation.
	incrementalSyncPages = 2
	fullSyncPages        = 10

	defaultRatingEpsilon = 0.1
)

// ContentFetcher retrieves full detail for a candidate and normalizes it.
// A (nil, nil) return means the title is not eligible for the mirror.
type ContentFetcher interface {
	FetchItem(ctx context.Context, kind models.ContentKind, id int64) (*models.ContentItem, error)
}

// SyncOptions tunes a sync pass
type SyncOptions struct {
	Providers []int                // defaults to the supported allow-list
	Kinds     []models.ContentKind // defaults to movie + tv
	MaxPages  int                  // defaults to a full pass
}

// SyncResult summarizes a sync pass
type SyncResult struct {
	NewContent     int      `json:"new_content"`
	UpdatedContent int      `json:"updated_content"`
	RemovedContent int      `json:"removed_content"`
	TotalContent   int      `json:"total_content"`
	Errors         []string `json:"errors"`
}

// SyncController reconciles the content mirror against the external catalog
// sources. Passes are single-flight: a second call while one is running
// attaches to the in-flight pass instead of starting another. A wall-clock
// budget bounds each pass; exceeding it finalizes with what was gathered.
type SyncController struct {
	db      *models.Database
	source  catalog.Lister
	fetcher ContentFetcher
	logger  *logrus.Logger

	budget        time.Duration
	retentionDays int
	// Update-counting policy: rating shifts smaller than this are noise
	ratingEpsilon float64

	// Throttling between kinds, pages and item batches, to stay inside
	// external API rate limits
	kindPause time.Duration
	pagePause time.Duration
	itemPause time.Duration

	group   singleflight.Group
	syncing atomic.Bool
}

// NewSyncController creates a new sync controller. budgetSeconds bounds the
// wall-clock duration of one pass, retentionDays is how long unavailable
// items are kept before cleanup deletes them.
func NewSyncController(db *models.Database, source catalog.Lister, fetcher ContentFetcher, budgetSeconds, retentionDays int, logger *logrus.Logger) *SyncController {
	return &SyncController{
		db:            db,
		source:        source,
		fetcher:       fetcher,
		logger:        logger,
		budget:        time.Duration(budgetSeconds) * time.Second,
		retentionDays: retentionDays,
		ratingEpsilon: defaultRatingEpsilon,
		kindPause:     1 * time.Second,
		pagePause:     500 * time.Millisecond,
		itemPause:     200 * time.Millisecond,
	}
}

// SyncAll runs a full reconciliation pass. Concurrent calls share a single
// underlying pass and receive its result. Canceling the caller's context
// does not stop the pass; the wall-clock budget is its only bound.
func (c *SyncController) SyncAll(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	v, err, _ := c.group.Do("content-sync", func() (interface{}, error) {
		c.syncing.Store(true)
		defer c.syncing.Store(false)
		// The pass outlives its triggering caller: an abandoned trigger
		// keeps running to completion, bounded only by the budget.
		return c.runPass(context.WithoutCancel(ctx), opts)
	})
	if err != nil {
		return nil, err
	}
	return v.(*SyncResult), nil
}

// IncrementalSync runs a cheap pass over the first discovery pages, intended
// for frequent background refreshes
func (c *SyncController) IncrementalSync(ctx context.Context) (*SyncResult, error) {
	return c.SyncAll(ctx, SyncOptions{MaxPages: incrementalSyncPages})
}

// FullSync runs a deep pass for periodic reconciliation and first-run
// population
func (c *SyncController) FullSync(ctx context.Context) (*SyncResult, error) {
	return c.SyncAll(ctx, SyncOptions{MaxPages: fullSyncPages})
}

// SyncProvider runs a pass restricted to one provider and stamps its
// per-provider sync time
func (c *SyncController) SyncProvider(ctx context.Context, providerID int) (*SyncResult, error) {
	result, err := c.SyncAll(ctx, SyncOptions{
		Providers: []int{providerID},
		MaxPages:  fullSyncPages,
	})
	if err != nil {
		return nil, err
	}

	if err := c.db.UpdateLastSync(strconv.Itoa(providerID)); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to record provider sync time: %v", err))
	}
	return result, nil
}

// IsSyncing reports whether a pass is currently running
func (c *SyncController) IsSyncing() bool {
	return c.syncing.Load()
}

// SyncStats returns store counters plus sync timestamps
func (c *SyncController) SyncStats() (*models.Stats, error) {
	return c.db.GetStats()
}

func (c *SyncController) runPass(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	if opts.MaxPages <= 0 {
		opts.MaxPages = fullSyncPages
	}
	if len(opts.Kinds) == 0 {
		opts.Kinds = []models.ContentKind{models.ContentKindMovie, models.ContentKindTV}
	}
	if len(opts.Providers) == 0 {
		opts.Providers = models.SupportedProviderIDs()
	}

	c.logger.WithField("max_pages", opts.MaxPages).Info("Starting content sync")

	deadline := time.Now().Add(c.budget)
	result := &SyncResult{}

	// Snapshot of everything known before the pass, available or not, so
	// titles that vanished from the catalog can be marked unavailable.
	knownIDs, err := c.db.GetAllIDs()
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot known content: %w", err)
	}
	found := make(map[string]struct{})

	for i, kind := range opts.Kinds {
		if time.Now().After(deadline) {
			result.Errors = append(result.Errors, "sync timed out before processing all content kinds")
			break
		}
		if i > 0 {
			c.sleep(ctx, c.kindPause)
		}

		if err := c.syncKind(ctx, kind, opts, deadline, found, result); err != nil {
			// The pass is rejected only when its very first request
			// failed and nothing was gathered; everything later
			// degrades to a soft error.
			if i == 0 && len(found) == 0 {
				return nil, fmt.Errorf("sync could not start: %w", err)
			}
			result.Errors = append(result.Errors, fmt.Sprintf("syncing %s: %v", kind, err))
		}
	}

	for _, id := range knownIDs {
		if _, ok := found[id]; ok {
			continue
		}
		if err := c.db.MarkUnavailable(id); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("marking %s unavailable: %v", id, err))
			continue
		}
		result.RemovedContent++
	}

	if removed, err := c.db.CleanupStale(c.retentionDays); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("cleanup: %v", err))
	} else if removed > 0 {
		c.logger.WithField("removed", removed).Info("Cleaned up long-unavailable content")
	}

	if err := c.db.UpdateLastSync(""); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to record sync time: %v", err))
	}

	available, err := c.db.GetAvailableContent()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("counting available content: %v", err))
	} else {
		result.TotalContent = len(available)
	}

	c.logger.WithFields(logrus.Fields{
		"new":     result.NewContent,
		"updated": result.UpdatedContent,
		"removed": result.RemovedContent,
		"total":   result.TotalContent,
		"errors":  len(result.Errors),
	}).Info("Content sync completed")

	return result, nil
}

// syncKind walks discovery pages for one content kind, upserting every
// normalized item. Returns an error only when the first page request fails;
// later failures are recorded in result.Errors.
func (c *SyncController) syncKind(ctx context.Context, kind models.ContentKind, opts SyncOptions, deadline time.Time, found map[string]struct{}, result *SyncResult) error {
	for page := 1; page <= opts.MaxPages; page++ {
		if time.Now().After(deadline) {
			result.Errors = append(result.Errors, fmt.Sprintf("sync timed out on %s page %d", kind, page))
			return nil
		}
		if page > 1 {
			c.sleep(ctx, c.pagePause)
		}

		// Recency-sorted and provider-unfiltered first, so new titles are
		// caught no matter which platform surfaces them.
		candidates, err := c.source.ListRecent(ctx, kind, page)
		if err != nil {
			if page == 1 {
				return fmt.Errorf("listing %s page 1: %w", kind, err)
			}
			result.Errors = append(result.Errors, fmt.Sprintf("listing %s page %d: %v", kind, page, err))
			continue
		}

		// A short page is the end-of-results heuristic; supplement it with
		// a provider-filtered query to not miss platform-only titles.
		lastPage := len(candidates) < catalog.FullPage
		if lastPage {
			extra, err := c.source.ListByProviders(ctx, kind, opts.Providers, page)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("listing %s by providers page %d: %v", kind, page, err))
			} else {
				candidates = append(candidates, extra...)
			}
		}

		for i, candidate := range candidates {
			if time.Now().After(deadline) {
				result.Errors = append(result.Errors, fmt.Sprintf("sync timed out on %s page %d", kind, page))
				return nil
			}
			if i > 0 && i%5 == 0 {
				c.sleep(ctx, c.itemPause)
			}

			item, err := c.fetcher.FetchItem(ctx, candidate.Kind, candidate.SourceID)
			if err != nil {
				c.logger.WithError(err).WithFields(logrus.Fields{
					"kind": candidate.Kind,
					"id":   candidate.SourceID,
				}).Warn("Failed to process item, skipping")
				result.Errors = append(result.Errors, fmt.Sprintf("processing %s %d: %v", candidate.Kind, candidate.SourceID, err))
				continue
			}
			if item == nil {
				// Filtered by the normalizer, not an error
				continue
			}

			existing, err := c.db.GetContentByID(item.ID)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("reading %s: %v", item.ID, err))
				continue
			}

			if existing == nil {
				result.NewContent++
			} else if c.hasSignificantChanges(&existing.ContentItem, item) {
				result.UpdatedContent++
			}

			if err := c.db.UpsertContent(item); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("storing %s: %v", item.ID, err))
				continue
			}
			found[item.ID] = struct{}{}
		}

		if lastPage {
			break
		}
	}
	return nil
}

// hasSignificantChanges reports whether a re-observed item differs enough
// from its stored version to count as updated: the provider set changed, the
// rating moved more than the epsilon, or the vote count changed at all.
func (c *SyncController) hasSignificantChanges(existing, updated *models.ContentItem) bool {
	a := existing.Providers.IDs()
	b := updated.Providers.IDs()
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if a[i] != b[i] {
			return true
		}
	}

	if math.Abs(existing.VoteAverage-updated.VoteAverage) > c.ratingEpsilon {
		return true
	}
	return existing.VoteCount != updated.VoteCount
}

func (c *SyncController) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
