package tmdb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/estrenarr/estrenarr/internal/models"
	"github.com/estrenarr/estrenarr/internal/services/catalog"
)

// TMDb release types: 2 limited theatrical, 3 theatrical, 4 digital, 6 TV.
// Discover accepts them OR-joined to catch platform premieres.
const discoverReleaseTypes = "2|3|4|6"

// recentWindowDays bounds the release-date window of the recency query:
// [now-recentWindowDays, now+recentWindowDays], so both fresh releases and
// upcoming titles surface.
const recentWindowDays = 90

func discoverPath(kind models.ContentKind) string {
	return fmt.Sprintf("/discover/%s", kind)
}

func dateField(kind models.ContentKind) string {
	if kind == models.ContentKindMovie {
		return "primary_release_date"
	}
	return "first_air_date"
}

// ListRecent returns a page of recently released or imminent titles,
// deliberately unfiltered by provider so new content is caught no matter
// which platform surfaces it. Implements catalog.Lister.
func (c *Client) ListRecent(ctx context.Context, kind models.ContentKind, page int) ([]catalog.Candidate, error) {
	now := time.Now()
	field := dateField(kind)

	params := url.Values{}
	params.Set("region", region)
	params.Set("watch_region", region)
	params.Set("page", strconv.Itoa(page))
	params.Set("sort_by", field+".desc")
	params.Set(field+".gte", now.AddDate(0, 0, -recentWindowDays).Format(models.DateLayout))
	params.Set(field+".lte", now.AddDate(0, 0, recentWindowDays).Format(models.DateLayout))
	// Laxer quality gates so recent premieres are not excluded
	params.Set("vote_count.gte", "5")
	params.Set("vote_average.gte", "4.0")
	if kind == models.ContentKindMovie {
		params.Set("with_release_type", discoverReleaseTypes)
	}

	return c.discover(ctx, kind, params)
}

// ListByProviders returns a page of titles available on any of the given
// providers. Implements catalog.Lister.
func (c *Client) ListByProviders(ctx context.Context, kind models.ContentKind, providerIDs []int, page int) ([]catalog.Candidate, error) {
	ids := make([]string, 0, len(providerIDs))
	for _, id := range providerIDs {
		ids = append(ids, strconv.Itoa(id))
	}

	params := url.Values{}
	params.Set("region", region)
	params.Set("watch_region", region)
	params.Set("with_watch_providers", strings.Join(ids, "|"))
	params.Set("with_watch_monetization_types", strings.Join([]string{
		models.MonetizationFlatrate,
		models.MonetizationRent,
		models.MonetizationBuy,
	}, "|"))
	params.Set("page", strconv.Itoa(page))
	params.Set("sort_by", dateField(kind)+".desc")
	params.Set("vote_count.gte", "10")
	params.Set("vote_average.gte", "5.0")
	if kind == models.ContentKindMovie {
		params.Set("with_release_type", discoverReleaseTypes)
	}

	return c.discover(ctx, kind, params)
}

func (c *Client) discover(ctx context.Context, kind models.ContentKind, params url.Values) ([]catalog.Candidate, error) {
	var response discoverResponse
	if err := c.get(ctx, discoverPath(kind), params, &response); err != nil {
		return nil, fmt.Errorf("discover %s failed: %w", kind, err)
	}

	candidates := make([]catalog.Candidate, 0, len(response.Results))
	for _, entry := range response.Results {
		candidates = append(candidates, catalog.Candidate{
			SourceID: entry.ID,
			Kind:     kind,
		})
	}
	return candidates, nil
}

// FetchItem retrieves the full detail for a title and normalizes it into a
// ContentItem. A (nil, nil) return means the title was fetched fine but is
// not eligible for the mirror (no usable release date, or no supported
// provider and not upcoming).
func (c *Client) FetchItem(ctx context.Context, kind models.ContentKind, id int64) (*models.ContentItem, error) {
	params := url.Values{}
	if kind == models.ContentKindMovie {
		params.Set("append_to_response", "watch/providers,release_dates")
	} else {
		params.Set("append_to_response", "watch/providers")
	}

	var detail Detail
	path := fmt.Sprintf("/%s/%d", kind, id)
	if err := c.get(ctx, path, params, &detail); err != nil {
		return nil, fmt.Errorf("failed to fetch %s %d: %w", kind, id, err)
	}

	return c.normalizer.Normalize(&detail, kind), nil
}
