package watchmode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/estrenarr/estrenarr/internal/config"
	"github.com/estrenarr/estrenarr/internal/models"
	"github.com/estrenarr/estrenarr/internal/services/catalog"
	"github.com/sirupsen/logrus"
)

const (
	baseURL = "https://api.watchmode.com/v1"
	country = "ES"
)

// Watchmode source IDs for the supported Spanish platforms, keyed by TMDb
// provider ID
var sourceIDs = map[int]int{
	8:   203,  // Netflix
	119: 26,   // Prime Video
	384: 157,  // Max
	337: 372,  // Disney+
	174: 1157, // Filmin
	149: 1493, // Movistar Plus+
	350: 391,  // Apple TV+
}

// Client handles communication with the Watchmode API. It is the fallback
// discovery source: it only yields candidates that carry a TMDb ID, since
// items without one cannot be enriched into the mirror.
type Client struct {
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new Watchmode API client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.WatchmodeAPIKey == "" {
		return nil, fmt.Errorf("WATCHMODE_API_KEY is not configured")
	}

	return &Client{
		apiKey:     cfg.WatchmodeAPIKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}, nil
}

// Name implements catalog.Lister
func (c *Client) Name() string {
	return "watchmode"
}

type listTitlesResponse struct {
	Titles []titleEntry `json:"titles"`
}

type titleEntry struct {
	Type   string `json:"type"` // "movie" or "tv_series"
	TMDBID int64  `json:"tmdb_id"`
}

func titleTypes(kind models.ContentKind) string {
	if kind == models.ContentKindMovie {
		return "movie"
	}
	return "tv_series"
}

// ListRecent implements catalog.Lister across all supported platforms
func (c *Client) ListRecent(ctx context.Context, kind models.ContentKind, page int) ([]catalog.Candidate, error) {
	return c.listTitles(ctx, kind, models.SupportedProviderIDs(), page)
}

// ListByProviders implements catalog.Lister. Providers without a Watchmode
// source mapping are skipped.
func (c *Client) ListByProviders(ctx context.Context, kind models.ContentKind, providerIDs []int, page int) ([]catalog.Candidate, error) {
	return c.listTitles(ctx, kind, providerIDs, page)
}

func (c *Client) listTitles(ctx context.Context, kind models.ContentKind, providerIDs []int, page int) ([]catalog.Candidate, error) {
	var sources []string
	for _, id := range providerIDs {
		if sourceID, ok := sourceIDs[id]; ok {
			sources = append(sources, strconv.Itoa(sourceID))
		}
	}
	if len(sources) == 0 {
		return nil, nil
	}

	u, err := url.Parse(baseURL + "/list-titles")
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}

	query := u.Query()
	query.Set("apiKey", c.apiKey)
	query.Set("source_ids", strings.Join(sources, ","))
	query.Set("countries", country)
	query.Set("types", titleTypes(kind))
	query.Set("sort_by", "release_date_desc")
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(catalog.FullPage))
	u.RawQuery = query.Encode()

	c.logger.WithFields(logrus.Fields{
		"kind": kind,
		"page": page,
	}).Debug("Making Watchmode list-titles request")

	var response listTitlesResponse
	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
			}
			req.Header.Set("Accept", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				bodyBytes, _ := io.ReadAll(resp.Body)
				apiErr := fmt.Errorf("Watchmode API error: status %d: %s", resp.StatusCode, string(bodyBytes))
				if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
					return retry.Unrecoverable(apiErr)
				}
				return apiErr
			}

			return json.NewDecoder(resp.Body).Decode(&response)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	var candidates []catalog.Candidate
	for _, title := range response.Titles {
		if title.TMDBID == 0 {
			// Cannot be enriched without a TMDb ID
			continue
		}
		candidates = append(candidates, catalog.Candidate{
			SourceID: title.TMDBID,
			Kind:     kind,
		})
	}
	return candidates, nil
}
