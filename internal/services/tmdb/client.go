package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/estrenarr/estrenarr/internal/config"
	"github.com/sirupsen/logrus"
)

const (
	baseURL = "https://api.themoviedb.org/3"

	// Single-market configuration: Spanish availability and metadata
	region   = "ES"
	language = "es-ES"
)

// Client handles communication with the TMDb API
type Client struct {
	apiKey     string
	httpClient *http.Client
	normalizer *Normalizer
	logger     *logrus.Logger
}

// NewClient creates a new TMDb API client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.TMDBAPIKey == "" {
		return nil, fmt.Errorf("TMDB_API_KEY is not configured")
	}

	return &Client{
		apiKey:     cfg.TMDBAPIKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		normalizer: NewNormalizer(time.Now),
		logger:     logger,
	}, nil
}

// Name implements catalog.Lister
func (c *Client) Name() string {
	return "tmdb"
}

// get performs a GET request against the TMDb API and decodes the JSON
// response into result. Transient failures are retried; 4xx responses are
// not, since they will not heal on their own.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	u, err := url.Parse(baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}

	query := u.Query()
	query.Set("api_key", c.apiKey)
	query.Set("language", language)
	for key, values := range params {
		for _, v := range values {
			query.Set(key, v)
		}
	}
	u.RawQuery = query.Encode()

	c.logger.WithField("path", path).Debug("Making TMDb API request")

	return retry.Do(
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
				apiErr := fmt.Errorf("TMDb API error: status %d: %s", resp.StatusCode, string(bodyBytes))
				if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
					return retry.Unrecoverable(apiErr)
				}
				return apiErr
			}

			if result != nil {
				if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
					return retry.Unrecoverable(fmt.Errorf("failed to decode response: %w", err))
				}
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}
