package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/estrenarr/estrenarr/internal/models"
	"github.com/sirupsen/logrus"
)

// ContentHandler serves filtered views over the content mirror. It only
// reads the store; an empty or stale mirror is refreshed by the scheduler,
// never from here.
type ContentHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewContentHandler creates a new content handler
func NewContentHandler(db *models.Database, logger *logrus.Logger) *ContentHandler {
	return &ContentHandler{
		db:     db,
		logger: logger,
	}
}

// ContentResponse wraps a content listing
type ContentResponse struct {
	Count int                  `json:"count"`
	Items []models.ContentItem `json:"items"`
}

// List handles GET /api/content with query parameters:
// type=movie|tv, provider=<id>, genre=<id>, filter=today|week|month,
// sort=rating|newest, limit=<n>, strict=1.
// When a time filter yields nothing and strict is not set, results fall back
// to wider windows so the caller is never left with an empty view while the
// mirror has content.
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	timeFilter := query.Get("filter")
	providerID, _ := strconv.Atoi(query.Get("provider"))
	genreID, _ := strconv.Atoi(query.Get("genre"))
	strict := query.Get("strict") == "1"

	items, err := h.itemsForFilter(timeFilter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load content")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	items = filterByProvider(items, providerID)
	items = filterByGenre(items, genreID)

	if len(items) == 0 && !strict && timeFilter != "today" {
		items, err = h.fallback(timeFilter, providerID, genreID)
		if err != nil {
			h.logger.WithError(err).Error("Failed to load fallback content")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	if kind := query.Get("type"); kind != "" {
		items = filterByKind(items, models.ContentKind(kind))
	}

	switch query.Get("sort") {
	case "rating":
		sort.Slice(items, func(i, j int) bool {
			return items[i].VoteAverage > items[j].VoteAverage
		})
	case "newest":
		sort.Slice(items, func(i, j int) bool {
			return items[i].ReleaseDate > items[j].ReleaseDate
		})
	}

	if limit, _ := strconv.Atoi(query.Get("limit")); limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	writeContent(w, items)
}

func (h *ContentHandler) itemsForFilter(timeFilter string) ([]models.ContentItem, error) {
	switch timeFilter {
	case "today":
		return h.db.GetTodaysReleases()
	case "week":
		return h.db.GetReleasesSince(7)
	case "month":
		return h.db.GetRecentlyFirstSeen(30)
	default:
		return h.db.GetAvailableContent()
	}
}

// fallback widens an empty result set: provider and genre views first, then
// the 30-day first-seen window, finally everything available
func (h *ContentHandler) fallback(timeFilter string, providerID, genreID int) ([]models.ContentItem, error) {
	if providerID > 0 {
		return h.db.GetContentByProvider(providerID)
	}
	if genreID > 0 {
		return h.db.GetContentByGenre(genreID)
	}
	if timeFilter == "week" {
		items, err := h.db.GetRecentlyFirstSeen(30)
		if err != nil || len(items) > 0 {
			return items, err
		}
	}
	return h.db.GetAvailableContent()
}

// Top handles GET /api/content/top?limit=<n>
func (h *ContentHandler) Top(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}

	items, err := h.db.GetTopRated(limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load top rated content")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeContent(w, items)
}

// Releases handles GET /api/content/releases?date=YYYY-MM-DD, defaulting to
// today when no date is given
func (h *ContentHandler) Releases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var (
		items []models.ContentItem
		err   error
	)
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, parseErr := time.Parse(models.DateLayout, raw)
		if parseErr != nil {
			http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		items, err = h.db.GetReleasesOnDate(date)
	} else {
		items, err = h.db.GetTodaysReleases()
	}

	if err != nil {
		h.logger.WithError(err).Error("Failed to load releases")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeContent(w, items)
}

func filterByProvider(items []models.ContentItem, providerID int) []models.ContentItem {
	if providerID <= 0 {
		return items
	}
	var matched []models.ContentItem
	for _, item := range items {
		if item.Providers.Has(providerID) {
			matched = append(matched, item)
		}
	}
	return matched
}

func filterByGenre(items []models.ContentItem, genreID int) []models.ContentItem {
	if genreID <= 0 {
		return items
	}
	var matched []models.ContentItem
	for _, item := range items {
		for _, g := range item.GenreIDs {
			if g == genreID {
				matched = append(matched, item)
				break
			}
		}
	}
	return matched
}

func filterByKind(items []models.ContentItem, kind models.ContentKind) []models.ContentItem {
	var matched []models.ContentItem
	for _, item := range items {
		if item.Kind == kind {
			matched = append(matched, item)
		}
	}
	return matched
}

func writeContent(w http.ResponseWriter, items []models.ContentItem) {
	if items == nil {
		items = []models.ContentItem{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ContentResponse{
		Count: len(items),
		Items: items,
	})
}
