package models

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// syncStateKey is the key of the singleton SyncState record
const syncStateKey = "sync_state"

// Database wraps the bolthold store holding the local content mirror.
// It is the single source of truth for "what is available now"; only the
// sync engine writes to it, everything else reads. Date windows ("today",
// "this week") are computed in a single configured time zone so results do
// not depend on where the process runs.
type Database struct {
	store *bolthold.Store
	loc   *time.Location
	now   func() time.Time
}

// NewDatabase opens the content database at path. Date-window queries are
// evaluated in loc.
func NewDatabase(path string, loc *time.Location) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if loc == nil {
		loc = time.UTC
	}

	return &Database{store: store, loc: loc, now: time.Now}, nil
}

// Close closes the database
func (db *Database) Close() error {
	return db.store.Close()
}

// SetClock replaces the time source used for stamps and date windows
func (db *Database) SetClock(now func() time.Time) {
	db.now = now
}

func (db *Database) todayISO() string {
	return db.now().In(db.loc).Format(DateLayout)
}

// Content operations

// UpsertContent inserts or refreshes a content item. For a new record every
// listed provider is stamped in FirstSeenAt with the current time. For an
// existing record all fields are replaced by the incoming item except
// FirstSeenAt, which is merged: missing provider keys are added, existing
// keys are left untouched. The record always comes back available.
func (db *Database) UpsertContent(item *ContentItem) error {
	now := db.now()

	firstSeen := make(map[string]time.Time)
	var existing StoredContent
	err := db.store.Get(item.ID, &existing)
	switch err {
	case nil:
		for k, v := range existing.FirstSeenAt {
			firstSeen[k] = v
		}
	case bolthold.ErrNotFound:
	default:
		return fmt.Errorf("failed to read existing content: %w", err)
	}

	// Stamps carried by the incoming item (e.g. from a provider-targeted
	// catalog pass) only fill gaps, never overwrite.
	for k, v := range item.FirstSeenAt {
		if _, ok := firstSeen[k]; !ok {
			firstSeen[k] = v
		}
	}
	for _, p := range item.Providers.All() {
		key := strconv.Itoa(p.ID)
		if _, ok := firstSeen[key]; !ok {
			firstSeen[key] = now
		}
	}

	record := StoredContent{
		ContentItem: *item,
		LastUpdated: now,
		IsAvailable: true,
	}
	record.FirstSeenAt = firstSeen

	if err := db.store.Upsert(item.ID, &record); err != nil {
		return fmt.Errorf("failed to upsert content: %w", err)
	}
	return nil
}

// MarkUnavailable flags a content item as no longer available. No-op when
// the ID is unknown.
func (db *Database) MarkUnavailable(id string) error {
	var record StoredContent
	err := db.store.Get(id, &record)
	if err == bolthold.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	record.IsAvailable = false
	record.LastUpdated = db.now()
	return db.store.Upsert(id, &record)
}

// GetContentByID retrieves a stored record, nil when absent
func (db *Database) GetContentByID(id string) (*StoredContent, error) {
	var record StoredContent
	err := db.store.Get(id, &record)
	if err == bolthold.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// HasContent reports whether a record exists for the ID, available or not
func (db *Database) HasContent(id string) (bool, error) {
	record, err := db.GetContentByID(id)
	if err != nil {
		return false, err
	}
	return record != nil, nil
}

// GetAllIDs returns every known content ID, available or not. The sync
// engine snapshots this set before a pass to detect removals.
func (db *Database) GetAllIDs() ([]string, error) {
	var records []StoredContent
	if err := db.store.Find(&records, nil); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// available returns all available records. Movies lacking a release date are
// excluded even when flagged available, as a guard against stale records.
func (db *Database) available() ([]StoredContent, error) {
	var records []StoredContent
	if err := db.store.Find(&records, bolthold.Where("IsAvailable").Eq(true)); err != nil {
		return nil, err
	}

	filtered := records[:0]
	for _, r := range records {
		if r.Kind == ContentKindMovie && r.ReleaseDate == "" {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered, nil
}

func strip(records []StoredContent) []ContentItem {
	items := make([]ContentItem, 0, len(records))
	for _, r := range records {
		items = append(items, r.ContentItem)
	}
	return items
}

// GetAvailableContent returns every available item without store bookkeeping
func (db *Database) GetAvailableContent() ([]ContentItem, error) {
	records, err := db.available()
	if err != nil {
		return nil, err
	}
	return strip(records), nil
}

// GetReleasesOnDate returns available items released exactly on the given
// calendar date, evaluated in the configured time zone
func (db *Database) GetReleasesOnDate(date time.Time) ([]ContentItem, error) {
	target := date.In(db.loc).Format(DateLayout)

	records, err := db.available()
	if err != nil {
		return nil, err
	}

	var matched []StoredContent
	for _, r := range records {
		if r.ReleaseDate == target {
			matched = append(matched, r)
		}
	}
	return strip(matched), nil
}

// GetTodaysReleases returns the items released today
func (db *Database) GetTodaysReleases() ([]ContentItem, error) {
	return db.GetReleasesOnDate(db.now())
}

// GetReleasesSince returns available items whose release date falls in the
// inclusive window [today-days, today]
func (db *Database) GetReleasesSince(days int) ([]ContentItem, error) {
	nowLocal := db.now().In(db.loc)
	since := nowLocal.AddDate(0, 0, -days).Format(DateLayout)
	today := nowLocal.Format(DateLayout)

	records, err := db.available()
	if err != nil {
		return nil, err
	}

	var matched []StoredContent
	for _, r := range records {
		if r.ReleaseDate == "" {
			continue
		}
		if r.ReleaseDate >= since && r.ReleaseDate <= today {
			matched = append(matched, r)
		}
	}
	return strip(matched), nil
}

// GetRecentlyFirstSeen returns available items first observed on any provider
// within the last N days. Items with no FirstSeenAt stamps fall back to their
// release date, so freshly released titles still count as new.
func (db *Database) GetRecentlyFirstSeen(days int) ([]ContentItem, error) {
	cutoff := db.now().AddDate(0, 0, -days)

	records, err := db.available()
	if err != nil {
		return nil, err
	}

	var matched []StoredContent
	for _, r := range records {
		if firstSeenAfter(r.FirstSeenAt, cutoff) {
			matched = append(matched, r)
			continue
		}
		if r.ReleaseDate == "" {
			continue
		}
		release, err := time.ParseInLocation(DateLayout, r.ReleaseDate, db.loc)
		if err == nil && !release.Before(cutoff) {
			matched = append(matched, r)
		}
	}
	return strip(matched), nil
}

func firstSeenAfter(firstSeen map[string]time.Time, cutoff time.Time) bool {
	for _, seen := range firstSeen {
		if !seen.Before(cutoff) {
			return true
		}
	}
	return false
}

// GetRecentReleases returns already-released items, newest first
func (db *Database) GetRecentReleases(limit int) ([]ContentItem, error) {
	today := db.todayISO()

	records, err := db.available()
	if err != nil {
		return nil, err
	}

	var released []StoredContent
	for _, r := range records {
		if r.ReleaseDate != "" && r.ReleaseDate <= today {
			released = append(released, r)
		}
	}

	// ISO dates sort lexically
	sort.Slice(released, func(i, j int) bool {
		return released[i].ReleaseDate > released[j].ReleaseDate
	})

	if limit > 0 && len(released) > limit {
		released = released[:limit]
	}
	return strip(released), nil
}

// GetContentByProvider returns available items offered by the provider in
// any monetization bucket
func (db *Database) GetContentByProvider(providerID int) ([]ContentItem, error) {
	records, err := db.available()
	if err != nil {
		return nil, err
	}

	var matched []StoredContent
	for _, r := range records {
		if r.Providers.Has(providerID) {
			matched = append(matched, r)
		}
	}
	return strip(matched), nil
}

// GetContentByGenre returns available items tagged with the genre
func (db *Database) GetContentByGenre(genreID int) ([]ContentItem, error) {
	records, err := db.available()
	if err != nil {
		return nil, err
	}

	var matched []StoredContent
	for _, r := range records {
		for _, g := range r.GenreIDs {
			if g == genreID {
				matched = append(matched, r)
				break
			}
		}
	}
	return strip(matched), nil
}

// GetTopRated returns the best rated available items
func (db *Database) GetTopRated(limit int) ([]ContentItem, error) {
	records, err := db.available()
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].VoteAverage > records[j].VoteAverage
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return strip(records), nil
}

// CleanupStale physically deletes records that have been unavailable for
// longer than the retention window. Returns the number of deleted records.
func (db *Database) CleanupStale(retentionDays int) (int, error) {
	cutoff := db.now().AddDate(0, 0, -retentionDays)

	var records []StoredContent
	if err := db.store.Find(&records, bolthold.Where("IsAvailable").Eq(false)); err != nil {
		return 0, err
	}

	removed := 0
	for _, r := range records {
		if r.LastUpdated.Before(cutoff) {
			if err := db.store.Delete(r.ID, &StoredContent{}); err != nil {
				return removed, fmt.Errorf("failed to delete stale content %s: %w", r.ID, err)
			}
			removed++
		}
	}
	return removed, nil
}

// Sync state operations

// GetSyncState returns the sync bookkeeping record, zero-valued when no sync
// has run yet
func (db *Database) GetSyncState() (*SyncState, error) {
	var state SyncState
	err := db.store.Get(syncStateKey, &state)
	if err == bolthold.ErrNotFound {
		return &SyncState{ProviderLastSync: make(map[string]time.Time)}, nil
	}
	if err != nil {
		return nil, err
	}
	if state.ProviderLastSync == nil {
		state.ProviderLastSync = make(map[string]time.Time)
	}
	return &state, nil
}

// UpdateLastSync records a sync completion. An empty providerID stamps the
// full-sync timestamp, otherwise the per-provider one.
func (db *Database) UpdateLastSync(providerID string) error {
	state, err := db.GetSyncState()
	if err != nil {
		return err
	}

	now := db.now()
	if providerID == "" {
		state.LastFullSync = now
	} else {
		state.ProviderLastSync[providerID] = now
	}
	return db.store.Upsert(syncStateKey, state)
}

// GetStats returns store counters plus sync timestamps
func (db *Database) GetStats() (*Stats, error) {
	var records []StoredContent
	if err := db.store.Find(&records, nil); err != nil {
		return nil, err
	}

	available := 0
	for _, r := range records {
		if r.IsAvailable {
			available++
		}
	}

	state, err := db.GetSyncState()
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalContent:     len(records),
		AvailableContent: available,
		LastFullSync:     state.LastFullSync,
		ProviderLastSync: state.ProviderLastSync,
	}, nil
}
