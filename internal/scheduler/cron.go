package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/estrenarr/estrenarr/internal/controllers"
	"github.com/estrenarr/estrenarr/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// staleAfter is how old the last full sync may get before the hourly check
// forces a new one
const staleAfter = 24 * time.Hour

// Scheduler drives the autonomous sync triggers. All schedules run in the
// market time zone so the midnight refresh lines up with the day the
// audience sees.
type Scheduler struct {
	cron     *cron.Cron
	syncCtrl *controllers.SyncController
	db       *models.Database
	logger   *logrus.Logger
}

// NewScheduler creates a new scheduler pinned to loc
func NewScheduler(syncCtrl *controllers.SyncController, db *models.Database, loc *time.Location, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		syncCtrl: syncCtrl,
		db:       db,
		logger:   logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	// Midnight in the market time zone: the day's releases become "today"
	_, err := s.cron.AddFunc("0 0 * * *", func() {
		s.runFullSync("daily refresh")
	})
	if err != nil {
		return fmt.Errorf("failed to add daily sync job: %w", err)
	}

	// Every 6 hours: cheap incremental pass to catch newly added titles
	_, err = s.cron.AddFunc("0 */6 * * *", func() {
		s.runIncrementalSync()
	})
	if err != nil {
		return fmt.Errorf("failed to add incremental sync job: %w", err)
	}

	// Hourly: force a full sync when the mirror has gone stale
	_, err = s.cron.AddFunc("30 * * * *", func() {
		s.runStaleCheck()
	})
	if err != nil {
		return fmt.Errorf("failed to add staleness check job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	// Populate immediately on first run, refresh cheaply otherwise
	go s.runInitialSync()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) runInitialSync() {
	stats, err := s.db.GetStats()
	if err != nil {
		s.logger.WithError(err).Error("Failed to read store stats, skipping initial sync")
		return
	}

	switch {
	case stats.TotalContent == 0:
		s.runFullSync("initial population")
	case time.Since(stats.LastFullSync) > staleAfter:
		s.runFullSync("stale on startup")
	default:
		s.runIncrementalSync()
	}
}

func (s *Scheduler) runFullSync(reason string) {
	s.logger.WithField("reason", reason).Info("Running full sync")

	result, err := s.syncCtrl.FullSync(context.Background())
	if err != nil {
		s.logger.WithError(err).Error("Full sync failed")
		return
	}
	s.logResult("Full sync completed", result)
}

func (s *Scheduler) runIncrementalSync() {
	s.logger.Info("Running incremental sync")

	result, err := s.syncCtrl.IncrementalSync(context.Background())
	if err != nil {
		s.logger.WithError(err).Error("Incremental sync failed")
		return
	}
	s.logResult("Incremental sync completed", result)
}

func (s *Scheduler) runStaleCheck() {
	state, err := s.db.GetSyncState()
	if err != nil {
		s.logger.WithError(err).Error("Failed to read sync state")
		return
	}

	if time.Since(state.LastFullSync) > staleAfter {
		s.runFullSync("mirror older than 24h")
	}
}

func (s *Scheduler) logResult(msg string, result *controllers.SyncResult) {
	s.logger.WithFields(logrus.Fields{
		"new":     result.NewContent,
		"updated": result.UpdatedContent,
		"removed": result.RemovedContent,
		"total":   result.TotalContent,
		"errors":  len(result.Errors),
	}).Info(msg)
}
