package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/codevault-labs/postgen/internal/config"
	"github.com/codevault-labs/postgen/internal/models"
)

// CleanupSweeper periodically deletes storage objects that were tombstoned
// by the selection flow, once they are older than the configured retention.
type CleanupSweeper struct {
	config  *config.CleanupConfig
	logger  *zap.Logger
	store   *PostStore
	storage ObjectStorage
	ticker  *time.Ticker
	stopCh  chan struct{}
}

func NewCleanupSweeper(cfg *config.CleanupConfig, logger *zap.Logger, store *PostStore, storage ObjectStorage) *CleanupSweeper {
	return &CleanupSweeper{
		config:  cfg,
		logger:  logger,
		store:   store,
		storage: storage,
		stopCh:  make(chan struct{}),
	}
}

func (s *CleanupSweeper) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Cleanup sweeper is disabled")
		return nil
	}

	interval, err := time.ParseDuration(s.config.SweepInterval)
	if err != nil {
		s.logger.Error("Invalid sweep interval", zap.String("interval", s.config.SweepInterval), zap.Error(err))
		return err
	}
	retention, err := time.ParseDuration(s.config.Retention)
	if err != nil {
		s.logger.Error("Invalid retention", zap.String("retention", s.config.Retention), zap.Error(err))
		return err
	}

	s.logger.Info("Starting cleanup sweeper",
		zap.String("sweep_interval", s.config.SweepInterval),
		zap.String("retention", s.config.Retention))

	s.ticker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-s.ticker.C:
				if _, err := s.Sweep(ctx, retention); err != nil {
					s.logger.Error("Cleanup sweep failed", zap.Error(err))
				}
			case <-s.stopCh:
				s.logger.Info("Cleanup sweeper stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Cleanup sweeper context cancelled")
				return
			}
		}
	}()

	return nil
}

func (s *CleanupSweeper) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
	s.logger.Info("Cleanup sweeper shutdown completed")
}

// Sweep removes every tombstoned media object older than the retention
// window and drops the tombstone row afterwards. A missing storage object
// counts as removed. Returns the number of tombstones cleared.
func (s *CleanupSweeper) Sweep(ctx context.Context, retention time.Duration) (int, error) {
	start := time.Now()
	cutoff := start.Add(-retention)

	var expired []models.UnwantedMedia
	err := s.store.db.Where("marked_at < ?", cutoff).Order("marked_at ASC").Find(&expired).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load expired unwanted media: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	cleared := 0
	for _, item := range expired {
		if err := s.storage.Remove(ctx, item.FilePath); err != nil {
			// Keep the tombstone so the next sweep retries it.
			s.logger.Warn("Failed to remove storage object",
				zap.String("file_path", item.FilePath),
				zap.Error(err))
			continue
		}
		if err := s.store.db.Delete(&models.UnwantedMedia{}, "id = ?", item.ID).Error; err != nil {
			s.logger.Warn("Failed to delete unwanted media record",
				zap.String("id", item.ID),
				zap.Error(err))
			continue
		}
		cleared++
	}

	s.logger.Info("Cleanup sweep completed",
		zap.Int("expired", len(expired)),
		zap.Int("cleared", cleared),
		zap.Duration("duration", time.Since(start)))
	return cleared, nil
}
