package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codevault-labs/postgen/internal/config"
	"github.com/codevault-labs/postgen/internal/models"
)

func newTestSweeper(t *testing.T, storage *fakeStorage) (*CleanupSweeper, *PostStore) {
	store := newTestStore(t)
	cfg := &config.CleanupConfig{Enabled: true, SweepInterval: "1h", Retention: "48h"}
	return NewCleanupSweeper(cfg, zap.NewNop(), store, storage), store
}

func seedTombstone(t *testing.T, store *PostStore, postID, filePath string, markedAt time.Time) {
	tombstone := &models.UnwantedMedia{
		ID:             filePath,
		MediaContentID: "mc-" + filePath,
		FilePath:       filePath,
		PostID:         postID,
	}
	require.NoError(t, store.db.Create(tombstone).Error)
	require.NoError(t, store.db.Model(tombstone).Update("marked_at", markedAt).Error)
}

func TestCleanupSweeper_Sweep(t *testing.T) {
	storage := &fakeStorage{}
	sweeper, store := newTestSweeper(t, storage)
	post := createTestPost(t, store, models.MediaTypeImage)

	old := time.Now().UTC().Add(-72 * time.Hour)
	seedTombstone(t, store, post.ID, "http://storage.local/media/old-1.png", old)
	seedTombstone(t, store, post.ID, "http://storage.local/media/old-2.png", old)
	seedTombstone(t, store, post.ID, "http://storage.local/media/fresh.png", time.Now().UTC())

	cleared, err := sweeper.Sweep(context.Background(), 48*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)
	assert.ElementsMatch(t, []string{
		"http://storage.local/media/old-1.png",
		"http://storage.local/media/old-2.png",
	}, storage.removed)

	// The fresh tombstone survives until it ages out.
	var remaining []models.UnwantedMedia
	require.NoError(t, store.db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "http://storage.local/media/fresh.png", remaining[0].FilePath)
}

func TestCleanupSweeper_Sweep_RemoveFailureKeepsTombstone(t *testing.T) {
	storage := &fakeStorage{removeErr: assert.AnError}
	sweeper, store := newTestSweeper(t, storage)
	post := createTestPost(t, store, models.MediaTypeImage)

	seedTombstone(t, store, post.ID, "http://storage.local/media/stuck.png", time.Now().UTC().Add(-72*time.Hour))

	cleared, err := sweeper.Sweep(context.Background(), 48*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, cleared)

	var remaining []models.UnwantedMedia
	require.NoError(t, store.db.Find(&remaining).Error)
	assert.Len(t, remaining, 1)
}

func TestCleanupSweeper_Sweep_Empty(t *testing.T) {
	sweeper, _ := newTestSweeper(t, &fakeStorage{})

	cleared, err := sweeper.Sweep(context.Background(), 48*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, cleared)
}
