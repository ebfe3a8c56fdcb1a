package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codevault-labs/postgen/internal/models"
)

// completedPost seeds a completed post with two text variations and two
// stored images, returning the ids needed by selection tests.
func completedPost(t *testing.T, store *PostStore) (postID string, textIDs, mediaIDs []string) {
	post := createTestPost(t, store, models.MediaTypeImage)

	tv1, err := store.AddTextVariation(post.ID, 1, "first", `{"prompts":[]}`)
	require.NoError(t, err)
	tv2, err := store.AddTextVariation(post.ID, 2, "second", `{"prompts":[]}`)
	require.NoError(t, err)

	loc1 := "http://storage.local/media/a.png"
	loc2 := "http://storage.local/media/b.png"
	prompt := "a prompt"
	mc1, err := store.AddMediaContent(post.ID, models.MediaTypeImage, 1, &loc1, &prompt)
	require.NoError(t, err)
	mc2, err := store.AddMediaContent(post.ID, models.MediaTypeImage, 2, &loc2, &prompt)
	require.NoError(t, err)

	require.NoError(t, store.UpdatePostStatus(post.ID, models.PostStatusCompleted, nil, nil))
	return post.ID, []string{tv1, tv2}, []string{mc1, mc2}
}

func TestReconciler_Select(t *testing.T) {
	store := newTestStore(t)
	reconciler := NewReconciler(store, zap.NewNop())
	postID, textIDs, mediaIDs := completedPost(t, store)

	result, err := reconciler.Select(postID, textIDs[0], []string{mediaIDs[0]}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, result.SelectionID)
	assert.Equal(t, 1, result.UnwantedCount)

	variations, err := store.GetTextVariations(postID)
	require.NoError(t, err)
	assert.True(t, variations[0].IsSelected)
	assert.False(t, variations[1].IsSelected)

	media, err := store.GetMediaContents(postID)
	require.NoError(t, err)
	assert.True(t, media[0].IsSelected)
	assert.False(t, media[1].IsSelected)

	var tombstones []models.UnwantedMedia
	require.NoError(t, store.db.Where("post_id = ?", postID).Find(&tombstones).Error)
	require.Len(t, tombstones, 1)
	assert.Equal(t, mediaIDs[1], tombstones[0].MediaContentID)
	assert.Equal(t, "http://storage.local/media/b.png", tombstones[0].FilePath)
}

func TestReconciler_Reselect_ReplacesSelection(t *testing.T) {
	store := newTestStore(t)
	reconciler := NewReconciler(store, zap.NewNop())
	postID, textIDs, mediaIDs := completedPost(t, store)

	first, err := reconciler.Select(postID, textIDs[0], []string{mediaIDs[0]}, nil)
	require.NoError(t, err)

	second, err := reconciler.Select(postID, textIDs[1], []string{mediaIDs[1]}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.SelectionID, second.SelectionID)

	var selections []models.PostSelection
	require.NoError(t, store.db.Where("post_id = ?", postID).Find(&selections).Error)
	require.Len(t, selections, 1)
	assert.Equal(t, second.SelectionID, selections[0].ID)
	assert.Equal(t, textIDs[1], selections[0].TextVariationID)

	// Flags track only the latest choice.
	variations, err := store.GetTextVariations(postID)
	require.NoError(t, err)
	assert.False(t, variations[0].IsSelected)
	assert.True(t, variations[1].IsSelected)

	media, err := store.GetMediaContents(postID)
	require.NoError(t, err)
	assert.False(t, media[0].IsSelected)
	assert.True(t, media[1].IsSelected)
}

func TestReconciler_Select_NotCompleted(t *testing.T) {
	store := newTestStore(t)
	reconciler := NewReconciler(store, zap.NewNop())
	post := createTestPost(t, store, models.MediaTypeImage)

	tvID, err := store.AddTextVariation(post.ID, 1, "draft", `{"prompts":[]}`)
	require.NoError(t, err)

	_, err = reconciler.Select(post.ID, tvID, nil, nil)
	assert.ErrorIs(t, err, ErrPostNotCompleted)
}

func TestReconciler_Select_ForeignVariation(t *testing.T) {
	store := newTestStore(t)
	reconciler := NewReconciler(store, zap.NewNop())
	postID, _, _ := completedPost(t, store)
	otherPostID, otherTextIDs, _ := completedPost(t, store)

	_, err := reconciler.Select(postID, otherTextIDs[0], nil, nil)
	assert.ErrorIs(t, err, ErrVariationNotFound)

	// The foreign post is untouched.
	variations, loadErr := store.GetTextVariations(otherPostID)
	require.NoError(t, loadErr)
	assert.False(t, variations[0].IsSelected)
}

func TestReconciler_Select_UnknownPost(t *testing.T) {
	store := newTestStore(t)
	reconciler := NewReconciler(store, zap.NewNop())

	_, err := reconciler.Select("no-such-post", "tv", nil, nil)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestReconciler_Select_SkipsMediaWithoutLocation(t *testing.T) {
	store := newTestStore(t)
	reconciler := NewReconciler(store, zap.NewNop())
	post := createTestPost(t, store, models.MediaTypeImage)

	tvID, err := store.AddTextVariation(post.ID, 1, "only", `{"prompts":[]}`)
	require.NoError(t, err)
	_, err = store.AddMediaContent(post.ID, models.MediaTypeImage, 1, nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.UpdatePostStatus(post.ID, models.PostStatusCompleted, nil, nil))

	result, err := reconciler.Select(post.ID, tvID, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, result.UnwantedCount)
}
