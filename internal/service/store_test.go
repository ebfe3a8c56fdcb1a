package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/codevault-labs/postgen/internal/models"
)

func newTestStore(t *testing.T) *PostStore {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(db))
	return NewPostStore(db, zap.NewNop())
}

func createTestPost(t *testing.T, store *PostStore, media models.MediaType) *models.Post {
	post, err := store.CreatePost(
		[]DataSourceInput{
			{Type: models.DataSourceTypeText, Content: "Product launch announcement draft"},
			{Type: models.DataSourceTypeLink, Content: "https://example.com/press-release"},
		},
		"professional, upbeat",
		media,
		models.ContentTypeShortForm,
		2, 2,
	)
	require.NoError(t, err)
	return post
}

func TestPostStore_CreatePost(t *testing.T) {
	store := newTestStore(t)

	post := createTestPost(t, store, models.MediaTypeImage)
	assert.NotEmpty(t, post.ID)
	assert.Equal(t, models.PostStatusPending, post.Status)
	assert.Len(t, post.DataSources, 2)

	loaded, err := store.GetPost(post.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "professional, upbeat", loaded.LanguageTone)
	require.Len(t, loaded.DataSources, 2)
	assert.Equal(t, models.DataSourceTypeText, loaded.DataSources[0].SourceType)
	assert.False(t, loaded.DataSources[0].IsValid)
}

func TestPostStore_CreatePost_NoSources(t *testing.T) {
	store := newTestStore(t)

	_, err := store.CreatePost(nil, "tone", models.MediaTypeNone, models.ContentTypeLongForm, 3, 3)
	assert.Error(t, err)
}

func TestPostStore_GetPost_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetPost("no-such-post", false)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestPostStore_UpdatePostStatus_Timestamps(t *testing.T) {
	store := newTestStore(t)
	post := createTestPost(t, store, models.MediaTypeNone)

	step := "Extracting context from data sources"
	require.NoError(t, store.UpdatePostStatus(post.ID, models.PostStatusProcessingContext, &step, nil))

	loaded, err := store.GetPost(post.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusProcessingContext, loaded.Status)
	require.NotNil(t, loaded.StartedAt)
	assert.Nil(t, loaded.CompletedAt)
	startedAt := *loaded.StartedAt

	// started_at is set once; later transitions keep the original value.
	require.NoError(t, store.UpdatePostStatus(post.ID, models.PostStatusGeneratingText, nil, nil))
	require.NoError(t, store.UpdatePostStatus(post.ID, models.PostStatusCompleted, nil, nil))

	loaded, err = store.GetPost(post.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusCompleted, loaded.Status)
	require.NotNil(t, loaded.StartedAt)
	assert.Equal(t, startedAt, *loaded.StartedAt)
	assert.NotNil(t, loaded.CompletedAt)
}

func TestPostStore_UpdatePostStatus_Failed(t *testing.T) {
	store := newTestStore(t)
	post := createTestPost(t, store, models.MediaTypeNone)

	errMsg := "model response contained no JSON object"
	require.NoError(t, store.UpdatePostStatus(post.ID, models.PostStatusFailed, nil, &errMsg))

	loaded, err := store.GetPost(post.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusFailed, loaded.Status)
	require.NotNil(t, loaded.ErrorMessage)
	assert.Equal(t, errMsg, *loaded.ErrorMessage)
	assert.NotNil(t, loaded.CompletedAt)
}

func TestPostStore_TextVariations(t *testing.T) {
	store := newTestStore(t)
	post := createTestPost(t, store, models.MediaTypeNone)

	_, err := store.AddTextVariation(post.ID, 2, "Second take", `{"prompts":[]}`)
	require.NoError(t, err)
	_, err = store.AddTextVariation(post.ID, 1, "First take", `{"prompts":[]}`)
	require.NoError(t, err)

	variations, err := store.GetTextVariations(post.ID)
	require.NoError(t, err)
	require.Len(t, variations, 2)
	assert.Equal(t, 1, variations[0].VariationNumber)
	assert.Equal(t, "First take", variations[0].TextContent)
	assert.Equal(t, 2, variations[1].VariationNumber)

	require.NoError(t, store.DeleteTextVariations(post.ID))
	variations, err = store.GetTextVariations(post.ID)
	require.NoError(t, err)
	assert.Empty(t, variations)
}

func TestPostStore_MediaContents(t *testing.T) {
	store := newTestStore(t)
	post := createTestPost(t, store, models.MediaTypeImage)

	location := "http://minio.local/media/abc.png"
	prompt := "a sunrise over the city"
	_, err := store.AddMediaContent(post.ID, models.MediaTypeImage, 1, &location, &prompt)
	require.NoError(t, err)

	media, err := store.GetMediaContents(post.ID)
	require.NoError(t, err)
	require.Len(t, media, 1)
	assert.Equal(t, models.MediaTypeImage, media[0].MediaType)
	require.NotNil(t, media[0].FilePath)
	assert.Equal(t, location, *media[0].FilePath)

	require.NoError(t, store.DeleteMediaContents(post.ID))
	media, err = store.GetMediaContents(post.ID)
	require.NoError(t, err)
	assert.Empty(t, media)
}

func TestPostStore_UpdateDataSourceValidation(t *testing.T) {
	store := newTestStore(t)
	post := createTestPost(t, store, models.MediaTypeNone)

	sources, err := store.GetDataSources(post.ID)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	require.NoError(t, store.UpdateDataSourceValidation(sources[1].ID, true, "scraped article body"))

	sources, err = store.GetDataSources(post.ID)
	require.NoError(t, err)
	assert.True(t, sources[1].IsValid)
	require.NotNil(t, sources[1].ExtractedText)
	assert.Equal(t, "scraped article body", *sources[1].ExtractedText)

	// Empty extraction records validity without touching extracted text.
	require.NoError(t, store.UpdateDataSourceValidation(sources[0].ID, true, ""))
	sources, err = store.GetDataSources(post.ID)
	require.NoError(t, err)
	assert.True(t, sources[0].IsValid)
	assert.Nil(t, sources[0].ExtractedText)
}

func TestPostStore_ClearProgress(t *testing.T) {
	store := newTestStore(t)
	post := createTestPost(t, store, models.MediaTypeNone)

	step := "Generating text variations"
	require.NoError(t, store.UpdatePostStatus(post.ID, models.PostStatusGeneratingText, &step, nil))
	require.NoError(t, store.ClearProgress(post.ID))

	loaded, err := store.GetPost(post.ID, false)
	require.NoError(t, err)
	assert.Nil(t, loaded.CurrentStep)
}

func TestPostStore_RecordWorkflowRun(t *testing.T) {
	store := newTestStore(t)
	post := createTestPost(t, store, models.MediaTypeNone)

	store.RecordWorkflowRun(post.ID, false, assert.AnError, 1500000000)

	var runs []models.WorkflowRun
	require.NoError(t, store.db.Where("post_id = ?", post.ID).Find(&runs).Error)
	require.Len(t, runs, 1)
	assert.False(t, runs[0].Success)
	assert.NotEmpty(t, runs[0].Error)
	assert.Equal(t, int64(1500), runs[0].DurationMS)
}
