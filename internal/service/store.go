package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codevault-labs/postgen/internal/models"
)

var ErrPostNotFound = errors.New("post not found")

// DataSourceInput is one data source supplied at post creation.
type DataSourceInput struct {
	Type    models.DataSourceType
	Content string
}

// PostStore owns the write path for the post entity tree. The workflow engine
// and the selection reconciler are its only callers.
type PostStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewPostStore(db *gorm.DB, logger *zap.Logger) *PostStore {
	return &PostStore{
		db:     db,
		logger: logger,
	}
}

// DB exposes the underlying handle for collaborators that share the store's
// database, such as the cleanup sweeper.
func (s *PostStore) DB() *gorm.DB {
	return s.db
}

// CreatePost persists a new post together with its data sources in one
// transaction. The post starts in pending status.
func (s *PostStore) CreatePost(
	sources []DataSourceInput,
	languageTone string,
	mediaNeeded models.MediaType,
	contentType models.ContentType,
	textCount, mediaCount int,
) (*models.Post, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one data source is required")
	}

	post := &models.Post{
		ID:                   uuid.New().String(),
		LanguageTone:         languageTone,
		MediaContentNeeded:   mediaNeeded,
		ContentType:          contentType,
		TextVariationsCount:  textCount,
		MediaVariationsCount: mediaCount,
		Status:               models.PostStatusPending,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}

		for _, src := range sources {
			ds := &models.DataSource{
				ID:         uuid.New().String(),
				PostID:     post.ID,
				SourceType: src.Type,
				Content:    src.Content,
				IsValid:    false,
			}
			if err := tx.Create(ds).Error; err != nil {
				return fmt.Errorf("failed to create data source: %w", err)
			}
			post.DataSources = append(post.DataSources, *ds)
		}

		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create post", zap.Error(err))
		return nil, err
	}

	return post, nil
}

// GetPost loads a post by id, optionally with all children.
func (s *PostStore) GetPost(postID string, withChildren bool) (*models.Post, error) {
	query := s.db
	if withChildren {
		query = query.
			Preload("DataSources", func(db *gorm.DB) *gorm.DB {
				return db.Order("created_at ASC")
			}).
			Preload("TextVariations", func(db *gorm.DB) *gorm.DB {
				return db.Order("variation_number ASC")
			}).
			Preload("MediaContents", func(db *gorm.DB) *gorm.DB {
				return db.Order("variation_number ASC")
			})
	}

	var post models.Post
	if err := query.Where("id = ?", postID).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return &post, nil
}

// UpdatePostStatus transitions a post and records step/error details.
// started_at is set the first time the post enters processing_context;
// completed_at is set on entering a terminal status. Repeating an identical
// status is harmless.
func (s *PostStore) UpdatePostStatus(postID string, status models.PostStatus, currentStep, errorMessage *string) error {
	var post models.Post
	if err := s.db.Where("id = ?", postID).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return fmt.Errorf("failed to load post for status update: %w", err)
	}

	post.Status = status
	if currentStep != nil {
		post.CurrentStep = currentStep
	}
	if errorMessage != nil {
		post.ErrorMessage = errorMessage
	}

	now := time.Now().UTC()
	if status == models.PostStatusProcessingContext && post.StartedAt == nil {
		post.StartedAt = &now
	}
	if status.Terminal() {
		post.CompletedAt = &now
	}

	if err := s.db.Save(&post).Error; err != nil {
		return fmt.Errorf("failed to update post status: %w", err)
	}

	return nil
}

// AddTextVariation persists one generated text candidate and returns its id.
func (s *PostStore) AddTextVariation(postID string, number int, text string, imagePrompts string) (string, error) {
	variation := &models.TextVariation{
		ID:              uuid.New().String(),
		PostID:          postID,
		VariationNumber: number,
		TextContent:     text,
		ImagePrompts:    imagePrompts,
	}

	if err := s.db.Create(variation).Error; err != nil {
		s.logger.Error("Failed to add text variation",
			zap.String("post_id", postID),
			zap.Int("variation_number", number),
			zap.Error(err))
		return "", fmt.Errorf("failed to add text variation: %w", err)
	}

	return variation.ID, nil
}

// AddMediaContent persists one generated media artifact and returns its id.
func (s *PostStore) AddMediaContent(postID string, mediaType models.MediaType, number int, filePath, prompt *string) (string, error) {
	media := &models.MediaContent{
		ID:               uuid.New().String(),
		PostID:           postID,
		MediaType:        mediaType,
		VariationNumber:  number,
		FilePath:         filePath,
		GenerationPrompt: prompt,
	}

	if err := s.db.Create(media).Error; err != nil {
		s.logger.Error("Failed to add media content",
			zap.String("post_id", postID),
			zap.Int("variation_number", number),
			zap.Error(err))
		return "", fmt.Errorf("failed to add media content: %w", err)
	}

	return media.ID, nil
}

// DeleteTextVariations removes all text variations of a post.
func (s *PostStore) DeleteTextVariations(postID string) error {
	if err := s.db.Where("post_id = ?", postID).Delete(&models.TextVariation{}).Error; err != nil {
		return fmt.Errorf("failed to delete text variations: %w", err)
	}
	return nil
}

// DeleteMediaContents removes all media contents of a post.
func (s *PostStore) DeleteMediaContents(postID string) error {
	if err := s.db.Where("post_id = ?", postID).Delete(&models.MediaContent{}).Error; err != nil {
		return fmt.Errorf("failed to delete media contents: %w", err)
	}
	return nil
}

// ClearProgress resets the current step marker before a re-run.
func (s *PostStore) ClearProgress(postID string) error {
	if err := s.db.Model(&models.Post{}).Where("id = ?", postID).Update("current_step", nil).Error; err != nil {
		return fmt.Errorf("failed to clear progress: %w", err)
	}
	return nil
}

// UpdateDataSourceValidation records the extraction outcome for a source.
func (s *PostStore) UpdateDataSourceValidation(sourceID string, isValid bool, extractedText string) error {
	updates := map[string]interface{}{"is_valid": isValid}
	if extractedText != "" {
		updates["extracted_text"] = extractedText
	}

	if err := s.db.Model(&models.DataSource{}).Where("id = ?", sourceID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update data source: %w", err)
	}
	return nil
}

// GetDataSources returns the sources of a post in insertion order.
func (s *PostStore) GetDataSources(postID string) ([]models.DataSource, error) {
	var sources []models.DataSource
	if err := s.db.Where("post_id = ?", postID).Order("created_at ASC").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("failed to get data sources: %w", err)
	}
	return sources, nil
}

// GetTextVariations returns a post's text variations ordered by number.
func (s *PostStore) GetTextVariations(postID string) ([]models.TextVariation, error) {
	var variations []models.TextVariation
	if err := s.db.Where("post_id = ?", postID).Order("variation_number ASC").Find(&variations).Error; err != nil {
		return nil, fmt.Errorf("failed to get text variations: %w", err)
	}
	return variations, nil
}

// GetMediaContents returns a post's media contents ordered by number.
func (s *PostStore) GetMediaContents(postID string) ([]models.MediaContent, error) {
	var media []models.MediaContent
	if err := s.db.Where("post_id = ?", postID).Order("variation_number ASC").Find(&media).Error; err != nil {
		return nil, fmt.Errorf("failed to get media contents: %w", err)
	}
	return media, nil
}

// RecordWorkflowRun stores an audit row for one engine invocation.
func (s *PostStore) RecordWorkflowRun(postID string, success bool, runErr error, duration time.Duration) {
	run := &models.WorkflowRun{
		PostID:     postID,
		Success:    success,
		DurationMS: duration.Milliseconds(),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	if err := s.db.Create(run).Error; err != nil {
		s.logger.Error("Failed to record workflow run",
			zap.String("post_id", postID),
			zap.Error(err))
	}
}
