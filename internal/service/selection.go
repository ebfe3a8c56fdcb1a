package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codevault-labs/postgen/internal/models"
)

var (
	// ErrPostNotCompleted is returned when selecting on a post that has not
	// finished generating. A caller surfaces this as a user error.
	ErrPostNotCompleted = errors.New("post generation is not completed")

	// ErrVariationNotFound is returned when the chosen text variation does
	// not belong to the post.
	ErrVariationNotFound = errors.New("text variation not found for post")
)

// SelectionResult reports the outcome of a Select call.
type SelectionResult struct {
	SelectionID   string
	UnwantedCount int
}

// Reconciler applies a user's final choice: it records the selection, marks
// the chosen artifacts and tombstones every unselected media content for
// deferred cleanup.
type Reconciler struct {
	store  *PostStore
	logger *zap.Logger
}

func NewReconciler(store *PostStore, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: logger,
	}
}

// Select replaces any prior selection for the post with the given choice.
// The post must be in completed status and the text variation must belong to
// it. Every MediaContent of the post outside the chosen set that has a
// storage location gets an UnwantedMedia tombstone; re-selecting re-evaluates
// unwanted items against the new choice, so duplicate tombstones across
// reselections are possible and accepted.
func (r *Reconciler) Select(postID, textVariationID string, imageIDs, videoIDs []string) (*SelectionResult, error) {
	post, err := r.store.GetPost(postID, false)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostStatusCompleted {
		return nil, ErrPostNotCompleted
	}

	var variation models.TextVariation
	err = r.store.db.Where("id = ? AND post_id = ?", textVariationID, postID).First(&variation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVariationNotFound
		}
		return nil, fmt.Errorf("failed to load text variation: %w", err)
	}

	chosenMedia := append(append([]string{}, imageIDs...), videoIDs...)

	result := &SelectionResult{}
	err = r.store.db.Transaction(func(tx *gorm.DB) error {
		// Delete-then-recreate: a prior selection goes away entirely,
		// including its SelectedMedia rows.
		var existing models.PostSelection
		findErr := tx.Where("post_id = ?", postID).First(&existing).Error
		if findErr == nil {
			if err := tx.Where("selection_id = ?", existing.ID).Delete(&models.SelectedMedia{}).Error; err != nil {
				return fmt.Errorf("failed to delete prior selected media: %w", err)
			}
			if err := tx.Delete(&existing).Error; err != nil {
				return fmt.Errorf("failed to delete prior selection: %w", err)
			}
		} else if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check prior selection: %w", findErr)
		}

		selection := &models.PostSelection{
			ID:              uuid.New().String(),
			PostID:          postID,
			TextVariationID: textVariationID,
		}
		if err := tx.Create(selection).Error; err != nil {
			return fmt.Errorf("failed to create selection: %w", err)
		}
		result.SelectionID = selection.ID

		for _, mediaID := range chosenMedia {
			sm := &models.SelectedMedia{
				ID:             uuid.New().String(),
				SelectionID:    selection.ID,
				MediaContentID: mediaID,
			}
			if err := tx.Create(sm).Error; err != nil {
				return fmt.Errorf("failed to create selected media: %w", err)
			}
		}

		// Selection flags always reflect the latest choice only.
		if err := tx.Model(&models.TextVariation{}).Where("post_id = ?", postID).
			Update("is_selected", false).Error; err != nil {
			return fmt.Errorf("failed to reset variation flags: %w", err)
		}
		if err := tx.Model(&models.TextVariation{}).Where("id = ?", textVariationID).
			Update("is_selected", true).Error; err != nil {
			return fmt.Errorf("failed to mark text variation: %w", err)
		}

		if err := tx.Model(&models.MediaContent{}).Where("post_id = ?", postID).
			Update("is_selected", false).Error; err != nil {
			return fmt.Errorf("failed to reset media flags: %w", err)
		}
		if len(chosenMedia) > 0 {
			if err := tx.Model(&models.MediaContent{}).
				Where("id IN ? AND post_id = ?", chosenMedia, postID).
				Update("is_selected", true).Error; err != nil {
				return fmt.Errorf("failed to mark media contents: %w", err)
			}
		}

		var allMedia []models.MediaContent
		if err := tx.Where("post_id = ?", postID).Find(&allMedia).Error; err != nil {
			return fmt.Errorf("failed to load media contents: %w", err)
		}

		chosen := make(map[string]bool, len(chosenMedia))
		for _, id := range chosenMedia {
			chosen[id] = true
		}

		for _, media := range allMedia {
			if chosen[media.ID] {
				continue
			}
			if media.FilePath == nil || *media.FilePath == "" {
				continue
			}

			unwanted := &models.UnwantedMedia{
				ID:             uuid.New().String(),
				MediaContentID: media.ID,
				FilePath:       *media.FilePath,
				PostID:         postID,
			}
			if err := tx.Create(unwanted).Error; err != nil {
				return fmt.Errorf("failed to create unwanted media record: %w", err)
			}
			result.UnwantedCount++
		}

		return nil
	})
	if err != nil {
		r.logger.Error("Failed to create selection",
			zap.String("post_id", postID),
			zap.Error(err))
		return nil, err
	}

	r.logger.Info("Selection recorded",
		zap.String("post_id", postID),
		zap.String("selection_id", result.SelectionID),
		zap.Int("unwanted_count", result.UnwantedCount))

	return result, nil
}
