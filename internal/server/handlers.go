package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/codevault-labs/postgen/internal/models"
	"github.com/codevault-labs/postgen/internal/service"
)

type dataSourceInput struct {
	Type    string `json:"type" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type createPostRequest struct {
	DataSources          []dataSourceInput `json:"data_sources" binding:"required"`
	LanguageTone         string            `json:"language_tone" binding:"required"`
	MediaContentNeeded   string            `json:"media_content_needed" binding:"required"`
	ContentType          string            `json:"content_type" binding:"required"`
	TextVariationsCount  *int              `json:"text_variations_count"`
	MediaVariationsCount *int              `json:"media_variations_count"`
}

type selectVariationsRequest struct {
	TextVariationID string   `json:"text_variation_id" binding:"required"`
	ImageIDs        []string `json:"image_ids"`
	VideoIDs        []string `json:"video_ids"`
}

// validate checks everything the persistence layer does not, so a bad
// request never leaves any rows behind.
func (r *createPostRequest) validate() ([]service.DataSourceInput, error) {
	if len(r.DataSources) == 0 {
		return nil, fmt.Errorf("at least one data source is required")
	}

	sources := make([]service.DataSourceInput, 0, len(r.DataSources))
	for i, ds := range r.DataSources {
		content := strings.TrimSpace(ds.Content)
		if content == "" {
			return nil, fmt.Errorf("data source %d: content cannot be empty", i+1)
		}

		switch models.DataSourceType(ds.Type) {
		case models.DataSourceTypeText:
		case models.DataSourceTypeLink:
			if !strings.HasPrefix(content, "http://") && !strings.HasPrefix(content, "https://") {
				return nil, fmt.Errorf("data source %d: link must start with http:// or https://", i+1)
			}
		default:
			return nil, fmt.Errorf("data source %d: invalid type %q", i+1, ds.Type)
		}

		sources = append(sources, service.DataSourceInput{
			Type:    models.DataSourceType(ds.Type),
			Content: content,
		})
	}

	if strings.TrimSpace(r.LanguageTone) == "" {
		return nil, fmt.Errorf("language_tone cannot be empty")
	}

	switch models.MediaType(r.MediaContentNeeded) {
	case models.MediaTypeImage, models.MediaTypeVideo, models.MediaTypeBoth, models.MediaTypeNone:
	default:
		return nil, fmt.Errorf("invalid media_content_needed %q", r.MediaContentNeeded)
	}

	switch models.ContentType(r.ContentType) {
	case models.ContentTypeLongForm, models.ContentTypeShortForm:
	default:
		return nil, fmt.Errorf("invalid content_type %q", r.ContentType)
	}

	if r.TextVariationsCount != nil && (*r.TextVariationsCount < 1 || *r.TextVariationsCount > 10) {
		return nil, fmt.Errorf("text_variations_count must be between 1 and 10")
	}
	if r.MediaVariationsCount != nil && (*r.MediaVariationsCount < 1 || *r.MediaVariationsCount > 10) {
		return nil, fmt.Errorf("media_variations_count must be between 1 and 10")
	}

	return sources, nil
}

func (r *createPostRequest) counts() (int, int) {
	textCount, mediaCount := 3, 3
	if r.TextVariationsCount != nil {
		textCount = *r.TextVariationsCount
	}
	if r.MediaVariationsCount != nil {
		mediaCount = *r.MediaVariationsCount
	}
	return textCount, mediaCount
}

func (s *Server) handleCreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sources, err := req.validate()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	textCount, mediaCount := req.counts()
	post, err := s.Store.CreatePost(
		sources,
		strings.TrimSpace(req.LanguageTone),
		models.MediaType(req.MediaContentNeeded),
		models.ContentType(req.ContentType),
		textCount, mediaCount,
	)
	if err != nil {
		s.Logger.Error("Failed to create post", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"post_id":       post.ID,
		"status":        post.Status,
		"message":       "Post created successfully. Connect to WebSocket for live updates.",
		"websocket_url": fmt.Sprintf("/api/v1/posts/%s/updates", post.ID),
	})
}

func (s *Server) handleGetPost(c *gin.Context) {
	post, err := s.Store.GetPost(c.Param("id"), true)
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		s.Logger.Error("Failed to get post", zap.String("post_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get post"})
		return
	}

	c.JSON(http.StatusOK, post)
}

func (s *Server) handleSelectVariations(c *gin.Context) {
	postID := c.Param("id")

	var req selectVariationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.TextVariationID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text_variation_id is required"})
		return
	}
	if hasDuplicates(req.ImageIDs) || hasDuplicates(req.VideoIDs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duplicate media IDs are not allowed"})
		return
	}

	result, err := s.Reconciler.Select(postID, strings.TrimSpace(req.TextVariationID), req.ImageIDs, req.VideoIDs)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPostNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		case errors.Is(err, service.ErrVariationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Text variation not found"})
		case errors.Is(err, service.ErrPostNotCompleted):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Post generation is not completed yet"})
		default:
			s.Logger.Error("Failed to create selection", zap.String("post_id", postID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create selection"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":              true,
		"message":              "Variations selected successfully. Unwanted media marked for cleanup.",
		"selection_id":         result.SelectionID,
		"unwanted_media_count": result.UnwantedCount,
	})
}

func hasDuplicates(ids []string) bool {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return true
		}
		seen[id] = true
	}
	return false
}
