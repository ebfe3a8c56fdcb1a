package models

import (
	"time"
)

// PostStatus tracks a post through its generation lifecycle.
type PostStatus string

const (
	PostStatusPending           PostStatus = "pending"
	PostStatusProcessingContext PostStatus = "processing_context"
	PostStatusGeneratingText    PostStatus = "generating_text"
	PostStatusGeneratingMedia   PostStatus = "generating_media"
	PostStatusCompleted         PostStatus = "completed"
	PostStatusFailed            PostStatus = "failed"
)

// Terminal reports whether no further transitions are allowed from the status.
func (s PostStatus) Terminal() bool {
	return s == PostStatusCompleted || s == PostStatusFailed
}

// MediaType is the kind of media content requested or generated.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
	MediaTypeBoth  MediaType = "both"
	MediaTypeNone  MediaType = "none"
)

// ContentType selects the length class of generated text.
type ContentType string

const (
	ContentTypeLongForm  ContentType = "LongForm"
	ContentTypeShortForm ContentType = "ShortForm"
)

// DataSourceType distinguishes inline text from URLs to scrape.
type DataSourceType string

const (
	DataSourceTypeText DataSourceType = "text"
	DataSourceTypeLink DataSourceType = "link"
)

// Post is one social media post generation request and its output tree.
type Post struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	LanguageTone         string      `gorm:"type:text;not null" json:"language_tone"`
	MediaContentNeeded   MediaType   `gorm:"size:20;not null" json:"media_content_needed"`
	ContentType          ContentType `gorm:"size:20;not null" json:"content_type"`
	TextVariationsCount  int         `gorm:"default:3" json:"text_variations_count"`
	MediaVariationsCount int         `gorm:"default:3" json:"media_variations_count"`

	Status       PostStatus `gorm:"size:50;default:'pending';index" json:"status"`
	CurrentStep  *string    `gorm:"type:text" json:"current_step"`
	ErrorMessage *string    `gorm:"type:text" json:"error_message"`

	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	DataSources    []DataSource    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"data_sources,omitempty"`
	TextVariations []TextVariation `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"text_variations,omitempty"`
	MediaContents  []MediaContent  `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"media_contents,omitempty"`
	Selection      *PostSelection  `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"selection,omitempty"`
}

// DataSource is one unit of input context, either raw text or a URL.
type DataSource struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	PostID string `gorm:"size:36;not null;index" json:"post_id"`

	SourceType    DataSourceType `gorm:"size:20;not null" json:"type"`
	Content       string         `gorm:"type:text;not null" json:"content"`
	IsValid       bool           `gorm:"default:false" json:"is_valid"`
	ExtractedText *string        `gorm:"type:text" json:"extracted_text"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
