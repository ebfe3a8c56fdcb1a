package models

import (
	"time"
)

// PostSelection is the user's final choice for a post, unique per post.
// Replacing a selection deletes the prior one together with its SelectedMedia rows.
type PostSelection struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	PostID string `gorm:"size:36;not null;uniqueIndex" json:"post_id"`

	TextVariationID string `gorm:"size:36;not null" json:"text_variation_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	SelectedMedia []SelectedMedia `gorm:"foreignKey:SelectionID;constraint:OnDelete:CASCADE" json:"selected_media,omitempty"`
}

// SelectedMedia joins a selection to one chosen MediaContent.
type SelectedMedia struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	SelectionID string `gorm:"size:36;not null;index" json:"selection_id"`

	MediaContentID string `gorm:"size:36;not null" json:"media_content_id"`
}

// UnwantedMedia marks a generated artifact for deferred deletion by the
// cleanup sweeper. Duplicate rows for the same media content across
// reselections are acceptable.
type UnwantedMedia struct {
	ID             string `gorm:"primaryKey;size:36" json:"id"`
	MediaContentID string `gorm:"size:36;not null" json:"media_content_id"`
	FilePath       string `gorm:"size:500;not null" json:"file_path"`
	PostID         string `gorm:"size:36;not null;index" json:"post_id"`

	MarkedAt time.Time `gorm:"autoCreateTime;index" json:"marked_at"`
}
