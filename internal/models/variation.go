package models

import (
	"time"
)

// TextVariation is one generated candidate post body.
type TextVariation struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	PostID string `gorm:"size:36;not null;index" json:"post_id"`

	VariationNumber int    `gorm:"not null" json:"variation_number"`
	TextContent     string `gorm:"type:text;not null" json:"text_content"`
	ImagePrompts    string `gorm:"type:jsonb" json:"image_generation_prompts"`

	IsSelected bool `gorm:"default:false" json:"is_selected"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// MediaContent is one generated media artifact tied to a post.
type MediaContent struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	PostID string `gorm:"size:36;not null;index" json:"post_id"`

	MediaType        MediaType `gorm:"size:20;not null" json:"media_type"`
	VariationNumber  int       `gorm:"not null" json:"variation_number"`
	FilePath         *string   `gorm:"size:500" json:"file_path"`
	GenerationPrompt *string   `gorm:"type:text" json:"generation_prompt"`

	IsSelected bool `gorm:"default:false" json:"is_selected"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
