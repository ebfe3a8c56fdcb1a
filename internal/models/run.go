package models

import (
	"time"
)

// WorkflowRun is an audit record of one workflow engine invocation.
type WorkflowRun struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	PostID string `gorm:"size:36;not null;index" json:"post_id"`

	Success    bool   `gorm:"default:false" json:"success"`
	Error      string `gorm:"type:text" json:"error"`
	DurationMS int64  `gorm:"default:0" json:"duration_ms"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
