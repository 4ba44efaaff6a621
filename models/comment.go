package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Comment represents a comment on a post or a reply to another comment.
// ParentID is zero for top-level comments; replies share ForPost with their parent.
type Comment struct {
	ID        uint                      `gorm:"primaryKey" json:"id"`
	By        uint                      `gorm:"column:author_id;index;not null" json:"by"`
	ForPost   uint                      `gorm:"index;not null" json:"for_post"`
	ParentID  uint                      `gorm:"index;default:0" json:"parent_id,omitempty"`
	Content   string                    `gorm:"type:text;not null" json:"content"`
	Likes     datatypes.JSONSlice[uint] `gorm:"type:json" json:"likes"`
	Replies   datatypes.JSONSlice[uint] `gorm:"type:json" json:"replies"`
	CreatedAt time.Time                 `json:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// BeforeCreate initialises set columns so they serialise as [] instead of null.
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	c.Normalize()
	return nil
}

// Normalize replaces nil id sets with empty ones.
func (c *Comment) Normalize() {
	if c.Likes == nil {
		c.Likes = datatypes.JSONSlice[uint]{}
	}
	if c.Replies == nil {
		c.Replies = datatypes.JSONSlice[uint]{}
	}
}

// IsReply reports whether the comment lives in another comment's replies.
func (c *Comment) IsReply() bool {
	return c.ParentID != 0
}
