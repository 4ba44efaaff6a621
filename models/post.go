package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Post represents content published by a user.
// Likes and Unlikes never share an id; Comments holds top-level comment ids only.
type Post struct {
	ID        uint                        `gorm:"primaryKey" json:"id"`
	UserID    uint                        `gorm:"index;not null" json:"user"`
	Caption   string                      `gorm:"size:255" json:"caption"`
	Pictures  datatypes.JSONSlice[string] `gorm:"type:json" json:"pictures"`
	Likes     datatypes.JSONSlice[uint]   `gorm:"type:json" json:"likes"`
	Unlikes   datatypes.JSONSlice[uint]   `gorm:"type:json" json:"unlikes"`
	Comments  datatypes.JSONSlice[uint]   `gorm:"type:json" json:"comments"`
	CreatedAt time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

// BeforeCreate initialises set columns so they serialise as [] instead of null.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	p.Normalize()
	return nil
}

// Normalize replaces nil slices with empty ones.
func (p *Post) Normalize() {
	if p.Pictures == nil {
		p.Pictures = datatypes.JSONSlice[string]{}
	}
	if p.Likes == nil {
		p.Likes = datatypes.JSONSlice[uint]{}
	}
	if p.Unlikes == nil {
		p.Unlikes = datatypes.JSONSlice[uint]{}
	}
	if p.Comments == nil {
		p.Comments = datatypes.JSONSlice[uint]{}
	}
}

// HasContent reports whether the post carries a caption or at least one picture.
func (p *Post) HasContent() bool {
	return p.Caption != "" || len(p.Pictures) > 0
}
