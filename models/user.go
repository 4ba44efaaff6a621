package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User represents an account. Passwords are stored as bcrypt hashes only.
//
// Followers, Following and Posts are structural id sets maintained by the
// follow graph and content managers; they are never written from a profile patch.
type User struct {
	ID             uint                      `gorm:"primaryKey" json:"id"`
	Username       string                    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email          string                    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash   string                    `gorm:"size:255" json:"-"`
	ProfilePicture string                    `gorm:"size:512" json:"profile_picture"`
	CoverPicture   string                    `gorm:"size:512" json:"cover_picture"`
	Bio            string                    `gorm:"size:255" json:"bio"`
	CurrentCity    string                    `gorm:"size:64" json:"current_city"`
	Hometown       string                    `gorm:"size:64" json:"hometown"`
	IsAdmin        bool                      `gorm:"default:false" json:"is_admin"`
	Followers      datatypes.JSONSlice[uint] `gorm:"type:json" json:"followers"`
	Following      datatypes.JSONSlice[uint] `gorm:"type:json" json:"following"`
	Posts          datatypes.JSONSlice[uint] `gorm:"type:json" json:"posts"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

// BeforeCreate hook ensures timestamps and set columns are initialised.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	u.Normalize()
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

// Normalize replaces nil id sets with empty ones so they serialise as [] instead of null.
func (u *User) Normalize() {
	if u.Followers == nil {
		u.Followers = datatypes.JSONSlice[uint]{}
	}
	if u.Following == nil {
		u.Following = datatypes.JSONSlice[uint]{}
	}
	if u.Posts == nil {
		u.Posts = datatypes.JSONSlice[uint]{}
	}
}
