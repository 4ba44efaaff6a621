// Package store is the entity store adapter: id-addressed access to the users,
// posts and comments collections plus the secondary lookups the graph engine needs.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cppla/aisocial/models"
)

// Collection names one of the three entity collections.
type Collection string

const (
	Users    Collection = "users"
	Posts    Collection = "posts"
	Comments Collection = "comments"
)

var (
	// ErrNotFound is returned when the referenced entity is absent.
	ErrNotFound = errors.New("entity not found")
	// ErrUnavailable wraps any failure of the underlying storage engine.
	ErrUnavailable = errors.New("store unavailable")
	// ErrConflict is returned when a unique field (username, email) is already taken.
	ErrConflict = errors.New("unique field already taken")
	// ErrInvalidField is returned when an update names a field outside the collection's whitelist.
	ErrInvalidField = errors.New("field is not updatable")
)

// Set-valued fields. They can only be changed through Update.AddToSet and Update.Pull.
const (
	FieldFollowers = "followers"
	FieldFollowing = "following"
	FieldPosts     = "posts"
	FieldLikes     = "likes"
	FieldUnlikes   = "unlikes"
	FieldComments  = "comments"
	FieldReplies   = "replies"
)

// Scalar fields accepted by Update.Set.
const (
	FieldUsername       = "username"
	FieldEmail          = "email"
	FieldPasswordHash   = "password_hash"
	FieldProfilePicture = "profile_picture"
	FieldCoverPicture   = "cover_picture"
	FieldBio            = "bio"
	FieldCurrentCity    = "current_city"
	FieldHometown       = "hometown"
	FieldIsAdmin        = "is_admin"
	FieldCaption        = "caption"
	FieldPictures       = "pictures"
	FieldContent        = "content"
)

var scalarFields = map[Collection][]string{
	Users: {FieldUsername, FieldEmail, FieldPasswordHash, FieldProfilePicture, FieldCoverPicture,
		FieldBio, FieldCurrentCity, FieldHometown, FieldIsAdmin},
	Posts:    {FieldCaption, FieldPictures},
	Comments: {FieldContent},
}

var setFields = map[Collection][]string{
	Users:    {FieldFollowers, FieldFollowing, FieldPosts},
	Posts:    {FieldLikes, FieldUnlikes, FieldComments},
	Comments: {FieldLikes, FieldReplies},
}

// Update is a partial document update. Set replaces scalar fields, AddToSet appends
// ids not already present and Pull removes ids if present. AddToSet is applied before Pull.
type Update struct {
	Set      map[string]any
	AddToSet map[string][]uint
	Pull     map[string][]uint
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return len(u.Set) == 0 && len(u.AddToSet) == 0 && len(u.Pull) == 0
}

// Columns lists the columns touched by the update.
func (u Update) Columns() []string {
	seen := map[string]bool{}
	cols := []string{}
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			cols = append(cols, f)
		}
	}
	for f := range u.Set {
		add(f)
	}
	for f := range u.AddToSet {
		add(f)
	}
	for f := range u.Pull {
		add(f)
	}
	return cols
}

// Validate checks every field named by u against the collection's whitelist.
func Validate(c Collection, u Update) error {
	if _, ok := setFields[c]; !ok {
		return fmt.Errorf("unknown collection %q", c)
	}
	for f := range u.Set {
		if !contains(scalarFields[c], f) {
			return fmt.Errorf("%w: %s.%s", ErrInvalidField, c, f)
		}
	}
	for f := range u.AddToSet {
		if !contains(setFields[c], f) {
			return fmt.Errorf("%w: %s.%s", ErrInvalidField, c, f)
		}
	}
	for f := range u.Pull {
		if !contains(setFields[c], f) {
			return fmt.Errorf("%w: %s.%s", ErrInvalidField, c, f)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Cursor marks a position in a recency-ordered post listing.
type Cursor struct {
	CreatedAt time.Time
	ID        uint
}

// CursorOf returns the cursor positioned on p.
func CursorOf(p models.Post) Cursor {
	return Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
}

// PostFilter selects posts. Results are ordered by CreatedAt descending, then ID descending.
type PostFilter struct {
	// Owners restricts to posts owned by these users. Nil means any owner; an empty
	// non-nil slice matches nothing.
	Owners []uint
	// ReactedBy matches posts whose likes or unlikes contain this user.
	ReactedBy uint
	// After resumes the listing strictly after the cursor.
	After *Cursor
	Limit int
}

// CommentFilter selects comments; zero fields are ignored. Results are ordered by ID.
type CommentFilter struct {
	By      uint
	ForPost uint
	LikedBy uint
}

// Store is the entity store adapter consumed by the graph services.
type Store interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetPost(ctx context.Context, id uint) (*models.Post, error)
	GetComment(ctx context.Context, id uint) (*models.Comment, error)

	CreateUser(ctx context.Context, u *models.User) error
	CreatePost(ctx context.Context, p *models.Post) error
	CreateComment(ctx context.Context, c *models.Comment) error

	// Update applies u to the document c/id, reading the current document state.
	Update(ctx context.Context, c Collection, id uint, u Update) error
	Delete(ctx context.Context, c Collection, id uint) error

	// FindUserBy looks a user up by a unique field (username or email).
	FindUserBy(ctx context.Context, field, value string) (*models.User, error)
	FindPosts(ctx context.Context, f PostFilter) ([]models.Post, error)
	FindComments(ctx context.Context, f CommentFilter) ([]models.Comment, error)

	// Transaction runs fn as one atomic unit. Reads made through tx observe and lock
	// the current committed state; returning an error rolls every write back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// String encodes the cursor as "<unix-nanos>.<id>" for use in query strings.
func (c Cursor) String() string {
	return strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + "." + strconv.FormatUint(uint64(c.ID), 10)
}

// ParseCursor decodes a value produced by Cursor.String.
func ParseCursor(s string) (Cursor, error) {
	ts, id, ok := strings.Cut(s, ".")
	if !ok {
		return Cursor{}, fmt.Errorf("malformed cursor %q", s)
	}
	nanos, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("malformed cursor %q: %w", s, err)
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("malformed cursor %q: %w", s, err)
	}
	return Cursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: uint(n)}, nil
}
