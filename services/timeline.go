package services

import (
	"context"
	"fmt"
	"iter"

	"github.com/cppla/aisocial/models"
	"github.com/cppla/aisocial/store"
	"github.com/cppla/aisocial/utils"
)

const defaultPageSize = 20

// Timeline materialises post feeds from the follow graph. It never writes.
type Timeline struct {
	store    store.Store
	pageSize int
}

// NewTimeline returns a composer fetching pageSize posts per store round trip.
func NewTimeline(st store.Store, pageSize int) *Timeline {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Timeline{store: st, pageSize: pageSize}
}

// TimelineFor yields the posts of userID and of everyone userID follows, most recent
// first. Ties on CreatedAt are broken by descending id.
func (t *Timeline) TimelineFor(ctx context.Context, userID uint) iter.Seq2[models.Post, error] {
	return t.TimelineFrom(ctx, userID, nil)
}

// TimelineFrom resumes TimelineFor strictly after the given cursor. A nil cursor starts at the top.
func (t *Timeline) TimelineFrom(ctx context.Context, userID uint, after *store.Cursor) iter.Seq2[models.Post, error] {
	return func(yield func(models.Post, error) bool) {
		u, err := t.store.GetUser(ctx, userID)
		if err != nil {
			yield(models.Post{}, fmt.Errorf("user %d: %w", userID, err))
			return
		}
		owners := utils.UniqueUint(append([]uint{u.ID}, u.Following...))
		t.pages(ctx, owners, after, yield)
	}
}

// PostsBy yields the posts owned by userID, most recent first.
func (t *Timeline) PostsBy(ctx context.Context, userID uint) iter.Seq2[models.Post, error] {
	return t.PostsByFrom(ctx, userID, nil)
}

// PostsByFrom resumes PostsBy strictly after the given cursor.
func (t *Timeline) PostsByFrom(ctx context.Context, userID uint, after *store.Cursor) iter.Seq2[models.Post, error] {
	return func(yield func(models.Post, error) bool) {
		if _, err := t.store.GetUser(ctx, userID); err != nil {
			yield(models.Post{}, fmt.Errorf("user %d: %w", userID, err))
			return
		}
		t.pages(ctx, []uint{userID}, after, yield)
	}
}

func (t *Timeline) pages(ctx context.Context, owners []uint, after *store.Cursor, yield func(models.Post, error) bool) {
	for {
		if err := ctx.Err(); err != nil {
			yield(models.Post{}, err)
			return
		}
		page, err := t.store.FindPosts(ctx, store.PostFilter{Owners: owners, After: after, Limit: t.pageSize})
		if err != nil {
			yield(models.Post{}, fmt.Errorf("list posts: %w", err))
			return
		}
		for _, p := range page {
			if !yield(p, nil) {
				return
			}
		}
		if len(page) < t.pageSize {
			return
		}
		cur := store.CursorOf(page[len(page)-1])
		after = &cur
	}
}

// Collect drains seq into a slice, stopping after limit posts when limit > 0.
func Collect(seq iter.Seq2[models.Post, error], limit int) ([]models.Post, error) {
	out := []models.Post{}
	for p, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
