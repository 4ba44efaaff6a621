package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/aisocial/models"
	"github.com/cppla/aisocial/store"
)

func TestTimelineOrdering(t *testing.T) {
	f := newFixture(t)
	viewer, author, stranger := f.user(t, "viewer"), f.user(t, "author"), f.user(t, "stranger")
	require.NoError(t, f.svc.Graph.Follow(f.ctx, viewer.ID, author.ID))

	p1 := f.post(t, author, "p1")
	f.post(t, stranger, "not followed")
	p2 := f.post(t, author, "p2")
	own := f.post(t, viewer, "own")
	p3 := f.post(t, author, "p3")
	p4 := f.post(t, author, "p4")

	// page size is 2, so this crosses several keyset pages
	got, err := Collect(f.svc.Timeline.TimelineFor(f.ctx, viewer.ID), 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{p4.ID, p3.ID, own.ID, p2.ID, p1.ID}, ids(got))

	again, err := Collect(f.svc.Timeline.TimelineFor(f.ctx, viewer.ID), 0)
	require.NoError(t, err)
	assert.Equal(t, ids(got), ids(again))

	byAuthor, err := Collect(f.svc.Timeline.PostsBy(f.ctx, author.ID), 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{p4.ID, p3.ID, p2.ID, p1.ID}, ids(byAuthor))
}

func TestTimelineTiesAndResume(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st := store.NewMemoryWithClock(func() time.Time { return at })
	svc := New(st, nil, 2)

	u, err := svc.Accounts.Register(ctx, UserInput{Username: "u", Email: "u@x.io", PasswordHash: "h"})
	require.NoError(t, err)
	var posts []*models.Post
	for i := 0; i < 5; i++ {
		p, err := svc.Content.CreatePost(ctx, Actor{ID: u.ID}, PostInput{Caption: "same second"})
		require.NoError(t, err)
		posts = append(posts, p)
	}

	first, err := Collect(svc.Timeline.PostsBy(ctx, u.ID), 3)
	require.NoError(t, err)
	assert.Equal(t, []uint{posts[4].ID, posts[3].ID, posts[2].ID}, ids(first))

	cur := store.CursorOf(first[len(first)-1])
	parsed, err := store.ParseCursor(cur.String())
	require.NoError(t, err)
	assert.Equal(t, cur, parsed)

	rest, err := Collect(svc.Timeline.PostsByFrom(ctx, u.ID, &parsed), 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{posts[1].ID, posts[0].ID}, ids(rest))
}

func TestTimelineUnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := Collect(f.svc.Timeline.TimelineFor(f.ctx, 404), 0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = Collect(f.svc.Timeline.PostsBy(f.ctx, 404), 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTimelineStopsEarly(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "u")
	for i := 0; i < 5; i++ {
		f.post(t, u, "p")
	}
	n := 0
	for _, err := range f.svc.Timeline.TimelineFor(f.ctx, u.ID) {
		require.NoError(t, err)
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func ids(posts []models.Post) []uint {
	out := make([]uint, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}
