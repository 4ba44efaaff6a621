package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/aisocial/models"
)

func TestMemoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	u := &models.User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, m.CreateUser(ctx, u))
	assert.NotZero(t, u.ID)

	got, err := m.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.NotNil(t, got.Followers)

	got.Username = "mallory"
	again, err := m.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Username, "returned documents must be copies")

	_, err = m.GetUser(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUniqueUser(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateUser(ctx, &models.User{Username: "alice", Email: "a@x.io"}))
	assert.ErrorIs(t, m.CreateUser(ctx, &models.User{Username: "alice", Email: "b@x.io"}), ErrConflict)

	bob := &models.User{Username: "bob", Email: "b@x.io"}
	require.NoError(t, m.CreateUser(ctx, bob))
	err := m.Update(ctx, Users, bob.ID, Update{Set: map[string]any{FieldUsername: "alice"}})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemoryUpdateSetSemantics(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	p := &models.Post{UserID: 1, Caption: "hi"}
	require.NoError(t, m.CreatePost(ctx, p))

	require.NoError(t, m.Update(ctx, Posts, p.ID, Update{AddToSet: map[string][]uint{FieldLikes: {7, 8}}}))
	require.NoError(t, m.Update(ctx, Posts, p.ID, Update{AddToSet: map[string][]uint{FieldLikes: {7}}}))
	require.NoError(t, m.Update(ctx, Posts, p.ID, Update{Pull: map[string][]uint{FieldLikes: {8, 42}}}))

	got, err := m.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{7}, []uint(got.Likes))
}

func TestMemoryUpdateRejectsUnknownFields(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u := &models.User{Username: "alice", Email: "a@x.io"}
	require.NoError(t, m.CreateUser(ctx, u))

	cases := []Update{
		{Set: map[string]any{FieldFollowers: []uint{2}}},
		{Set: map[string]any{"password": "x"}},
		{AddToSet: map[string][]uint{FieldLikes: {2}}},
		{Pull: map[string][]uint{FieldUsername: {2}}},
	}
	for _, up := range cases {
		assert.ErrorIs(t, m.Update(ctx, Users, u.ID, up), ErrInvalidField)
	}
	assert.ErrorIs(t, m.Update(ctx, Users, 999, Update{Set: map[string]any{FieldBio: "x"}}), ErrNotFound)
}

func TestMemoryTransactionRollback(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u := &models.User{Username: "alice", Email: "a@x.io"}
	require.NoError(t, m.CreateUser(ctx, u))

	boom := errors.New("boom")
	err := m.Transaction(ctx, func(tx Store) error {
		if err := tx.Update(ctx, Users, u.ID, Update{AddToSet: map[string][]uint{FieldFollowing: {2}}}); err != nil {
			return err
		}
		if err := tx.CreatePost(ctx, &models.Post{UserID: u.ID, Caption: "x"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := m.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Following)
	posts, err := m.FindPosts(ctx, PostFilter{})
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestMemoryFindPostsOrderingAndCursor(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryWithClock(func() time.Time { return base })

	// three posts sharing a timestamp, one newer
	for i := 0; i < 3; i++ {
		require.NoError(t, m.CreatePost(ctx, &models.Post{UserID: 1, Caption: "same"}))
	}
	require.NoError(t, m.CreatePost(ctx, &models.Post{UserID: 2, Caption: "new", CreatedAt: base.Add(time.Hour)}))

	all, err := m.FindPosts(ctx, PostFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, []uint{4, 3, 2, 1}, postIDs(all))

	page, err := m.FindPosts(ctx, PostFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []uint{4, 3}, postIDs(page))
	cur := CursorOf(page[1])
	rest, err := m.FindPosts(ctx, PostFilter{After: &cur})
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 1}, postIDs(rest))

	owned, err := m.FindPosts(ctx, PostFilter{Owners: []uint{2}})
	require.NoError(t, err)
	assert.Equal(t, []uint{4}, postIDs(owned))

	none, err := m.FindPosts(ctx, PostFilter{Owners: []uint{}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryFindComments(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateComment(ctx, &models.Comment{By: 1, ForPost: 10, Content: "a"}))
	require.NoError(t, m.CreateComment(ctx, &models.Comment{By: 2, ForPost: 10, Content: "b", Likes: []uint{1}}))
	require.NoError(t, m.CreateComment(ctx, &models.Comment{By: 1, ForPost: 11, Content: "c"}))

	byAuthor, err := m.FindComments(ctx, CommentFilter{By: 1})
	require.NoError(t, err)
	assert.Len(t, byAuthor, 2)

	liked, err := m.FindComments(ctx, CommentFilter{LikedBy: 1})
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.Equal(t, "b", liked[0].Content)

	onPost, err := m.FindComments(ctx, CommentFilter{ForPost: 10, By: 1})
	require.NoError(t, err)
	assert.Len(t, onPost, 1)
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	c := &models.Comment{By: 1, ForPost: 1, Content: "x"}
	require.NoError(t, m.CreateComment(ctx, c))
	require.NoError(t, m.Delete(ctx, Comments, c.ID))
	assert.ErrorIs(t, m.Delete(ctx, Comments, c.ID), ErrNotFound)
}

func postIDs(posts []models.Post) []uint {
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}
