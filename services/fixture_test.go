package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cppla/aisocial/models"
	"github.com/cppla/aisocial/store"
)

type fixture struct {
	ctx context.Context
	st  *store.Memory
	svc *Services
	now time.Time
}

// newFixture returns services over an in-memory store whose clock advances one
// second per created entity.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{ctx: context.Background(), now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	f.st = store.NewMemoryWithClock(func() time.Time {
		f.now = f.now.Add(time.Second)
		return f.now
	})
	f.svc = New(f.st, nil, 2)
	return f
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := f.svc.Accounts.Register(f.ctx, UserInput{Username: name, Email: name + "@example.com", PasswordHash: "hash"})
	require.NoError(t, err)
	return u
}

func (f *fixture) post(t *testing.T, owner *models.User, caption string) *models.Post {
	t.Helper()
	p, err := f.svc.Content.CreatePost(f.ctx, Actor{ID: owner.ID}, PostInput{Caption: caption})
	require.NoError(t, err)
	return p
}

func (f *fixture) comment(t *testing.T, by *models.User, postID uint, text string) *models.Comment {
	t.Helper()
	c, err := f.svc.Content.CreateComment(f.ctx, Actor{ID: by.ID}, postID, text)
	require.NoError(t, err)
	return c
}

func (f *fixture) reply(t *testing.T, by *models.User, commentID uint, text string) *models.Comment {
	t.Helper()
	c, err := f.svc.Content.Reply(f.ctx, Actor{ID: by.ID}, commentID, text)
	require.NoError(t, err)
	return c
}

func (f *fixture) getUser(t *testing.T, id uint) *models.User {
	t.Helper()
	u, err := f.st.GetUser(f.ctx, id)
	require.NoError(t, err)
	return u
}

func (f *fixture) getPost(t *testing.T, id uint) *models.Post {
	t.Helper()
	p, err := f.st.GetPost(f.ctx, id)
	require.NoError(t, err)
	return p
}

func (f *fixture) getComment(t *testing.T, id uint) *models.Comment {
	t.Helper()
	c, err := f.st.GetComment(f.ctx, id)
	require.NoError(t, err)
	return c
}

// requireSymmetric checks B in A.following <=> A in B.followers over the given users.
func (f *fixture) requireSymmetric(t *testing.T, ids ...uint) {
	t.Helper()
	users := map[uint]*models.User{}
	for _, id := range ids {
		if u, err := f.st.GetUser(f.ctx, id); err == nil {
			users[id] = u
		}
	}
	for _, a := range users {
		require.NotContains(t, []uint(a.Following), a.ID, "user %d follows itself", a.ID)
		for _, b := range users {
			require.Equal(t,
				containsID(a.Following, b.ID), containsID(b.Followers, a.ID),
				"torn edge %d -> %d", a.ID, b.ID)
		}
		for _, id := range a.Following {
			_, ok := users[id]
			require.True(t, ok, "user %d follows missing user %d", a.ID, id)
		}
		for _, id := range a.Followers {
			_, ok := users[id]
			require.True(t, ok, "user %d followed by missing user %d", a.ID, id)
		}
	}
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// faultyStore fails Delete for one entity, also inside transactions.
type faultyStore struct {
	store.Store
	failOn store.Collection
	failID uint
}

func (s *faultyStore) Delete(ctx context.Context, c store.Collection, id uint) error {
	if c == s.failOn && id == s.failID {
		return store.ErrUnavailable
	}
	return s.Store.Delete(ctx, c, id)
}

func (s *faultyStore) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	return s.Store.Transaction(ctx, func(tx store.Store) error {
		return fn(&faultyStore{Store: tx, failOn: s.failOn, failID: s.failID})
	})
}
