package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/aisocial/store"
)

func TestDeleteUserCascades(t *testing.T) {
	f := newFixture(t)
	u, other, fan := f.user(t, "u"), f.user(t, "other"), f.user(t, "fan")
	require.NoError(t, f.svc.Graph.Follow(f.ctx, u.ID, other.ID))
	require.NoError(t, f.svc.Graph.Follow(f.ctx, fan.ID, u.ID))

	p := f.post(t, u, "mine")
	c1 := f.comment(t, other, p.ID, "first")
	c2 := f.reply(t, fan, c1.ID, "reply")

	// u's footprint on someone else's post
	op := f.post(t, other, "theirs")
	elsewhere := f.comment(t, u, op.ID, "drive-by")
	nested := f.reply(t, u, f.comment(t, fan, op.ID, "thread").ID, "nested")
	_, err := f.svc.Reactions.ToggleLike(f.ctx, op.ID, u.ID)
	require.NoError(t, err)
	kept := f.comment(t, other, op.ID, "stays")
	_, err = f.svc.Reactions.ToggleCommentLike(f.ctx, kept.ID, u.ID)
	require.NoError(t, err)

	removed, err := f.svc.Cascade.DeleteUser(f.ctx, Actor{ID: u.ID}, u.ID)
	require.NoError(t, err)
	assert.Equal(t, Removed{Users: 1, Posts: 1, Comments: 4}, removed)

	for _, err := range []error{
		errOf(f.st.GetUser(f.ctx, u.ID)),
		errOf(f.st.GetPost(f.ctx, p.ID)),
		errOf(f.st.GetComment(f.ctx, c1.ID)),
		errOf(f.st.GetComment(f.ctx, c2.ID)),
		errOf(f.st.GetComment(f.ctx, elsewhere.ID)),
		errOf(f.st.GetComment(f.ctx, nested.ID)),
	} {
		assert.ErrorIs(t, err, store.ErrNotFound)
	}

	f.requireSymmetric(t, u.ID, other.ID, fan.ID)
	assert.Empty(t, f.getUser(t, other.ID).Followers)
	assert.Empty(t, f.getUser(t, fan.ID).Following)

	theirs := f.getPost(t, op.ID)
	assert.NotContains(t, []uint(theirs.Comments), elsewhere.ID)
	assert.Empty(t, theirs.Likes)
	assert.Empty(t, f.getComment(t, kept.ID).Likes)
	thread := f.getComment(t, theirs.Comments[0])
	assert.Empty(t, thread.Replies)
}

func TestDeletePostLeavesNoDanglingReference(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	keep := f.post(t, alice, "keep")
	p := f.post(t, alice, "doomed")
	c1 := f.comment(t, bob, p.ID, "one")
	c2 := f.comment(t, alice, p.ID, "two")
	r := f.reply(t, bob, c2.ID, "three")

	removed, err := f.svc.Cascade.DeletePost(f.ctx, Actor{ID: alice.ID}, p.ID)
	require.NoError(t, err)
	assert.Equal(t, Removed{Posts: 1, Comments: 3}, removed)

	assert.Equal(t, []uint{keep.ID}, []uint(f.getUser(t, alice.ID).Posts))
	for _, id := range []uint{c1.ID, c2.ID, r.ID} {
		assert.ErrorIs(t, errOf(f.st.GetComment(f.ctx, id)), store.ErrNotFound)
	}
}

func TestDeletePostRemovesOrphanComments(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	p := f.post(t, alice, "x")
	c := f.comment(t, alice, p.ID, "orphan")
	require.NoError(t, f.st.Update(f.ctx, store.Posts, p.ID, store.Update{
		Pull: map[string][]uint{store.FieldComments: {c.ID}},
	}))

	_, err := f.svc.Cascade.DeletePost(f.ctx, Actor{ID: alice.ID}, p.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, errOf(f.st.GetComment(f.ctx, c.ID)), store.ErrNotFound)
}

func TestDeleteReplyDetachesFromParent(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	p := f.post(t, alice, "x")
	parent := f.comment(t, alice, p.ID, "parent")
	r1 := f.reply(t, bob, parent.ID, "r1")
	r2 := f.reply(t, bob, parent.ID, "r2")

	_, err := f.svc.Cascade.DeleteComment(f.ctx, Actor{ID: bob.ID}, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{r2.ID}, []uint(f.getComment(t, parent.ID).Replies))
	assert.Equal(t, []uint{parent.ID}, []uint(f.getPost(t, p.ID).Comments))
}

func TestDeleteCommentTwice(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	p := f.post(t, alice, "x")
	c := f.comment(t, alice, p.ID, "bye")
	other := f.comment(t, alice, p.ID, "stay")

	_, err := f.svc.Cascade.DeleteComment(f.ctx, Actor{ID: alice.ID}, c.ID)
	require.NoError(t, err)
	before := f.getPost(t, p.ID)

	_, err = f.svc.Cascade.DeleteComment(f.ctx, Actor{ID: alice.ID}, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, before, f.getPost(t, p.ID))
	assert.Equal(t, []uint{other.ID}, []uint(before.Comments))
}

func TestDeleteRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	p := f.post(t, alice, "x")
	c := f.comment(t, alice, p.ID, "mine")

	_, err := f.svc.Cascade.DeletePost(f.ctx, Actor{ID: bob.ID}, p.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.Cascade.DeleteComment(f.ctx, Actor{ID: bob.ID}, c.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.Cascade.DeleteUser(f.ctx, Actor{ID: bob.ID}, alice.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// a missing user is reported as such, whoever asks
	_, err = f.svc.Cascade.DeleteUser(f.ctx, Actor{ID: bob.ID}, 404)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Cascade.DeleteUser(f.ctx, Actor{ID: bob.ID, IsAdmin: true}, 404)
	assert.ErrorIs(t, err, ErrNotFound)
	f.getPost(t, p.ID)

	_, err = f.svc.Cascade.DeletePost(f.ctx, Actor{ID: bob.ID, IsAdmin: true}, p.ID)
	assert.NoError(t, err)
}

func TestCascadeFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	p := f.post(t, alice, "x")
	c1 := f.comment(t, bob, p.ID, "one")
	c2 := f.comment(t, bob, p.ID, "two")

	cascade := NewCascade(&faultyStore{Store: f.st, failOn: store.Comments, failID: c2.ID}, nil)
	_, err := cascade.DeletePost(f.ctx, Actor{ID: alice.ID}, p.ID)

	var cf *CascadeFailure
	require.True(t, errors.As(err, &cf))
	assert.Equal(t, store.Comments, cf.Entity)
	assert.Equal(t, c2.ID, cf.ID)
	assert.Equal(t, "delete record", cf.Step)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	// the first comment's deletion was rolled back with the rest
	f.getComment(t, c1.ID)
	assert.Equal(t, []uint{c1.ID, c2.ID}, []uint(f.getPost(t, p.ID).Comments))
	assert.Equal(t, []uint{p.ID}, []uint(f.getUser(t, alice.ID).Posts))
}

func errOf[T any](_ T, err error) error { return err }
