package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePostRequiresContent(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")

	_, err := f.svc.Content.CreatePost(f.ctx, Actor{ID: alice.ID}, PostInput{Caption: "  ", Pictures: []string{" "}})
	assert.ErrorIs(t, err, ErrEmptyContent)

	p, err := f.svc.Content.CreatePost(f.ctx, Actor{ID: alice.ID}, PostInput{Pictures: []string{"a.png"}})
	require.NoError(t, err)
	assert.Equal(t, []uint{p.ID}, []uint(f.getUser(t, alice.ID).Posts))

	_, err = f.svc.Content.CreatePost(f.ctx, Actor{ID: 404}, PostInput{Caption: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePost(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	p := f.post(t, alice, "draft")

	caption := "final"
	_, err := f.svc.Content.UpdatePost(f.ctx, Actor{ID: bob.ID}, p.ID, PostPatch{Caption: &caption})
	assert.ErrorIs(t, err, ErrUnauthorized)

	got, err := f.svc.Content.UpdatePost(f.ctx, Actor{ID: alice.ID}, p.ID, PostPatch{Caption: &caption})
	require.NoError(t, err)
	assert.Equal(t, "final", got.Caption)

	empty := ""
	_, err = f.svc.Content.UpdatePost(f.ctx, Actor{ID: alice.ID}, p.ID, PostPatch{Caption: &empty})
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.Equal(t, "final", f.getPost(t, p.ID).Caption)
}

func TestCommentsAndReplies(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	p := f.post(t, alice, "x")

	_, err := f.svc.Content.CreateComment(f.ctx, Actor{ID: bob.ID}, p.ID, " \n")
	assert.ErrorIs(t, err, ErrEmptyContent)
	_, err = f.svc.Content.CreateComment(f.ctx, Actor{ID: bob.ID}, 404, "hello")
	assert.ErrorIs(t, err, ErrNotFound)

	c := f.comment(t, bob, p.ID, "hello")
	r := f.reply(t, alice, c.ID, "hi back")
	assert.Equal(t, p.ID, r.ForPost)
	assert.Equal(t, c.ID, r.ParentID)
	assert.Equal(t, []uint{c.ID}, []uint(f.getPost(t, p.ID).Comments), "replies stay out of the post list")
	assert.Equal(t, []uint{r.ID}, []uint(f.getComment(t, c.ID).Replies))

	_, err = f.svc.Content.EditComment(f.ctx, Actor{ID: alice.ID}, c.ID, "edited")
	assert.ErrorIs(t, err, ErrUnauthorized)
	edited, err := f.svc.Content.EditComment(f.ctx, Actor{ID: bob.ID}, c.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", edited.Content)
}
