package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterConflicts(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice")

	_, err := f.svc.Accounts.Register(f.ctx, UserInput{Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = f.svc.Accounts.Register(f.ctx, UserInput{Username: "alice2", Email: "ALICE@example.com"})
	assert.ErrorIs(t, err, ErrConflict)

	u, err := f.svc.Accounts.FindByEmail(f.ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	bio := "hello"
	yes := true

	_, err := f.svc.Accounts.UpdateUser(f.ctx, Actor{ID: bob.ID}, alice.ID, UserPatch{Bio: &bio})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.Accounts.UpdateUser(f.ctx, Actor{ID: alice.ID}, alice.ID, UserPatch{IsAdmin: &yes})
	assert.ErrorIs(t, err, ErrUnauthorized)

	u, err := f.svc.Accounts.UpdateUser(f.ctx, Actor{ID: alice.ID}, alice.ID, UserPatch{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "hello", u.Bio)

	taken := "bob"
	_, err = f.svc.Accounts.UpdateUser(f.ctx, Actor{ID: alice.ID}, alice.ID, UserPatch{Username: &taken})
	assert.ErrorIs(t, err, ErrConflict)

	u, err = f.svc.Accounts.UpdateUser(f.ctx, Actor{ID: bob.ID, IsAdmin: true}, alice.ID, UserPatch{IsAdmin: &yes})
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)
}
