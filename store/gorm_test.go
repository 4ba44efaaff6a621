package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/cppla/aisocial/models"
)

// dryRunStore renders SQL without a server: the driver opens lazily and DryRun skips execution.
func dryRunStore(t *testing.T, inTx bool) *GormStore {
	t.Helper()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "user:pass@tcp(127.0.0.1:3306)/aisocial?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return &GormStore{db: db, inTx: inTx}
}

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil))
	assert.ErrorIs(t, mapErr(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, mapErr(gorm.ErrDuplicatedKey), ErrConflict)

	err := mapErr(errors.New("connection refused"))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGormUpdateRejectsFieldsOutsideWhitelist(t *testing.T) {
	// validation happens before any database access
	s := NewGormStore(nil)
	ctx := context.Background()

	err := s.Update(ctx, Posts, 1, Update{Set: map[string]any{FieldFollowers: []uint{2}}})
	assert.ErrorIs(t, err, ErrInvalidField)
	err = s.Update(ctx, Users, 1, Update{AddToSet: map[string][]uint{FieldLikes: {2}}})
	assert.ErrorIs(t, err, ErrInvalidField)
	err = s.Update(ctx, Comments, 1, Update{Set: map[string]any{FieldLikes: []uint{2}}})
	assert.ErrorIs(t, err, ErrInvalidField)

	assert.NoError(t, s.Update(ctx, Posts, 1, Update{}))

	_, err = s.FindUserBy(ctx, FieldBio, "x")
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestGormFindPostsEmptyOwners(t *testing.T) {
	posts, err := NewGormStore(nil).FindPosts(context.Background(), PostFilter{Owners: []uint{}})
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestGormTransactionJoinsOuter(t *testing.T) {
	outer := &GormStore{inTx: true}
	called := false
	err := outer.Transaction(context.Background(), func(tx Store) error {
		called = true
		assert.Same(t, outer, tx)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	boom := errors.New("boom")
	assert.ErrorIs(t, outer.Transaction(context.Background(), func(Store) error { return boom }), boom)
}

func TestGormPostsQuery(t *testing.T) {
	s := dryRunStore(t, false)
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	sql := s.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		q := &GormStore{db: tx}
		return q.postsQuery(ctx, PostFilter{
			Owners:    []uint{1, 2},
			ReactedBy: 7,
			After:     &Cursor{CreatedAt: at, ID: 9},
			Limit:     5,
		}).Find(&[]models.Post{})
	})
	assert.Contains(t, sql, "user_id IN (1,2)")
	assert.Contains(t, sql, "JSON_CONTAINS(likes, '7') OR JSON_CONTAINS(unlikes, '7')")
	assert.Contains(t, sql, "created_at < ")
	assert.Contains(t, sql, "id < 9")
	assert.Contains(t, sql, "ORDER BY created_at DESC,id DESC")
	assert.Contains(t, sql, "LIMIT 5")
	assert.NotContains(t, sql, "FOR UPDATE")
}

func TestGormReadsLockInsideTransaction(t *testing.T) {
	s := dryRunStore(t, true)
	ctx := context.Background()

	sql := s.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		q := &GormStore{db: tx, inTx: true}
		return q.commentsQuery(ctx, CommentFilter{ForPost: 3, LikedBy: 4}).Find(&[]models.Comment{})
	})
	assert.Contains(t, sql, "for_post = 3")
	assert.Contains(t, sql, "JSON_CONTAINS(likes, '4')")
	assert.Contains(t, sql, "ORDER BY id ASC")
	assert.Contains(t, sql, "FOR UPDATE")
}
