package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/aisocial/models"
)

// GormStore implements Store on top of a relational database through GORM.
// Set-valued fields live in JSON columns; inside a transaction every read takes a
// row lock (SELECT ... FOR UPDATE) so read-modify-write cycles see the current row.
type GormStore struct {
	db   *gorm.DB
	inTx bool
}

// NewGormStore wraps an initialised gorm DB.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) read(ctx context.Context) *gorm.DB {
	q := s.db.WithContext(ctx)
	if s.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

type normalizer interface {
	Normalize()
}

func first[T any, PT interface {
	*T
	normalizer
}](q *gorm.DB, id uint) (*T, error) {
	var v T
	if err := q.First(&v, id).Error; err != nil {
		return nil, mapErr(err)
	}
	PT(&v).Normalize()
	return &v, nil
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return first[models.User](s.read(ctx), id)
}

func (s *GormStore) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return first[models.Post](s.read(ctx), id)
}

func (s *GormStore) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	return first[models.Comment](s.read(ctx), id)
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	return mapErr(s.db.WithContext(ctx).Create(u).Error)
}

func (s *GormStore) CreatePost(ctx context.Context, p *models.Post) error {
	return mapErr(s.db.WithContext(ctx).Create(p).Error)
}

func (s *GormStore) CreateComment(ctx context.Context, c *models.Comment) error {
	return mapErr(s.db.WithContext(ctx).Create(c).Error)
}

// Update locks the row, applies up to the current document and writes back only
// the touched columns.
func (s *GormStore) Update(ctx context.Context, c Collection, id uint, up Update) error {
	if err := Validate(c, up); err != nil {
		return err
	}
	if up.Empty() {
		return nil
	}
	cols := append(up.Columns(), "updated_at")
	return s.Transaction(ctx, func(txs Store) error {
		tx := txs.(*GormStore)
		switch c {
		case Users:
			u, err := tx.GetUser(ctx, id)
			if err != nil {
				return err
			}
			if err := applyUser(u, up); err != nil {
				return err
			}
			return tx.save(ctx, u, cols)
		case Posts:
			p, err := tx.GetPost(ctx, id)
			if err != nil {
				return err
			}
			if err := applyPost(p, up); err != nil {
				return err
			}
			return tx.save(ctx, p, cols)
		default:
			cm, err := tx.GetComment(ctx, id)
			if err != nil {
				return err
			}
			if err := applyComment(cm, up); err != nil {
				return err
			}
			return tx.save(ctx, cm, cols)
		}
	})
}

func (s *GormStore) save(ctx context.Context, model any, cols []string) error {
	return mapErr(s.db.WithContext(ctx).Model(model).Select(cols).Updates(model).Error)
}

func (s *GormStore) Delete(ctx context.Context, c Collection, id uint) error {
	var model any
	switch c {
	case Users:
		model = &models.User{}
	case Posts:
		model = &models.Post{}
	case Comments:
		model = &models.Comment{}
	default:
		return fmt.Errorf("unknown collection %q", c)
	}
	res := s.db.WithContext(ctx).Delete(model, id)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) FindUserBy(ctx context.Context, field, value string) (*models.User, error) {
	if field != FieldUsername && field != FieldEmail {
		return nil, fmt.Errorf("%w: users.%s is not a lookup field", ErrInvalidField, field)
	}
	var u models.User
	if err := s.read(ctx).Where(field+" = ?", value).First(&u).Error; err != nil {
		return nil, mapErr(err)
	}
	u.Normalize()
	return &u, nil
}

func (s *GormStore) FindPosts(ctx context.Context, f PostFilter) ([]models.Post, error) {
	if f.Owners != nil && len(f.Owners) == 0 {
		return []models.Post{}, nil
	}
	var posts []models.Post
	if err := s.postsQuery(ctx, f).Find(&posts).Error; err != nil {
		return nil, mapErr(err)
	}
	for i := range posts {
		posts[i].Normalize()
	}
	return posts, nil
}

func (s *GormStore) postsQuery(ctx context.Context, f PostFilter) *gorm.DB {
	q := s.read(ctx).Model(&models.Post{})
	if f.Owners != nil {
		q = q.Where("user_id IN ?", f.Owners)
	}
	if f.ReactedBy != 0 {
		v := jsonID(f.ReactedBy)
		q = q.Where("(JSON_CONTAINS(likes, ?) OR JSON_CONTAINS(unlikes, ?))", v, v)
	}
	if f.After != nil {
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", f.After.CreatedAt, f.After.CreatedAt, f.After.ID)
	}
	q = q.Order("created_at DESC").Order("id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	return q
}

func (s *GormStore) FindComments(ctx context.Context, f CommentFilter) ([]models.Comment, error) {
	var comments []models.Comment
	if err := s.commentsQuery(ctx, f).Find(&comments).Error; err != nil {
		return nil, mapErr(err)
	}
	for i := range comments {
		comments[i].Normalize()
	}
	return comments, nil
}

func (s *GormStore) commentsQuery(ctx context.Context, f CommentFilter) *gorm.DB {
	q := s.read(ctx).Model(&models.Comment{})
	if f.By != 0 {
		q = q.Where("author_id = ?", f.By)
	}
	if f.ForPost != 0 {
		q = q.Where("for_post = ?", f.ForPost)
	}
	if f.LikedBy != 0 {
		q = q.Where("JSON_CONTAINS(likes, ?)", jsonID(f.LikedBy))
	}
	return q.Order("id ASC")
}

// Transaction runs fn inside a database transaction. Nested calls join the outer one.
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&GormStore{db: tx, inTx: true})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return mapErr(err)
}

func jsonID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// mapErr translates driver errors into the store's error kinds.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
