package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/cppla/aisocial/models"
	"github.com/cppla/aisocial/utils"
)

type memData struct {
	mu       sync.Mutex
	users    map[uint]*models.User
	posts    map[uint]*models.Post
	comments map[uint]*models.Comment
	seq      map[Collection]uint
	now      func() time.Time
}

// Memory is an in-process Store. Every operation works on deep copies, and a
// transaction holds the store lock for its whole duration and restores a snapshot
// on error, which gives the same isolation the SQL store gets from row locks.
type Memory struct {
	data *memData
	tx   bool
}

// NewMemory returns an empty in-memory store using the wall clock.
func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock returns an empty in-memory store stamping CreatedAt with now.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{data: &memData{
		users:    map[uint]*models.User{},
		posts:    map[uint]*models.Post{},
		comments: map[uint]*models.Comment{},
		seq:      map[Collection]uint{},
		now:      now,
	}}
}

func (m *Memory) acquire() func() {
	if m.tx {
		return func() {}
	}
	m.data.mu.Lock()
	return m.data.mu.Unlock
}

func (m *Memory) GetUser(ctx context.Context, id uint) (*models.User, error) {
	defer m.acquire()()
	u, ok := m.data.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (m *Memory) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	defer m.acquire()()
	p, ok := m.data.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyPost(p), nil
}

func (m *Memory) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	defer m.acquire()()
	c, ok := m.data.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyComment(c), nil
}

func (m *Memory) CreateUser(ctx context.Context, u *models.User) error {
	defer m.acquire()()
	if m.data.userTaken(0, u.Username, u.Email) {
		return ErrConflict
	}
	u.ID = m.data.next(Users)
	m.data.stamp(&u.CreatedAt, &u.UpdatedAt)
	u.Normalize()
	m.data.users[u.ID] = copyUser(u)
	return nil
}

func (m *Memory) CreatePost(ctx context.Context, p *models.Post) error {
	defer m.acquire()()
	p.ID = m.data.next(Posts)
	m.data.stamp(&p.CreatedAt, &p.UpdatedAt)
	p.Normalize()
	m.data.posts[p.ID] = copyPost(p)
	return nil
}

func (m *Memory) CreateComment(ctx context.Context, c *models.Comment) error {
	defer m.acquire()()
	c.ID = m.data.next(Comments)
	m.data.stamp(&c.CreatedAt, &c.UpdatedAt)
	c.Normalize()
	m.data.comments[c.ID] = copyComment(c)
	return nil
}

func (m *Memory) Update(ctx context.Context, c Collection, id uint, up Update) error {
	if err := Validate(c, up); err != nil {
		return err
	}
	defer m.acquire()()
	switch c {
	case Users:
		cur, ok := m.data.users[id]
		if !ok {
			return ErrNotFound
		}
		next := copyUser(cur)
		if err := applyUser(next, up); err != nil {
			return err
		}
		if m.data.userTaken(id, next.Username, next.Email) {
			return ErrConflict
		}
		m.data.users[id] = next
	case Posts:
		cur, ok := m.data.posts[id]
		if !ok {
			return ErrNotFound
		}
		next := copyPost(cur)
		if err := applyPost(next, up); err != nil {
			return err
		}
		m.data.posts[id] = next
	case Comments:
		cur, ok := m.data.comments[id]
		if !ok {
			return ErrNotFound
		}
		next := copyComment(cur)
		if err := applyComment(next, up); err != nil {
			return err
		}
		m.data.comments[id] = next
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, c Collection, id uint) error {
	defer m.acquire()()
	var found bool
	switch c {
	case Users:
		_, found = m.data.users[id]
		delete(m.data.users, id)
	case Posts:
		_, found = m.data.posts[id]
		delete(m.data.posts, id)
	case Comments:
		_, found = m.data.comments[id]
		delete(m.data.comments, id)
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func (m *Memory) FindUserBy(ctx context.Context, field, value string) (*models.User, error) {
	if field != FieldUsername && field != FieldEmail {
		return nil, ErrInvalidField
	}
	defer m.acquire()()
	for _, u := range m.data.users {
		if (field == FieldUsername && u.Username == value) || (field == FieldEmail && u.Email == value) {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindPosts(ctx context.Context, f PostFilter) ([]models.Post, error) {
	defer m.acquire()()
	out := []models.Post{}
	for _, p := range m.data.posts {
		if f.Owners != nil && !utils.ContainsUint(f.Owners, p.UserID) {
			continue
		}
		if f.ReactedBy != 0 && !utils.ContainsUint(p.Likes, f.ReactedBy) && !utils.ContainsUint(p.Unlikes, f.ReactedBy) {
			continue
		}
		if f.After != nil && !olderThan(p, *f.After) {
			continue
		}
		out = append(out, *copyPost(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) FindComments(ctx context.Context, f CommentFilter) ([]models.Comment, error) {
	defer m.acquire()()
	out := []models.Comment{}
	for _, c := range m.data.comments {
		if f.By != 0 && c.By != f.By {
			continue
		}
		if f.ForPost != 0 && c.ForPost != f.ForPost {
			continue
		}
		if f.LikedBy != 0 && !utils.ContainsUint(c.Likes, f.LikedBy) {
			continue
		}
		out = append(out, *copyComment(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if m.tx {
		return fn(m)
	}
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	snap := m.data.snapshot()
	if err := fn(&Memory{data: m.data, tx: true}); err != nil {
		m.data.restore(snap)
		return err
	}
	return nil
}

func olderThan(p *models.Post, c Cursor) bool {
	if p.CreatedAt.Equal(c.CreatedAt) {
		return p.ID < c.ID
	}
	return p.CreatedAt.Before(c.CreatedAt)
}

func (d *memData) next(c Collection) uint {
	d.seq[c]++
	return d.seq[c]
}

func (d *memData) stamp(created, updated *time.Time) {
	now := d.now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

func (d *memData) userTaken(self uint, username, email string) bool {
	for id, u := range d.users {
		if id == self {
			continue
		}
		if u.Username == username || (email != "" && u.Email == email) {
			return true
		}
	}
	return false
}

type memSnapshot struct {
	users    map[uint]*models.User
	posts    map[uint]*models.Post
	comments map[uint]*models.Comment
	seq      map[Collection]uint
}

func (d *memData) snapshot() memSnapshot {
	s := memSnapshot{
		users:    make(map[uint]*models.User, len(d.users)),
		posts:    make(map[uint]*models.Post, len(d.posts)),
		comments: make(map[uint]*models.Comment, len(d.comments)),
		seq:      make(map[Collection]uint, len(d.seq)),
	}
	for k, v := range d.users {
		s.users[k] = v
	}
	for k, v := range d.posts {
		s.posts[k] = v
	}
	for k, v := range d.comments {
		s.comments[k] = v
	}
	for k, v := range d.seq {
		s.seq[k] = v
	}
	return s
}

// restore swaps the maps back. Stored documents are never mutated in place, so
// the snapshot can share pointers with the live maps.
func (d *memData) restore(s memSnapshot) {
	d.users = s.users
	d.posts = s.posts
	d.comments = s.comments
	d.seq = s.seq
}

func copyIDs(s datatypes.JSONSlice[uint]) datatypes.JSONSlice[uint] {
	return append(datatypes.JSONSlice[uint]{}, s...)
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.Followers = copyIDs(u.Followers)
	c.Following = copyIDs(u.Following)
	c.Posts = copyIDs(u.Posts)
	return &c
}

func copyPost(p *models.Post) *models.Post {
	c := *p
	c.Pictures = append(datatypes.JSONSlice[string]{}, p.Pictures...)
	c.Likes = copyIDs(p.Likes)
	c.Unlikes = copyIDs(p.Unlikes)
	c.Comments = copyIDs(p.Comments)
	return &c
}

func copyComment(cm *models.Comment) *models.Comment {
	c := *cm
	c.Likes = copyIDs(cm.Likes)
	c.Replies = copyIDs(cm.Replies)
	return &c
}
