package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/cppla/aisocial/events"
	"github.com/cppla/aisocial/models"
	"github.com/cppla/aisocial/store"
)

// PostInput carries the fields of a new post.
type PostInput struct {
	Caption  string
	Pictures []string
}

// PostPatch lists the mutable post fields; nil leaves a field unchanged.
type PostPatch struct {
	Caption  *string
	Pictures *[]string
}

// Content creates and edits posts and comments, keeping the owning containers
// (user posts, post comments, comment replies) in step with the records.
type Content struct {
	store  store.Store
	events events.Publisher
}

func NewContent(st store.Store, pub events.Publisher) *Content {
	return &Content{store: st, events: pub}
}

func (c *Content) GetPost(ctx context.Context, postID uint) (*models.Post, error) {
	p, err := c.store.GetPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("post %d: %w", postID, err)
	}
	return p, nil
}

func (c *Content) GetComment(ctx context.Context, commentID uint) (*models.Comment, error) {
	cm, err := c.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("comment %d: %w", commentID, err)
	}
	return cm, nil
}

// CreatePost stores a post owned by the actor and appends it to the actor's posts.
func (c *Content) CreatePost(ctx context.Context, actor Actor, in PostInput) (*models.Post, error) {
	p := &models.Post{
		UserID:   actor.ID,
		Caption:  strings.TrimSpace(in.Caption),
		Pictures: cleanPictures(in.Pictures),
	}
	if !p.HasContent() {
		return nil, ErrEmptyContent
	}
	err := c.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetUser(ctx, actor.ID); err != nil {
			return fmt.Errorf("user %d: %w", actor.ID, err)
		}
		if err := tx.CreatePost(ctx, p); err != nil {
			return err
		}
		return tx.Update(ctx, store.Users, actor.ID, store.Update{
			AddToSet: map[string][]uint{store.FieldPosts: {p.ID}},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	publish(ctx, c.events, events.PostCreated, events.Event{ActorID: actor.ID, TargetID: p.ID, PostID: p.ID})
	return p, nil
}

// UpdatePost changes caption and/or pictures. Only the owner or an admin may edit.
func (c *Content) UpdatePost(ctx context.Context, actor Actor, postID uint, patch PostPatch) (*models.Post, error) {
	var out *models.Post
	err := c.store.Transaction(ctx, func(tx store.Store) error {
		p, err := tx.GetPost(ctx, postID)
		if err != nil {
			return fmt.Errorf("post %d: %w", postID, err)
		}
		if !actor.Can(p.UserID) {
			return ErrUnauthorized
		}
		set := map[string]any{}
		if patch.Caption != nil {
			p.Caption = strings.TrimSpace(*patch.Caption)
			set[store.FieldCaption] = p.Caption
		}
		if patch.Pictures != nil {
			p.Pictures = cleanPictures(*patch.Pictures)
			set[store.FieldPictures] = []string(p.Pictures)
		}
		if !p.HasContent() {
			return ErrEmptyContent
		}
		if err := tx.Update(ctx, store.Posts, postID, store.Update{Set: set}); err != nil {
			return err
		}
		out, err = tx.GetPost(ctx, postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateComment adds a top-level comment by the actor under postID.
func (c *Content) CreateComment(ctx context.Context, actor Actor, postID uint, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyContent
	}
	cm := &models.Comment{By: actor.ID, ForPost: postID, Content: text}
	err := c.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetUser(ctx, actor.ID); err != nil {
			return fmt.Errorf("user %d: %w", actor.ID, err)
		}
		if _, err := tx.GetPost(ctx, postID); err != nil {
			return fmt.Errorf("post %d: %w", postID, err)
		}
		if err := tx.CreateComment(ctx, cm); err != nil {
			return err
		}
		return tx.Update(ctx, store.Posts, postID, store.Update{
			AddToSet: map[string][]uint{store.FieldComments: {cm.ID}},
		})
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, c.events, events.CommentCreated, events.Event{ActorID: actor.ID, TargetID: cm.ID, PostID: postID})
	return cm, nil
}

// Reply adds a reply to commentID. The reply belongs to the same post as its parent.
func (c *Content) Reply(ctx context.Context, actor Actor, commentID uint, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyContent
	}
	var reply *models.Comment
	err := c.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetUser(ctx, actor.ID); err != nil {
			return fmt.Errorf("user %d: %w", actor.ID, err)
		}
		parent, err := tx.GetComment(ctx, commentID)
		if err != nil {
			return fmt.Errorf("comment %d: %w", commentID, err)
		}
		reply = &models.Comment{By: actor.ID, ForPost: parent.ForPost, ParentID: parent.ID, Content: text}
		if err := tx.CreateComment(ctx, reply); err != nil {
			return err
		}
		return tx.Update(ctx, store.Comments, parent.ID, store.Update{
			AddToSet: map[string][]uint{store.FieldReplies: {reply.ID}},
		})
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, c.events, events.CommentCreated, events.Event{ActorID: actor.ID, TargetID: reply.ID, PostID: reply.ForPost})
	return reply, nil
}

// EditComment replaces a comment's content. Only the author or an admin may edit.
func (c *Content) EditComment(ctx context.Context, actor Actor, commentID uint, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyContent
	}
	var out *models.Comment
	err := c.store.Transaction(ctx, func(tx store.Store) error {
		cm, err := tx.GetComment(ctx, commentID)
		if err != nil {
			return fmt.Errorf("comment %d: %w", commentID, err)
		}
		if !actor.Can(cm.By) {
			return ErrUnauthorized
		}
		if err := tx.Update(ctx, store.Comments, commentID, store.Update{
			Set: map[string]any{store.FieldContent: text},
		}); err != nil {
			return err
		}
		out, err = tx.GetComment(ctx, commentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func cleanPictures(pics []string) []string {
	out := []string{}
	for _, p := range pics {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
