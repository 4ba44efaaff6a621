package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cppla/aisocial/events"
	"github.com/cppla/aisocial/models"
	"github.com/cppla/aisocial/store"
	"github.com/cppla/aisocial/utils"
)

// Removed counts the entities deleted by one cascade.
type Removed struct {
	Users    int `json:"users"`
	Posts    int `json:"posts"`
	Comments int `json:"comments"`
}

// Cascade deletes an entity together with everything that exists only in relation
// to it. Children are always gone before the parent's back-reference and record.
type Cascade struct {
	store  store.Store
	events events.Publisher
}

func NewCascade(st store.Store, pub events.Publisher) *Cascade {
	return &Cascade{store: st, events: pub}
}

// DeleteComment removes a comment and its reply subtree. Only the author or an admin may call it.
func (c *Cascade) DeleteComment(ctx context.Context, actor Actor, commentID uint) (Removed, error) {
	var (
		r      *run
		postID uint
	)
	err := c.store.Transaction(ctx, func(tx store.Store) error {
		r = &run{tx: tx}
		cm, err := tx.GetComment(ctx, commentID)
		if err != nil {
			return fmt.Errorf("comment %d: %w", commentID, err)
		}
		if !actor.Can(cm.By) {
			return ErrUnauthorized
		}
		postID = cm.ForPost
		return r.comment(ctx, cm)
	})
	if err != nil {
		return Removed{}, err
	}
	publish(ctx, c.events, events.CommentDeleted, events.Event{ActorID: actor.ID, TargetID: commentID, PostID: postID})
	return r.removed, nil
}

// DeletePost removes a post with all of its comments. Only the owner or an admin may call it.
func (c *Cascade) DeletePost(ctx context.Context, actor Actor, postID uint) (Removed, error) {
	var r *run
	err := c.store.Transaction(ctx, func(tx store.Store) error {
		r = &run{tx: tx}
		p, err := tx.GetPost(ctx, postID)
		if err != nil {
			return fmt.Errorf("post %d: %w", postID, err)
		}
		if !actor.Can(p.UserID) {
			return ErrUnauthorized
		}
		return r.post(ctx, p)
	})
	if err != nil {
		return Removed{}, err
	}
	publish(ctx, c.events, events.PostDeleted, events.Event{ActorID: actor.ID, TargetID: postID, PostID: postID})
	return r.removed, nil
}

// DeleteUser removes a user, their posts, every comment they wrote anywhere and every
// reference other users hold to them. Only the user themself or an admin may call it.
func (c *Cascade) DeleteUser(ctx context.Context, actor Actor, userID uint) (Removed, error) {
	var r *run
	err := c.store.Transaction(ctx, func(tx store.Store) error {
		r = &run{tx: tx}
		u, err := tx.GetUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("user %d: %w", userID, err)
		}
		if !actor.Can(u.ID) {
			return ErrUnauthorized
		}
		return r.user(ctx, u)
	})
	if err != nil {
		return Removed{}, err
	}
	utils.Logger.Info("user deleted", zap.Uint("user", userID), zap.Uint("actor", actor.ID),
		zap.Int("posts", r.removed.Posts), zap.Int("comments", r.removed.Comments))
	publish(ctx, c.events, events.UserDeleted, events.Event{ActorID: actor.ID, TargetID: userID})
	return r.removed, nil
}

// run is one cascade executing inside a transaction.
type run struct {
	tx      store.Store
	removed Removed
}

func (r *run) comment(ctx context.Context, cm *models.Comment) error {
	for _, id := range cm.Replies {
		reply, err := r.tx.GetComment(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			dangling(store.Comments, cm.ID, store.FieldReplies, id)
			continue
		}
		if err != nil {
			return cascadeErr(store.Comments, id, "load reply", err)
		}
		if err := r.comment(ctx, reply); err != nil {
			return err
		}
	}

	if cm.IsReply() {
		err := r.tx.Update(ctx, store.Comments, cm.ParentID, store.Update{
			Pull: map[string][]uint{store.FieldReplies: {cm.ID}},
		})
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return cascadeErr(store.Comments, cm.ID, "detach from parent comment", err)
		}
	} else {
		err := r.tx.Update(ctx, store.Posts, cm.ForPost, store.Update{
			Pull: map[string][]uint{store.FieldComments: {cm.ID}},
		})
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return cascadeErr(store.Comments, cm.ID, "detach from post", err)
		}
	}

	if err := r.tx.Delete(ctx, store.Comments, cm.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return cascadeErr(store.Comments, cm.ID, "delete record", err)
	}
	r.removed.Comments++
	utils.Logger.Debug("comment removed", zap.Uint("comment", cm.ID), zap.Uint("post", cm.ForPost))
	return nil
}

func (r *run) post(ctx context.Context, p *models.Post) error {
	for _, id := range p.Comments {
		cm, err := r.tx.GetComment(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			dangling(store.Posts, p.ID, store.FieldComments, id)
			continue
		}
		if err != nil {
			return cascadeErr(store.Comments, id, "load comment", err)
		}
		if err := r.comment(ctx, cm); err != nil {
			return err
		}
	}

	// comments still pointing at the post but missing from its list
	orphans, err := r.tx.FindComments(ctx, store.CommentFilter{ForPost: p.ID})
	if err != nil {
		return cascadeErr(store.Posts, p.ID, "find orphan comments", err)
	}
	for _, o := range orphans {
		cm, err := r.tx.GetComment(ctx, o.ID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return cascadeErr(store.Comments, o.ID, "load comment", err)
		}
		if err := r.comment(ctx, cm); err != nil {
			return err
		}
	}

	err = r.tx.Update(ctx, store.Users, p.UserID, store.Update{
		Pull: map[string][]uint{store.FieldPosts: {p.ID}},
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return cascadeErr(store.Posts, p.ID, "detach from owner", err)
	}
	if err := r.tx.Delete(ctx, store.Posts, p.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return cascadeErr(store.Posts, p.ID, "delete record", err)
	}
	r.removed.Posts++
	utils.Logger.Debug("post removed", zap.Uint("post", p.ID), zap.Uint("owner", p.UserID))
	return nil
}

func (r *run) user(ctx context.Context, u *models.User) error {
	for _, id := range u.Posts {
		p, err := r.tx.GetPost(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			dangling(store.Users, u.ID, store.FieldPosts, id)
			continue
		}
		if err != nil {
			return cascadeErr(store.Posts, id, "load post", err)
		}
		if err := r.post(ctx, p); err != nil {
			return err
		}
	}
	owned, err := r.tx.FindPosts(ctx, store.PostFilter{Owners: []uint{u.ID}})
	if err != nil {
		return cascadeErr(store.Users, u.ID, "find owned posts", err)
	}
	for i := range owned {
		if err := r.post(ctx, &owned[i]); err != nil {
			return err
		}
	}

	if err := r.pullEverywhere(ctx, store.Users, u.Followers, store.FieldFollowing, u.ID, "detach from follower"); err != nil {
		return err
	}
	if err := r.pullEverywhere(ctx, store.Users, u.Following, store.FieldFollowers, u.ID, "detach from followee"); err != nil {
		return err
	}

	authored, err := r.tx.FindComments(ctx, store.CommentFilter{By: u.ID})
	if err != nil {
		return cascadeErr(store.Users, u.ID, "find authored comments", err)
	}
	for _, a := range authored {
		cm, err := r.tx.GetComment(ctx, a.ID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return cascadeErr(store.Comments, a.ID, "load comment", err)
		}
		if err := r.comment(ctx, cm); err != nil {
			return err
		}
	}

	reacted, err := r.tx.FindPosts(ctx, store.PostFilter{ReactedBy: u.ID})
	if err != nil {
		return cascadeErr(store.Users, u.ID, "find reactions", err)
	}
	for _, p := range reacted {
		err := r.tx.Update(ctx, store.Posts, p.ID, store.Update{
			Pull: map[string][]uint{store.FieldLikes: {u.ID}, store.FieldUnlikes: {u.ID}},
		})
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return cascadeErr(store.Posts, p.ID, "remove reaction", err)
		}
	}
	liked, err := r.tx.FindComments(ctx, store.CommentFilter{LikedBy: u.ID})
	if err != nil {
		return cascadeErr(store.Users, u.ID, "find comment likes", err)
	}
	for _, cm := range liked {
		err := r.tx.Update(ctx, store.Comments, cm.ID, store.Update{
			Pull: map[string][]uint{store.FieldLikes: {u.ID}},
		})
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return cascadeErr(store.Comments, cm.ID, "remove comment like", err)
		}
	}

	if err := r.tx.Delete(ctx, store.Users, u.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return cascadeErr(store.Users, u.ID, "delete record", err)
	}
	r.removed.Users++
	return nil
}

// pullEverywhere removes id from field on every user in owners. Missing users are skipped.
func (r *run) pullEverywhere(ctx context.Context, c store.Collection, owners []uint, field string, id uint, step string) error {
	for _, owner := range owners {
		if owner == id {
			continue
		}
		err := r.tx.Update(ctx, c, owner, store.Update{Pull: map[string][]uint{field: {id}}})
		if errors.Is(err, store.ErrNotFound) {
			dangling(store.Users, id, field, owner)
			continue
		}
		if err != nil {
			return cascadeErr(c, owner, step, err)
		}
	}
	return nil
}

func dangling(c store.Collection, id uint, field string, ref uint) {
	utils.Logger.Warn("dangling reference pruned",
		zap.String("collection", string(c)), zap.Uint("id", id),
		zap.String("field", field), zap.Uint("ref", ref))
}
