package services

import (
	"context"
	"fmt"

	"github.com/cppla/aisocial/store"
	"github.com/cppla/aisocial/utils"
)

// ReactionResult reports which branch a toggle took and the resulting set sizes.
type ReactionResult struct {
	Added   bool `json:"added"`
	Likes   int  `json:"likes"`
	Unlikes int  `json:"unlikes"`
}

// Reactions maintains like/unlike sets. The acting user must still exist; it is
// read first so the user row is locked before the post or comment, matching the
// cascade's lock order.
type Reactions struct {
	store store.Store
}

func NewReactions(st store.Store) *Reactions {
	return &Reactions{store: st}
}

// ToggleLike removes actorID from the post's likes if present, otherwise adds it and
// clears any unlike by the same actor.
func (r *Reactions) ToggleLike(ctx context.Context, postID, actorID uint) (ReactionResult, error) {
	return r.togglePost(ctx, postID, actorID, store.FieldLikes, store.FieldUnlikes)
}

// ToggleUnlike is the mirror of ToggleLike on the unlikes set.
func (r *Reactions) ToggleUnlike(ctx context.Context, postID, actorID uint) (ReactionResult, error) {
	return r.togglePost(ctx, postID, actorID, store.FieldUnlikes, store.FieldLikes)
}

func (r *Reactions) togglePost(ctx context.Context, postID, actorID uint, field, opposite string) (ReactionResult, error) {
	var res ReactionResult
	err := r.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetUser(ctx, actorID); err != nil {
			return fmt.Errorf("user %d: %w", actorID, err)
		}
		post, err := tx.GetPost(ctx, postID)
		if err != nil {
			return err
		}
		current := post.Likes
		if field == store.FieldUnlikes {
			current = post.Unlikes
		}

		var up store.Update
		if utils.ContainsUint(current, actorID) {
			up.Pull = map[string][]uint{field: {actorID}}
		} else {
			res.Added = true
			up.AddToSet = map[string][]uint{field: {actorID}}
			up.Pull = map[string][]uint{opposite: {actorID}}
		}
		if err := tx.Update(ctx, store.Posts, postID, up); err != nil {
			return err
		}

		post, err = tx.GetPost(ctx, postID)
		if err != nil {
			return err
		}
		res.Likes, res.Unlikes = len(post.Likes), len(post.Unlikes)
		return nil
	})
	if err != nil {
		return ReactionResult{}, fmt.Errorf("toggle %s on post %d: %w", field, postID, err)
	}
	return res, nil
}

// ToggleCommentLike toggles actorID in the comment's likes.
func (r *Reactions) ToggleCommentLike(ctx context.Context, commentID, actorID uint) (ReactionResult, error) {
	var res ReactionResult
	err := r.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetUser(ctx, actorID); err != nil {
			return fmt.Errorf("user %d: %w", actorID, err)
		}
		cm, err := tx.GetComment(ctx, commentID)
		if err != nil {
			return err
		}
		var up store.Update
		if utils.ContainsUint(cm.Likes, actorID) {
			up.Pull = map[string][]uint{store.FieldLikes: {actorID}}
			res.Likes = len(cm.Likes) - 1
		} else {
			res.Added = true
			up.AddToSet = map[string][]uint{store.FieldLikes: {actorID}}
			res.Likes = len(cm.Likes) + 1
		}
		return tx.Update(ctx, store.Comments, commentID, up)
	})
	if err != nil {
		return ReactionResult{}, fmt.Errorf("toggle like on comment %d: %w", commentID, err)
	}
	return res, nil
}
