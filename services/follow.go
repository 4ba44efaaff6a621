package services

import (
	"context"
	"fmt"

	"github.com/cppla/aisocial/events"
	"github.com/cppla/aisocial/models"
	"github.com/cppla/aisocial/store"
	"github.com/cppla/aisocial/utils"
)

// RelationStatus describes the edges between two users from the actor's side.
type RelationStatus struct {
	IsFollowing  bool `json:"is_following"`
	IsFollowedBy bool `json:"is_followed_by"`
}

// FollowGraph keeps followers/following symmetric. Both halves of an edge are
// written in the same transaction with add-to-set / pull semantics.
type FollowGraph struct {
	store  store.Store
	events events.Publisher
}

func NewFollowGraph(st store.Store, pub events.Publisher) *FollowGraph {
	return &FollowGraph{store: st, events: pub}
}

// Follow adds the edge actorID -> targetID.
func (g *FollowGraph) Follow(ctx context.Context, actorID, targetID uint) error {
	if actorID == targetID {
		return ErrSelfReference
	}
	var already bool
	err := g.store.Transaction(ctx, func(tx store.Store) error {
		actor, target, err := loadPair(ctx, tx, actorID, targetID)
		if err != nil {
			return err
		}
		already = utils.ContainsUint(actor.Following, targetID)
		if already && utils.ContainsUint(target.Followers, actorID) {
			return nil
		}
		// also repairs a torn edge whose followers half went missing
		if err := tx.Update(ctx, store.Users, actorID, store.Update{
			AddToSet: map[string][]uint{store.FieldFollowing: {targetID}},
		}); err != nil {
			return err
		}
		return tx.Update(ctx, store.Users, targetID, store.Update{
			AddToSet: map[string][]uint{store.FieldFollowers: {actorID}},
		})
	})
	if err != nil {
		return fmt.Errorf("follow %d -> %d: %w", actorID, targetID, err)
	}
	if already {
		return ErrAlreadyRelated
	}
	publish(ctx, g.events, events.UserFollowed, events.Event{ActorID: actorID, TargetID: targetID})
	return nil
}

// Unfollow removes the edge actorID -> targetID.
func (g *FollowGraph) Unfollow(ctx context.Context, actorID, targetID uint) error {
	if actorID == targetID {
		return ErrSelfReference
	}
	var related bool
	err := g.store.Transaction(ctx, func(tx store.Store) error {
		actor, target, err := loadPair(ctx, tx, actorID, targetID)
		if err != nil {
			return err
		}
		related = utils.ContainsUint(actor.Following, targetID)
		if !related && !utils.ContainsUint(target.Followers, actorID) {
			return nil
		}
		if err := tx.Update(ctx, store.Users, actorID, store.Update{
			Pull: map[string][]uint{store.FieldFollowing: {targetID}},
		}); err != nil {
			return err
		}
		return tx.Update(ctx, store.Users, targetID, store.Update{
			Pull: map[string][]uint{store.FieldFollowers: {actorID}},
		})
	})
	if err != nil {
		return fmt.Errorf("unfollow %d -> %d: %w", actorID, targetID, err)
	}
	if !related {
		return ErrNotRelated
	}
	publish(ctx, g.events, events.UserUnfollowed, events.Event{ActorID: actorID, TargetID: targetID})
	return nil
}

// Relation reports whether actorID follows targetID and whether targetID follows back.
func (g *FollowGraph) Relation(ctx context.Context, actorID, targetID uint) (RelationStatus, error) {
	if actorID == targetID {
		return RelationStatus{}, ErrSelfReference
	}
	actor, err := g.store.GetUser(ctx, actorID)
	if err != nil {
		return RelationStatus{}, fmt.Errorf("user %d: %w", actorID, err)
	}
	if _, err := g.store.GetUser(ctx, targetID); err != nil {
		return RelationStatus{}, fmt.Errorf("user %d: %w", targetID, err)
	}
	return RelationStatus{
		IsFollowing:  utils.ContainsUint(actor.Following, targetID),
		IsFollowedBy: utils.ContainsUint(actor.Followers, targetID),
	}, nil
}

// loadPair reads both users in ascending id order so concurrent mutual follows
// acquire row locks in the same order.
func loadPair(ctx context.Context, tx store.Store, actorID, targetID uint) (*models.User, *models.User, error) {
	lo, hi := actorID, targetID
	if hi < lo {
		lo, hi = hi, lo
	}
	first, err := tx.GetUser(ctx, lo)
	if err != nil {
		return nil, nil, fmt.Errorf("user %d: %w", lo, err)
	}
	second, err := tx.GetUser(ctx, hi)
	if err != nil {
		return nil, nil, fmt.Errorf("user %d: %w", hi, err)
	}
	if lo == actorID {
		return first, second, nil
	}
	return second, first, nil
}
