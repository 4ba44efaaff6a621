// Package services holds the graph-consistency engine: reactions, the follow graph,
// cascade deletion and timeline composition, plus the content and account managers
// that create the entities they operate on.
//
// Every operation takes the acting identity explicitly; nothing here reads request state.
package services

import (
	"context"
	"time"

	"github.com/cppla/aisocial/events"
	"github.com/cppla/aisocial/store"
	"github.com/cppla/aisocial/utils"
)

// Actor is the already-authenticated identity performing an operation.
type Actor struct {
	ID      uint
	IsAdmin bool
}

// Can reports whether the actor may mutate an entity owned by owner.
func (a Actor) Can(owner uint) bool {
	return a.IsAdmin || (a.ID != 0 && a.ID == owner)
}

// Services bundles the managers sharing one store and event publisher.
type Services struct {
	Accounts  *Accounts
	Content   *Content
	Reactions *Reactions
	Graph     *FollowGraph
	Cascade   *Cascade
	Timeline  *Timeline
}

// New wires every manager onto st. A nil publisher disables events.
func New(st store.Store, pub events.Publisher, timelinePageSize int) *Services {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Services{
		Accounts:  NewAccounts(st),
		Content:   NewContent(st, pub),
		Reactions: NewReactions(st),
		Graph:     NewFollowGraph(st, pub),
		Cascade:   NewCascade(st, pub),
		Timeline:  NewTimeline(st, timelinePageSize),
	}
}

// publish runs after commit; the mutation already happened, so failures are only logged.
func publish(ctx context.Context, pub events.Publisher, subject string, ev events.Event) {
	if pub == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	if err := pub.Publish(ctx, subject, ev); err != nil {
		utils.Sugar.Warnf("publish %s failed actor=%d target=%d err=%v", subject, ev.ActorID, ev.TargetID, err)
	}
}
