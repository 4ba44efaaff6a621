// Package events publishes committed graph mutations so other services
// (notifications, feed fan-out) can react to them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects published after a mutation commits.
const (
	UserFollowed   = "user.followed"
	UserUnfollowed = "user.unfollowed"
	UserDeleted    = "user.deleted"
	PostCreated    = "post.created"
	PostDeleted    = "post.deleted"
	CommentCreated = "comment.created"
	CommentDeleted = "comment.deleted"
)

// Event is the payload carried by every subject.
type Event struct {
	ActorID  uint      `json:"actor_id"`
	TargetID uint      `json:"target_id"`
	PostID   uint      `json:"post_id,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, subject string, ev Event) error
	Close()
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, Event) error { return nil }
func (Nop) Close()                                      {}

// NatsPublisher publishes JSON encoded events on a NATS connection.
type NatsPublisher struct {
	nc *nats.Conn
}

// NewNatsPublisher connects to the NATS server at url.
func NewNatsPublisher(url string) (*NatsPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("aisocial"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NatsPublisher{nc: nc}, nil
}

func (p *NatsPublisher) Publish(ctx context.Context, subject string, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshalling error: %w", err)
	}
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	if rid, ok := ctx.Value(RequestIDKey{}).(string); ok && rid != "" {
		msg.Header.Set("X-Request-ID", rid)
	}
	return p.nc.PublishMsg(msg)
}

// Close flushes pending messages and closes the connection.
func (p *NatsPublisher) Close() {
	_ = p.nc.Drain()
}

// RequestIDKey is the context key under which the HTTP layer stores the request id.
type RequestIDKey struct{}
