package services

import (
	"errors"
	"fmt"

	"github.com/cppla/aisocial/store"
)

var (
	ErrNotFound         = store.ErrNotFound
	ErrStoreUnavailable = store.ErrUnavailable
	ErrConflict         = store.ErrConflict
	ErrSelfReference    = errors.New("actor cannot reference itself")
	ErrAlreadyRelated   = errors.New("already following the requested user")
	ErrNotRelated       = errors.New("not following the requested user")
	ErrEmptyContent     = errors.New("content cannot be empty")
	ErrUnauthorized     = errors.New("actor lacks ownership or admin rights")
)

// CascadeFailure reports the entity and step at which a deletion cascade stopped.
// The cascade's transaction is rolled back, so already removed entities are restored
// when the store supports transactions.
type CascadeFailure struct {
	Entity store.Collection
	ID     uint
	Step   string
	Err    error
}

func (e *CascadeFailure) Error() string {
	return fmt.Sprintf("cascade failed at %q on %s/%d: %v", e.Step, e.Entity, e.ID, e.Err)
}

func (e *CascadeFailure) Unwrap() error { return e.Err }

// cascadeErr wraps err unless it already is a CascadeFailure raised deeper in the recursion.
func cascadeErr(entity store.Collection, id uint, step string, err error) error {
	var cf *CascadeFailure
	if errors.As(err, &cf) {
		return err
	}
	return &CascadeFailure{Entity: entity, ID: id, Step: step, Err: err}
}
