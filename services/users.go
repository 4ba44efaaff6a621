package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/cppla/aisocial/models"
	"github.com/cppla/aisocial/store"
)

// UserInput carries a registration. PasswordHash is already hashed by the caller.
type UserInput struct {
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
}

// UserPatch lists the mutable user fields; nil leaves a field unchanged.
// The follow graph and post list are deliberately absent.
type UserPatch struct {
	Username       *string
	Email          *string
	PasswordHash   *string
	ProfilePicture *string
	CoverPicture   *string
	Bio            *string
	CurrentCity    *string
	Hometown       *string
	IsAdmin        *bool
}

// Accounts manages user records outside of the follow graph.
type Accounts struct {
	store store.Store
}

func NewAccounts(st store.Store) *Accounts {
	return &Accounts{store: st}
}

// Register creates a user. A taken username or email yields ErrConflict.
func (a *Accounts) Register(ctx context.Context, in UserInput) (*models.User, error) {
	u := &models.User{
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: in.PasswordHash,
		IsAdmin:      in.IsAdmin,
	}
	if u.Username == "" || u.Email == "" {
		return nil, ErrEmptyContent
	}
	if err := a.store.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("register %q: %w", u.Username, err)
	}
	return u, nil
}

func (a *Accounts) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	u, err := a.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}
	return u, nil
}

func (a *Accounts) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := a.store.FindUserBy(ctx, store.FieldUsername, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", username, err)
	}
	return u, nil
}

func (a *Accounts) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := a.store.FindUserBy(ctx, store.FieldEmail, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", email, err)
	}
	return u, nil
}

// UpdateUser applies patch to userID. The user themself or an admin may edit the
// profile; only an admin may change IsAdmin.
func (a *Accounts) UpdateUser(ctx context.Context, actor Actor, userID uint, patch UserPatch) (*models.User, error) {
	if !actor.Can(userID) || (patch.IsAdmin != nil && !actor.IsAdmin) {
		return nil, ErrUnauthorized
	}
	set := map[string]any{}
	str := func(field string, v *string, required bool) error {
		if v == nil {
			return nil
		}
		s := strings.TrimSpace(*v)
		if required && s == "" {
			return ErrEmptyContent
		}
		set[field] = s
		return nil
	}
	for _, f := range []struct {
		field    string
		v        *string
		required bool
	}{
		{store.FieldUsername, patch.Username, true},
		{store.FieldEmail, patch.Email, true},
		{store.FieldPasswordHash, patch.PasswordHash, true},
		{store.FieldProfilePicture, patch.ProfilePicture, false},
		{store.FieldCoverPicture, patch.CoverPicture, false},
		{store.FieldBio, patch.Bio, false},
		{store.FieldCurrentCity, patch.CurrentCity, false},
		{store.FieldHometown, patch.Hometown, false},
	} {
		if err := str(f.field, f.v, f.required); err != nil {
			return nil, err
		}
	}
	if e, ok := set[store.FieldEmail].(string); ok {
		set[store.FieldEmail] = strings.ToLower(e)
	}
	if patch.IsAdmin != nil {
		set[store.FieldIsAdmin] = *patch.IsAdmin
	}

	var out *models.User
	err := a.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.Update(ctx, store.Users, userID, store.Update{Set: set}); err != nil {
			return fmt.Errorf("user %d: %w", userID, err)
		}
		var err error
		out, err = tx.GetUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
