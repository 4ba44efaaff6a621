package store

import (
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/cppla/aisocial/models"
	"github.com/cppla/aisocial/utils"
)

type idSet = datatypes.JSONSlice[uint]

func applyUser(u *models.User, up Update) error {
	for field, v := range up.Set {
		var err error
		switch field {
		case FieldUsername:
			u.Username, err = asString(field, v)
		case FieldEmail:
			u.Email, err = asString(field, v)
		case FieldPasswordHash:
			u.PasswordHash, err = asString(field, v)
		case FieldProfilePicture:
			u.ProfilePicture, err = asString(field, v)
		case FieldCoverPicture:
			u.CoverPicture, err = asString(field, v)
		case FieldBio:
			u.Bio, err = asString(field, v)
		case FieldCurrentCity:
			u.CurrentCity, err = asString(field, v)
		case FieldHometown:
			u.Hometown, err = asString(field, v)
		case FieldIsAdmin:
			b, ok := v.(bool)
			if !ok {
				err = fmt.Errorf("%w: %s expects bool, got %T", ErrInvalidField, field, v)
			}
			u.IsAdmin = b
		default:
			err = fmt.Errorf("%w: users.%s", ErrInvalidField, field)
		}
		if err != nil {
			return err
		}
	}
	err := applySets(up, func(field string) *idSet {
		switch field {
		case FieldFollowers:
			return &u.Followers
		case FieldFollowing:
			return &u.Following
		case FieldPosts:
			return &u.Posts
		}
		return nil
	})
	if err != nil {
		return err
	}
	u.UpdatedAt = time.Now()
	return nil
}

func applyPost(p *models.Post, up Update) error {
	for field, v := range up.Set {
		switch field {
		case FieldCaption:
			s, err := asString(field, v)
			if err != nil {
				return err
			}
			p.Caption = s
		case FieldPictures:
			pics, ok := v.([]string)
			if !ok {
				return fmt.Errorf("%w: %s expects []string, got %T", ErrInvalidField, field, v)
			}
			p.Pictures = append(datatypes.JSONSlice[string]{}, pics...)
		default:
			return fmt.Errorf("%w: posts.%s", ErrInvalidField, field)
		}
	}
	err := applySets(up, func(field string) *idSet {
		switch field {
		case FieldLikes:
			return &p.Likes
		case FieldUnlikes:
			return &p.Unlikes
		case FieldComments:
			return &p.Comments
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.UpdatedAt = time.Now()
	return nil
}

func applyComment(c *models.Comment, up Update) error {
	for field, v := range up.Set {
		if field != FieldContent {
			return fmt.Errorf("%w: comments.%s", ErrInvalidField, field)
		}
		s, err := asString(field, v)
		if err != nil {
			return err
		}
		c.Content = s
	}
	err := applySets(up, func(field string) *idSet {
		switch field {
		case FieldLikes:
			return &c.Likes
		case FieldReplies:
			return &c.Replies
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.UpdatedAt = time.Now()
	return nil
}

func applySets(up Update, lookup func(field string) *idSet) error {
	for field, ids := range up.AddToSet {
		set := lookup(field)
		if set == nil {
			return fmt.Errorf("%w: %s", ErrInvalidField, field)
		}
		*set = utils.AddToSetUint(*set, ids...)
	}
	for field, ids := range up.Pull {
		set := lookup(field)
		if set == nil {
			return fmt.Errorf("%w: %s", ErrInvalidField, field)
		}
		*set = utils.PullUint(*set, ids...)
	}
	return nil
}

func asString(field string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s expects string, got %T", ErrInvalidField, field, v)
	}
	return s, nil
}
