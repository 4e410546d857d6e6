// Package notify delivers short user-facing notifications over external channels.
package notify

import (
	"context"
	"errors"

	"github.com/Freeeeeet/skillswap/internal/model"
)

// Sink delivers one notification to one user.
type Sink interface {
	Notify(ctx context.Context, userID int64, title, message string) error
}

// Directory resolves a user's contact details.
type Directory interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// ErrUnknownUser is returned when the directory has no such user.
var ErrUnknownUser = errors.New("notify: unknown user")

// Nop discards every notification.
type Nop struct{}

func (Nop) Notify(context.Context, int64, string, string) error { return nil }

// Multi fans a notification out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, userID int64, title, message string) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, userID, title, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func lookup(ctx context.Context, users Directory, userID int64) (*model.User, error) {
	u, err := users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUnknownUser
	}
	return u, nil
}
