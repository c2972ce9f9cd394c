package dispatch

import (
	"context"
	"errors"

	"github.com/example/roadbuddy/internal/models"
)

var ErrNoSession = errors.New("no ws session")

// Notifier delivers a notification to every device of one user.
type Notifier interface {
	Notify(ctx context.Context, userID string, n models.Notification) error
}

var (
	_ Notifier = (*WSRegistry)(nil)
	_ Notifier = (*PushDispatcher)(nil)
)
