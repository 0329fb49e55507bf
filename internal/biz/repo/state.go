package repo

import (
	"context"
	"errors"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
)

// ErrNotFound is returned by StateRepo.GetState when no document was ever written under the key
var ErrNotFound = errors.New("state not found")

// StateRepo is the room-scoped key-value document store.
// Documents are JSON objects keyed by (room, key).
type StateRepo interface {
	// GetState decodes the document into out.
	// Returns ErrNotFound (possibly wrapped) if the document is absent.
	GetState(ctx context.Context, room domain.RoomID, key string, out any) error

	// SetState creates or overwrites the document
	SetState(ctx context.Context, room domain.RoomID, key string, doc any) error
}
