package repo

import (
	"context"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
)

// RoomRepo is the room messaging interface of the chat service
type RoomRepo interface {
	// SendText sends a plain text message
	SendText(ctx context.Context, room domain.RoomID, text string) error

	// SendImage sends an already uploaded image with a text body
	SendImage(ctx context.Context, room domain.RoomID, body string, img domain.Image) error

	// PowerLevel queries the sender's current permission level in the room
	PowerLevel(ctx context.Context, room domain.RoomID, user domain.UserID) (int, error)

	// MarkRead sends a read receipt for the event
	MarkRead(ctx context.Context, room domain.RoomID, eventID domain.EventID) error
}
