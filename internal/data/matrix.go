package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
	"github.com/thetabots/xkcd-bot/internal/biz/repo"
	"github.com/thetabots/xkcd-bot/internal/infra/matrix"
)

// MatrixRepo implements the room, state and media repositories on a Matrix homeserver.
// Room state documents are stored as custom state events with an empty state key.
type MatrixRepo struct {
	client *matrix.Client
}

// NewMatrixRepo creates a new Matrix repository
func NewMatrixRepo(client *matrix.Client) *MatrixRepo {
	return &MatrixRepo{client: client}
}

func stateType(key string) event.Type {
	return event.Type{Type: key, Class: event.StateEventType}
}

// GetState implements repo.StateRepo
func (r *MatrixRepo) GetState(ctx context.Context, room domain.RoomID, key string, out any) error {
	err := r.client.API().StateEvent(ctx, id.RoomID(room), stateType(key), "", out)
	if errors.Is(err, mautrix.MNotFound) {
		return fmt.Errorf("%s in %s: %w", key, room, repo.ErrNotFound)
	}
	return err
}

// SetState implements repo.StateRepo
func (r *MatrixRepo) SetState(ctx context.Context, room domain.RoomID, key string, doc any) error {
	_, err := r.client.API().SendStateEvent(ctx, id.RoomID(room), stateType(key), "", doc)
	return err
}

// SendText implements repo.RoomRepo
func (r *MatrixRepo) SendText(ctx context.Context, room domain.RoomID, text string) error {
	content := &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    text,
	}
	return r.send(ctx, room, content)
}

// SendImage implements repo.RoomRepo
func (r *MatrixRepo) SendImage(ctx context.Context, room domain.RoomID, body string, img domain.Image) error {
	if body == "" {
		body = "image"
	}
	content := &event.MessageEventContent{
		MsgType: event.MsgImage,
		Body:    body,
		URL:     id.ContentURIString(img.Ref),
		Info: &event.FileInfo{
			MimeType: img.Info.MimeType,
			Width:    img.Info.Width,
			Height:   img.Info.Height,
			Size:     img.Info.Size,
		},
	}
	return r.send(ctx, room, content)
}

func (r *MatrixRepo) send(ctx context.Context, room domain.RoomID, content *event.MessageEventContent) error {
	_, err := r.client.API().SendMessageEvent(ctx, id.RoomID(room), event.EventMessage, content,
		mautrix.ReqSendEvent{TransactionID: uuid.NewString()})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// PowerLevel implements repo.RoomRepo
func (r *MatrixRepo) PowerLevel(ctx context.Context, room domain.RoomID, user domain.UserID) (int, error) {
	var levels event.PowerLevelsEventContent
	if err := r.client.API().StateEvent(ctx, id.RoomID(room), event.StatePowerLevels, "", &levels); err != nil {
		return 0, err
	}
	return levels.GetUserLevel(id.UserID(user)), nil
}

// MarkRead implements repo.RoomRepo
func (r *MatrixRepo) MarkRead(ctx context.Context, room domain.RoomID, eventID domain.EventID) error {
	return r.client.API().MarkRead(ctx, id.RoomID(room), id.EventID(eventID))
}

// Upload implements repo.MediaRepo
func (r *MatrixRepo) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	resp, err := r.client.API().UploadBytes(ctx, data, mimeType)
	if err != nil {
		return "", err
	}
	return resp.ContentURI.String(), nil
}
