package data

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
	"github.com/thetabots/xkcd-bot/internal/infra/feishu"
)

// OwnerPowerLevel is the level granted to the owner of a Feishu chat
const OwnerPowerLevel = 100

// feishuAPI is the part of feishu.Client used by FeishuRepo
type feishuAPI interface {
	SendText(ctx context.Context, chatID, text, uuid string) error
	SendImage(ctx context.Context, chatID, imageKey, uuid string) error
	UploadImage(ctx context.Context, data []byte) (string, error)
	GetChatInfo(ctx context.Context, chatID string) (*feishu.ChatInfo, error)
}

// FeishuRepo implements the room and media repositories on Feishu.
// Feishu has no power levels, so the chat owner is treated as room admin
// and other users get their configured level.
type FeishuRepo struct {
	client      feishuAPI
	powerLevels map[string]int
}

// NewFeishuRepo creates a new Feishu repository
func NewFeishuRepo(client *feishu.Client, powerLevels map[string]int) *FeishuRepo {
	return newFeishuRepo(client, powerLevels)
}

func newFeishuRepo(client feishuAPI, powerLevels map[string]int) *FeishuRepo {
	if powerLevels == nil {
		powerLevels = make(map[string]int)
	}
	return &FeishuRepo{client: client, powerLevels: powerLevels}
}

// SendText implements repo.RoomRepo
func (r *FeishuRepo) SendText(ctx context.Context, room domain.RoomID, text string) error {
	return r.client.SendText(ctx, string(room), text, uuid.NewString())
}

// SendImage implements repo.RoomRepo. Feishu image messages carry no caption, so body is dropped.
func (r *FeishuRepo) SendImage(ctx context.Context, room domain.RoomID, body string, img domain.Image) error {
	if img.Ref == "" {
		return fmt.Errorf("image has no key")
	}
	return r.client.SendImage(ctx, string(room), img.Ref, uuid.NewString())
}

// PowerLevel implements repo.RoomRepo
func (r *FeishuRepo) PowerLevel(ctx context.Context, room domain.RoomID, user domain.UserID) (int, error) {
	level := r.powerLevels[string(user)]
	if level >= OwnerPowerLevel {
		return level, nil
	}

	info, err := r.client.GetChatInfo(ctx, string(room))
	if err != nil {
		return 0, err
	}
	if info.OwnerID != "" && info.OwnerID == string(user) {
		return OwnerPowerLevel, nil
	}
	return level, nil
}

// MarkRead implements repo.RoomRepo. Feishu tracks read state itself.
func (r *FeishuRepo) MarkRead(ctx context.Context, room domain.RoomID, eventID domain.EventID) error {
	return nil
}

// Upload implements repo.MediaRepo
func (r *FeishuRepo) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	return r.client.UploadImage(ctx, data)
}
