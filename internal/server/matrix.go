package server

import (
	"context"
	"log/slog"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
	"github.com/thetabots/xkcd-bot/internal/infra/matrix"
	"github.com/thetabots/xkcd-bot/internal/service"
)

// MatrixServer feeds Matrix sync events into the event service and the daily scheduler
type MatrixServer struct {
	client    *matrix.Client
	events    *service.EventService
	scheduler *service.DailyScheduler
	seen      *seenCache
	logger    *slog.Logger
}

// NewMatrixServer creates a new Matrix server
func NewMatrixServer(client *matrix.Client, events *service.EventService, scheduler *service.DailyScheduler, logger *slog.Logger) *MatrixServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatrixServer{
		client:    client,
		events:    events,
		scheduler: scheduler,
		seen:      newSeenCache(),
		logger:    logger.With("component", "server"),
	}
}

// Start starts the workers, the scheduler and the sync loop (blocking)
func (s *MatrixServer) Start(ctx context.Context) error {
	s.client.OnMessage(s.handleMessage)
	s.client.OnRoomJoined(func(roomID id.RoomID) {
		s.scheduler.ObserveRoom(domain.RoomID(roomID))
	})
	s.client.OnRoomLeft(func(roomID id.RoomID) {
		s.scheduler.ForgetRoom(domain.RoomID(roomID))
	})

	s.events.Start(ctx)
	s.scheduler.Start(ctx)
	return s.client.Start(ctx)
}

// Stop stops the sync loop, then drains queued events
func (s *MatrixServer) Stop() {
	s.client.Stop()
	s.scheduler.Stop()
	s.events.Stop()
}

func (s *MatrixServer) handleMessage(ctx context.Context, msg *matrix.Message) {
	if !s.seen.firstSight(string(msg.EventID)) {
		s.logger.Debug("duplicate event ignored", "event", msg.EventID)
		return
	}
	s.scheduler.ObserveRoom(domain.RoomID(msg.RoomID))

	var err error
	if text, ok := matrixTextEvent(msg); ok {
		err = s.events.SubmitText(ctx, text)
	} else if image, ok := matrixImageEvent(msg); ok {
		err = s.events.SubmitImage(ctx, image)
	} else {
		return
	}
	if err != nil {
		s.logger.Warn("failed to queue event", "room", msg.RoomID, "event", msg.EventID, "error", err)
	}
}

func matrixTextEvent(msg *matrix.Message) (domain.TextEvent, bool) {
	if msg.MsgType != event.MsgText {
		return domain.TextEvent{}, false
	}
	return domain.TextEvent{
		Room:    domain.RoomID(msg.RoomID),
		Sender:  domain.UserID(msg.Sender),
		EventID: domain.EventID(msg.EventID),
		Body:    msg.Body,
	}, true
}

func matrixImageEvent(msg *matrix.Message) (domain.ImageEvent, bool) {
	// Encrypted media has no plain URL. Without info the stored settings would carry empty metadata.
	if msg.MsgType != event.MsgImage || msg.URL == "" || msg.Info == nil {
		return domain.ImageEvent{}, false
	}

	// The filename is in body unless a separate caption was given
	filename := msg.FileName
	if filename == "" {
		filename = msg.Body
	}

	img := domain.Image{
		Ref: string(msg.URL),
		Info: domain.ImageInfo{
			MimeType: msg.Info.MimeType,
			Width:    msg.Info.Width,
			Height:   msg.Info.Height,
			Size:     msg.Info.Size,
		},
	}
	return domain.ImageEvent{
		Room:     domain.RoomID(msg.RoomID),
		Sender:   domain.UserID(msg.Sender),
		EventID:  domain.EventID(msg.EventID),
		Filename: filename,
		Image:    img,
	}, true
}
