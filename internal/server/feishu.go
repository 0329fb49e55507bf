package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
	"github.com/thetabots/xkcd-bot/internal/biz/usecase"
	"github.com/thetabots/xkcd-bot/internal/infra/feishu"
	"github.com/thetabots/xkcd-bot/internal/service"
)

// feishuClient is the part of feishu.Client used by FeishuServer
type feishuClient interface {
	OnMessage(handler feishu.MessageHandler)
	Start(ctx context.Context) error
	Stop()
	ListChats(ctx context.Context) ([]string, error)
	DownloadResource(ctx context.Context, messageID, key, resourceType string) ([]byte, error)
}

// FeishuServer feeds Feishu messages into the event service and the daily scheduler.
// Feishu attachments are private to the message, so a sentinel image is
// downloaded and uploaded again before it becomes a configure event.
type FeishuServer struct {
	client     feishuClient
	events     *service.EventService
	scheduler  *service.DailyScheduler
	classifier *usecase.Classifier
	pipeline   *usecase.ImagePipeline
	seen       *seenCache
	logger     *slog.Logger
	ctx        context.Context
}

// NewFeishuServer creates a new Feishu server
func NewFeishuServer(
	client *feishu.Client,
	events *service.EventService,
	scheduler *service.DailyScheduler,
	classifier *usecase.Classifier,
	pipeline *usecase.ImagePipeline,
	logger *slog.Logger,
) *FeishuServer {
	return newFeishuServer(client, events, scheduler, classifier, pipeline, logger)
}

func newFeishuServer(
	client feishuClient,
	events *service.EventService,
	scheduler *service.DailyScheduler,
	classifier *usecase.Classifier,
	pipeline *usecase.ImagePipeline,
	logger *slog.Logger,
) *FeishuServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeishuServer{
		client:     client,
		events:     events,
		scheduler:  scheduler,
		classifier: classifier,
		pipeline:   pipeline,
		seen:       newSeenCache(),
		logger:     logger.With("component", "server"),
		ctx:        context.Background(),
	}
}

// Start starts the workers and the scheduler, then connects to Feishu (blocking)
func (s *FeishuServer) Start(ctx context.Context) error {
	s.ctx = ctx
	s.events.Start(ctx)

	// Chats the bot was added to while offline
	chats, err := s.client.ListChats(ctx)
	if err != nil {
		s.logger.Warn("failed to list chats, relying on incoming messages", "error", err)
	}
	for _, chatID := range chats {
		s.scheduler.ObserveRoom(domain.RoomID(chatID))
	}
	s.scheduler.Start(ctx)

	s.client.OnMessage(s.handleMessage)
	return s.client.Start(ctx)
}

// Stop disconnects from Feishu, then drains queued events
func (s *FeishuServer) Stop() {
	s.client.Stop()
	s.scheduler.Stop()
	s.events.Stop()
}

func (s *FeishuServer) handleMessage(msg *feishu.Message) {
	ctx := s.ctx
	if !s.seen.firstSight(msg.MsgID) {
		s.logger.Debug("duplicate message ignored", "msg_id", msg.MsgID)
		return
	}
	room := domain.RoomID(msg.ChatID)
	s.scheduler.ObserveRoom(room)

	var sender domain.UserID
	if msg.Sender != nil {
		sender = domain.UserID(msg.Sender.SenderID)
	}

	var err error
	switch msg.MsgType {
	case "text":
		err = s.submitText(ctx, room, sender, msg)
	case "post":
		// A post captioned with the sentinel name carries the configuring image
		if len(msg.ImageKeys) == 1 && s.classifier.IsSentinel(msg.Content) {
			err = s.submitSentinel(ctx, room, sender, msg, msg.ImageKeys[0], "image", msg.Content)
		} else {
			err = s.submitText(ctx, room, sender, msg)
		}
	case "file":
		if msg.FileKey != "" && s.classifier.IsSentinel(msg.FileName) {
			err = s.submitSentinel(ctx, room, sender, msg, msg.FileKey, "file", msg.FileName)
		}
	}
	if err != nil {
		s.logger.Warn("failed to queue message", "chat", msg.ChatID, "msg_id", msg.MsgID, "error", err)
	}
}

func (s *FeishuServer) submitText(ctx context.Context, room domain.RoomID, sender domain.UserID, msg *feishu.Message) error {
	if strings.TrimSpace(msg.Content) == "" {
		return nil
	}
	return s.events.SubmitText(ctx, domain.TextEvent{
		Room:    room,
		Sender:  sender,
		EventID: domain.EventID(msg.MsgID),
		Body:    msg.Content,
	})
}

func (s *FeishuServer) submitSentinel(ctx context.Context, room domain.RoomID, sender domain.UserID, msg *feishu.Message, key, resourceType, filename string) error {
	data, err := s.client.DownloadResource(ctx, msg.MsgID, key, resourceType)
	if err != nil {
		s.events.ReportError(ctx, room, fmt.Errorf("failed to download %s: %w", filename, err))
		return nil
	}
	img, err := s.pipeline.ProcessBytes(ctx, msg.MsgID+"/"+key, data)
	if err != nil {
		s.events.ReportError(ctx, room, err)
		return nil
	}
	return s.events.SubmitImage(ctx, domain.ImageEvent{
		Room:     room,
		Sender:   sender,
		EventID:  domain.EventID(msg.MsgID),
		Filename: filename,
		Image:    *img,
	})
}
