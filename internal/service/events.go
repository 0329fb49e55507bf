package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
	"github.com/thetabots/xkcd-bot/internal/biz/repo"
	"github.com/thetabots/xkcd-bot/internal/biz/usecase"
)

// ErrStopped is returned when submitting to a stopped EventService
var ErrStopped = errors.New("event service stopped")

// event is one inbound chat event; exactly one field is set
type event struct {
	text  *domain.TextEvent
	image *domain.ImageEvent
}

func (e event) room() domain.RoomID {
	if e.text != nil {
		return e.text.Room
	}
	return e.image.Room
}

// EventService runs inbound events on a bounded worker pool.
// Each event is handled independently; a failure or panic never affects other events.
type EventService struct {
	classifier *usecase.Classifier
	dispatcher *usecase.Dispatcher
	roomRepo   repo.RoomRepo
	workers    int
	logger     *slog.Logger

	queue  chan event
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewEventService creates a new event service
func NewEventService(
	classifier *usecase.Classifier,
	dispatcher *usecase.Dispatcher,
	roomRepo repo.RoomRepo,
	workers int,
	logger *slog.Logger,
) *EventService {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{
		classifier: classifier,
		dispatcher: dispatcher,
		roomRepo:   roomRepo,
		workers:    workers,
		logger:     logger.With("component", "events"),
		queue:      make(chan event, workers*16),
	}
}

// Start starts the workers
func (s *EventService) Start(ctx context.Context) {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
	s.logger.Info("started", "workers", s.workers)
}

// Stop stops accepting events and waits for queued events to finish
func (s *EventService) Stop() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Info("stopped")
}

// SubmitText queues a text event. Blocks while the queue is full.
func (s *EventService) SubmitText(ctx context.Context, ev domain.TextEvent) error {
	return s.submit(ctx, event{text: &ev})
}

// SubmitImage queues an image event. Blocks while the queue is full.
func (s *EventService) SubmitImage(ctx context.Context, ev domain.ImageEvent) error {
	return s.submit(ctx, event{image: &ev})
}

func (s *EventService) submit(ctx context.Context, ev event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStopped
	}
	select {
	case s.queue <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *EventService) worker(ctx context.Context) {
	defer s.wg.Done()
	for ev := range s.queue {
		s.process(ctx, ev)
	}
}

// HandleText processes a text event synchronously
func (s *EventService) HandleText(ctx context.Context, ev domain.TextEvent) {
	s.process(ctx, event{text: &ev})
}

// HandleImage processes an image event synchronously
func (s *EventService) HandleImage(ctx context.Context, ev domain.ImageEvent) {
	s.process(ctx, event{image: &ev})
}

// process is the failure boundary for one event
func (s *EventService) process(ctx context.Context, ev event) {
	room := ev.room()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("internal error: %v", r)
			s.logger.Error("event handler panicked", "room", room, "panic", r)
			s.dispatcher.ReportError(ctx, room, err)
		}
	}()

	var (
		sender  domain.UserID
		eventID domain.EventID
		cmd     domain.Command
		ok      bool
	)
	if ev.text != nil {
		sender, eventID = ev.text.Sender, ev.text.EventID
		cmd, ok = s.classifier.Classify(ev.text.Body)
	} else {
		sender, eventID = ev.image.Sender, ev.image.EventID
		cmd, ok = s.classifier.ClassifyImage(ev.image.Filename, ev.image.Image)
	}

	s.markRead(ctx, room, eventID)

	if !ok {
		return
	}
	s.logger.Debug("command received", "room", room, "sender", sender, "command", cmd.String())
	s.dispatcher.Handle(ctx, room, sender, cmd)
}

// ReportError tells the room about a failure that happened before an event could be queued
func (s *EventService) ReportError(ctx context.Context, room domain.RoomID, err error) {
	s.logger.Error("event intake failed", "room", room, "error", err)
	s.dispatcher.ReportError(ctx, room, err)
}

// markRead sends a best-effort read receipt
func (s *EventService) markRead(ctx context.Context, room domain.RoomID, eventID domain.EventID) {
	if eventID == "" {
		return
	}
	if err := s.roomRepo.MarkRead(ctx, room, eventID); err != nil {
		s.logger.Warn("failed to send read receipt", "room", room, "event", eventID, "error", err)
	}
}
