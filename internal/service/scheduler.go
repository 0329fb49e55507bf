package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
	"github.com/thetabots/xkcd-bot/internal/biz/usecase"
)

// DailyScheduler polls every known room and fires the daily post at most once per calendar day
type DailyScheduler struct {
	featureUC *usecase.FeatureUsecase
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger

	// Room registry, fed by the transport layer
	roomsMu sync.RWMutex
	rooms   map[domain.RoomID]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDailyScheduler creates a new daily scheduler
func NewDailyScheduler(featureUC *usecase.FeatureUsecase, interval time.Duration, logger *slog.Logger) *DailyScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DailyScheduler{
		featureUC: featureUC,
		interval:  interval,
		now:       time.Now,
		logger:    logger.With("component", "scheduler"),
		rooms:     make(map[domain.RoomID]struct{}),
	}
}

// SetClock replaces the time source
func (s *DailyScheduler) SetClock(now func() time.Time) {
	s.now = now
}

// ObserveRoom adds a room to the registry. Repeated calls are no-ops.
func (s *DailyScheduler) ObserveRoom(room domain.RoomID) {
	s.roomsMu.Lock()
	defer s.roomsMu.Unlock()
	if _, ok := s.rooms[room]; ok {
		return
	}
	s.rooms[room] = struct{}{}
	s.logger.Debug("room observed", "room", room)
}

// ForgetRoom removes a room the bot left
func (s *DailyScheduler) ForgetRoom(room domain.RoomID) {
	s.roomsMu.Lock()
	defer s.roomsMu.Unlock()
	delete(s.rooms, room)
}

// Rooms returns a sorted snapshot of the registry
func (s *DailyScheduler) Rooms() []domain.RoomID {
	s.roomsMu.RLock()
	defer s.roomsMu.RUnlock()
	rooms := make([]domain.RoomID, 0, len(s.rooms))
	for room := range s.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	return rooms
}

// Start starts the scheduler
func (s *DailyScheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loop()

	s.logger.Info("started", "interval", s.interval, "timezone", s.featureUC.Location().String())
}

// Stop stops the scheduler. A tick in progress finishes first.
func (s *DailyScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("stopped")
}

func (s *DailyScheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			// In-flight room processing is not cancelled by Stop
			s.Tick(context.WithoutCancel(s.ctx), s.now())
		}
	}
}

// Tick processes every known room once. A failing room is logged and skipped.
// Returns the number of rooms that fired.
func (s *DailyScheduler) Tick(ctx context.Context, now time.Time) int {
	fired := 0
	for _, room := range s.Rooms() {
		ok, err := s.featureUC.Fire(ctx, room, now)
		if err != nil {
			s.logger.Error("failed to process room", "room", room, "error", err)
			continue
		}
		if ok {
			fired++
			s.logger.Info("daily post sent", "room", room)
		}
	}
	return fired
}
