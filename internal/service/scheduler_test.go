package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
)

func TestDailyScheduler_ObserveRoom(t *testing.T) {
	f := newFixture()
	s := NewDailyScheduler(f.featureUC, time.Minute, nil)

	s.ObserveRoom("!b")
	s.ObserveRoom("!a")
	s.ObserveRoom("!b")

	rooms := s.Rooms()
	if len(rooms) != 2 || rooms[0] != "!a" || rooms[1] != "!b" {
		t.Errorf("Expected [!a !b], got %v", rooms)
	}

	s.ForgetRoom("!a")
	if rooms := s.Rooms(); len(rooms) != 1 || rooms[0] != "!b" {
		t.Errorf("Expected [!b], got %v", rooms)
	}
}

func TestDailyScheduler_TickIdempotentPerDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s := NewDailyScheduler(f.featureUC, time.Minute, nil)
	s.ObserveRoom("!armed")
	s.ObserveRoom("!unconfigured")

	_ = f.accessor.SetFeatureSettings(ctx, "!armed", domain.NewFeatureSettings(testFrog))

	day1 := time.Date(2024, 5, 1, 0, 0, 30, 0, time.UTC)
	if fired := s.Tick(ctx, day1); fired != 1 {
		t.Fatalf("Expected 1 room to fire, got %d", fired)
	}
	if fired := s.Tick(ctx, day1.Add(23*time.Hour)); fired != 0 {
		t.Errorf("Expected no fire on the same day, got %d", fired)
	}
	if got := len(f.roomRepo.messagesIn("!armed")); got != 1 {
		t.Errorf("Expected a single image, got %d messages", got)
	}

	if fired := s.Tick(ctx, day1.Add(24*time.Hour)); fired != 1 {
		t.Errorf("Expected fire on the next day, got %d", fired)
	}
	if got := len(f.roomRepo.messagesIn("!unconfigured")); got != 0 {
		t.Errorf("Expected unconfigured room to stay silent, got %d", got)
	}
}

func TestDailyScheduler_FailureIsolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s := NewDailyScheduler(f.featureUC, time.Minute, nil)

	for _, room := range []domain.RoomID{"!a", "!b", "!c"} {
		s.ObserveRoom(room)
		_ = f.accessor.SetFeatureSettings(ctx, room, domain.NewFeatureSettings(testFrog))
	}
	f.stateRepo.failRooms["!b"] = errors.New("M_FORBIDDEN")

	if fired := s.Tick(ctx, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)); fired != 2 {
		t.Errorf("Expected 2 rooms to fire, got %d", fired)
	}
	if len(f.roomRepo.messagesIn("!a")) != 1 || len(f.roomRepo.messagesIn("!c")) != 1 {
		t.Error("Expected healthy rooms to fire")
	}
	if len(f.roomRepo.messagesIn("!b")) != 0 {
		t.Error("Expected failing room to send nothing")
	}
}

func TestDailyScheduler_RetriesUnrecordedFire(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s := NewDailyScheduler(f.featureUC, time.Minute, nil)
	s.ObserveRoom("!room")
	_ = f.accessor.SetFeatureSettings(ctx, "!room", domain.NewFeatureSettings(testFrog))

	f.stateRepo.mu.Lock()
	f.stateRepo.failWrites["!room"] = errors.New("database is locked")
	f.stateRepo.mu.Unlock()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if fired := s.Tick(ctx, now); fired != 0 {
		t.Errorf("Expected unrecorded fire not to count, got %d", fired)
	}
	if fired := s.Tick(ctx, now.Add(time.Minute)); fired != 0 {
		t.Errorf("Expected unrecorded fire not to count, got %d", fired)
	}
	if got := len(f.roomRepo.messagesIn("!room")); got != 2 {
		t.Errorf("Expected the post on both ticks, got %d messages", got)
	}

	f.stateRepo.mu.Lock()
	delete(f.stateRepo.failWrites, "!room")
	f.stateRepo.mu.Unlock()

	if fired := s.Tick(ctx, now.Add(2*time.Minute)); fired != 1 {
		t.Errorf("Expected fire once the write succeeds, got %d", fired)
	}
	if fired := s.Tick(ctx, now.Add(3*time.Minute)); fired != 0 {
		t.Errorf("Expected no fire after the time was recorded, got %d", fired)
	}
}

func TestDailyScheduler_StartStop(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s := NewDailyScheduler(f.featureUC, 10*time.Millisecond, nil)

	var mu sync.Mutex
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})

	s.ObserveRoom("!room")
	_ = f.accessor.SetFeatureSettings(ctx, "!room", domain.NewFeatureSettings(testFrog))

	s.Start(ctx)
	deadline := time.Now().Add(2 * time.Second)
	for f.roomRepo.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	// Several more ticks on the same day
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	if got := f.roomRepo.count(); got != 1 {
		t.Errorf("Expected exactly one post, got %d", got)
	}
}
