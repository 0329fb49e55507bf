package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
)

func TestPermissionGate_RequiredLevel(t *testing.T) {
	gate := NewPermissionGate(newMockRoomRepo(), DefaultLevelConfig)

	tests := []struct {
		kind domain.CommandKind
		want int
	}{
		{domain.CommandPing, 0},
		{domain.CommandComic, 0},
		{domain.CommandInspiration, 0},
		{domain.CommandGetCounter, 0},
		{domain.CommandIncrementCounter, 0},
		{domain.CommandFeatureStatus, 0},
		{domain.CommandParseFailure, 0},
		{domain.CommandFeatureToggle, 20},
		{domain.CommandFeatureSetText, 20},
		{domain.CommandFeatureConfigure, 20},
		{domain.CommandSetCounter, 50},
	}
	for _, tt := range tests {
		if got := gate.RequiredLevel(tt.kind); got != tt.want {
			t.Errorf("RequiredLevel(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestPermissionGate_Authorize(t *testing.T) {
	ctx := context.Background()
	roomRepo := newMockRoomRepo()
	gate := NewPermissionGate(roomRepo, DefaultLevelConfig)
	setCounter := domain.Command{Kind: domain.CommandSetCounter, Count: 5}

	tests := []struct {
		level int
		want  Decision
	}{
		{-10, Denied},
		{0, Denied},
		{49, Denied},
		{50, Allowed},
		{100, Allowed},
	}
	for _, tt := range tests {
		roomRepo.levels["@alice:example.org"] = tt.level
		got, err := gate.Authorize(ctx, "!room", "@alice:example.org", setCounter)
		if err != nil {
			t.Fatalf("Authorize failed: %v", err)
		}
		if got != tt.want {
			t.Errorf("level %d: got %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestPermissionGate_NoCaching(t *testing.T) {
	ctx := context.Background()
	roomRepo := newMockRoomRepo()
	gate := NewPermissionGate(roomRepo, DefaultLevelConfig)
	toggle := domain.Command{Kind: domain.CommandFeatureToggle, Enabled: true}

	roomRepo.levels["@bob:example.org"] = 10
	if d, _ := gate.Authorize(ctx, "!room", "@bob:example.org", toggle); d != Denied {
		t.Fatalf("Expected denied, got %s", d)
	}

	roomRepo.levels["@bob:example.org"] = 20
	if d, _ := gate.Authorize(ctx, "!room", "@bob:example.org", toggle); d != Allowed {
		t.Errorf("Expected level change to apply immediately, got %s", d)
	}

	roomRepo.levels["@bob:example.org"] = 0
	if d, _ := gate.Authorize(ctx, "!room", "@bob:example.org", toggle); d != Denied {
		t.Errorf("Expected demotion to apply immediately, got %s", d)
	}

	if roomRepo.levelCalls != 3 {
		t.Errorf("Expected 3 level queries, got %d", roomRepo.levelCalls)
	}
}

func TestPermissionGate_NegativeLevel(t *testing.T) {
	ctx := context.Background()
	roomRepo := newMockRoomRepo()
	roomRepo.levels["@muted:example.org"] = -10
	gate := NewPermissionGate(roomRepo, DefaultLevelConfig)

	for _, kind := range []domain.CommandKind{
		domain.CommandPing,
		domain.CommandComic,
		domain.CommandInspiration,
		domain.CommandGetCounter,
		domain.CommandIncrementCounter,
		domain.CommandFeatureStatus,
	} {
		d, err := gate.Authorize(ctx, "!room", "@muted:example.org", domain.Command{Kind: kind})
		if err != nil {
			t.Fatalf("Authorize(%s) failed: %v", kind, err)
		}
		if d != Denied {
			t.Errorf("Authorize(%s) at level -10: got %s, want denied", kind, d)
		}
	}
	if roomRepo.levelCalls != 6 {
		t.Errorf("Expected a level query per command, got %d", roomRepo.levelCalls)
	}

	d, err := gate.Authorize(ctx, "!room", "@carol:example.org", domain.Command{Kind: domain.CommandPing})
	if err != nil || d != Allowed {
		t.Errorf("Expected level 0 to run ping, got %s err=%v", d, err)
	}
}

func TestPermissionGate_QueryError(t *testing.T) {
	roomRepo := newMockRoomRepo()
	roomRepo.levelErr = errors.New("M_FORBIDDEN")
	gate := NewPermissionGate(roomRepo, DefaultLevelConfig)

	_, err := gate.Authorize(context.Background(), "!room", "@carol:example.org", domain.Command{Kind: domain.CommandSetCounter})
	if err == nil {
		t.Error("Expected error from failed level query")
	}
}
