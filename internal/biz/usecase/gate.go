package usecase

import (
	"context"
	"fmt"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
	"github.com/thetabots/xkcd-bot/internal/biz/repo"
)

// Decision is the outcome of an authorization check
type Decision int

const (
	Allowed Decision = iota
	Denied
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

// LevelConfig holds the permission thresholds
type LevelConfig struct {
	FeatureConfig   int // toggling, captioning and configuring the daily post
	CounterOverride int // overwriting the lolcount
}

// DefaultLevelConfig is the default threshold configuration
var DefaultLevelConfig = LevelConfig{
	FeatureConfig:   20,
	CounterOverride: 50,
}

// PermissionGate authorizes commands against the sender's room permission level
type PermissionGate struct {
	roomRepo repo.RoomRepo
	levels   LevelConfig
}

// NewPermissionGate creates a new permission gate
func NewPermissionGate(roomRepo repo.RoomRepo, levels LevelConfig) *PermissionGate {
	return &PermissionGate{
		roomRepo: roomRepo,
		levels:   levels,
	}
}

// RequiredLevel returns the minimum level needed to run a command kind
func (g *PermissionGate) RequiredLevel(kind domain.CommandKind) int {
	switch kind {
	case domain.CommandFeatureToggle, domain.CommandFeatureSetText, domain.CommandFeatureConfigure:
		return g.levels.FeatureConfig
	case domain.CommandSetCounter:
		return g.levels.CounterOverride
	default:
		return 0
	}
}

// Authorize checks whether sender may run cmd in room.
// The level is queried on every call so changes apply to the very next message.
// Levels may be negative (muted users), so threshold-0 commands are checked too.
func (g *PermissionGate) Authorize(ctx context.Context, room domain.RoomID, sender domain.UserID, cmd domain.Command) (Decision, error) {
	required := g.RequiredLevel(cmd.Kind)

	level, err := g.roomRepo.PowerLevel(ctx, room, sender)
	if err != nil {
		return Denied, fmt.Errorf("failed to query power level: %w", err)
	}
	if level < required {
		return Denied, nil
	}
	return Allowed, nil
}
