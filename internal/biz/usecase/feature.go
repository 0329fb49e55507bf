package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
	"github.com/thetabots/xkcd-bot/internal/biz/repo"
)

// FeatureConfig configures the daily post
type FeatureConfig struct {
	Location    *time.Location // calendar used to decide "same day"
	Sentinel    string         // image filename that configures a room
	ConfigLevel int            // level required to configure, shown in hints
	Replies     ReplyConfig
}

// FeatureUsecase manages the per-room daily image post
type FeatureUsecase struct {
	accessor *StateAccessor
	roomRepo repo.RoomRepo
	cfg      FeatureConfig
}

// NewFeatureUsecase creates a new daily post usecase
func NewFeatureUsecase(accessor *StateAccessor, roomRepo repo.RoomRepo, cfg FeatureConfig) *FeatureUsecase {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Sentinel == "" {
		cfg.Sentinel = DefaultFeatureSentinel
	}
	cfg.Replies = cfg.Replies.withDefaults()
	return &FeatureUsecase{
		accessor: accessor,
		roomRepo: roomRepo,
		cfg:      cfg,
	}
}

// Location returns the reference time zone
func (uc *FeatureUsecase) Location() *time.Location {
	return uc.cfg.Location
}

// Status resolves the room's scheduler status at now
func (uc *FeatureUsecase) Status(ctx context.Context, room domain.RoomID, now time.Time) (domain.FeatureStatus, error) {
	settings, err := uc.accessor.GetFeatureSettings(ctx, room)
	if err != nil {
		return domain.FeatureUnconfigured, err
	}
	last, _, err := uc.accessor.GetFeatureState(ctx, room)
	if err != nil {
		return domain.FeatureUnconfigured, err
	}
	return domain.ResolveFeatureStatus(settings, last, now, uc.cfg.Location), nil
}

// Fire sends the daily post if the room is armed at now.
// The fire time is persisted only after the post was sent.
func (uc *FeatureUsecase) Fire(ctx context.Context, room domain.RoomID, now time.Time) (bool, error) {
	last, _, err := uc.accessor.GetFeatureState(ctx, room)
	if err != nil {
		return false, err
	}
	if domain.SameDay(last, now, uc.cfg.Location) {
		return false, nil
	}

	settings, err := uc.accessor.GetFeatureSettings(ctx, room)
	if err != nil {
		return false, err
	}
	if settings == nil || !settings.Enabled {
		return false, nil
	}

	if settings.Text != "" {
		if err := uc.roomRepo.SendText(ctx, room, settings.Text); err != nil {
			return false, fmt.Errorf("failed to send caption: %w", err)
		}
	}
	if err := uc.roomRepo.SendImage(ctx, room, settings.Text, settings.Image()); err != nil {
		return false, fmt.Errorf("failed to send image: %w", err)
	}
	if err := uc.accessor.SetFeatureState(ctx, room, now); err != nil {
		return true, fmt.Errorf("failed to record fire time: %w", err)
	}
	return true, nil
}

// Explain describes the room's configuration
func (uc *FeatureUsecase) Explain(ctx context.Context, room domain.RoomID) error {
	settings, err := uc.accessor.GetFeatureSettings(ctx, room)
	if err != nil {
		return err
	}
	last, fired, err := uc.accessor.GetFeatureState(ctx, room)
	if err != nil {
		return err
	}

	r := uc.cfg.Replies
	if settings == nil {
		if err := uc.roomRepo.SendText(ctx, room, uc.unconfiguredHint()); err != nil {
			return err
		}
	} else {
		var sb strings.Builder
		if settings.Enabled {
			sb.WriteString(r.FeatureEnabled)
		} else {
			sb.WriteString(r.FeatureDisabled)
		}
		sb.WriteString("\n")
		if settings.Text != "" {
			sb.WriteString(fmt.Sprintf(r.FeatureCaptionFormat, settings.Text))
		} else {
			sb.WriteString(r.FeatureNoCaption)
		}
		sb.WriteString("\n")
		sb.WriteString(r.FeatureImageHeader)

		if err := uc.roomRepo.SendText(ctx, room, sb.String()); err != nil {
			return err
		}
		if err := uc.roomRepo.SendImage(ctx, room, settings.Text, settings.Image()); err != nil {
			return err
		}
	}

	if fired {
		return uc.roomRepo.SendText(ctx, room, fmt.Sprintf(r.FeatureLastFormat, uc.FormatTimestamp(last)))
	}
	return nil
}

// Toggle enables or disables the daily post
func (uc *FeatureUsecase) Toggle(ctx context.Context, room domain.RoomID, enabled bool) error {
	return uc.update(ctx, room, func(s *domain.FeatureSettings) {
		s.Enabled = enabled
	})
}

// SetText sets the caption sent with the daily post
func (uc *FeatureUsecase) SetText(ctx context.Context, room domain.RoomID, text string) error {
	return uc.update(ctx, room, func(s *domain.FeatureSettings) {
		s.Text = text
	})
}

// Configure stores img as the room's daily post, enabled and without caption
func (uc *FeatureUsecase) Configure(ctx context.Context, room domain.RoomID, img domain.Image) error {
	if err := uc.accessor.SetFeatureSettings(ctx, room, domain.NewFeatureSettings(img)); err != nil {
		return err
	}
	return uc.roomRepo.SendText(ctx, room, uc.cfg.Replies.Done)
}

// update runs a read-modify-write on the settings. Unconfigured rooms get the setup hint.
func (uc *FeatureUsecase) update(ctx context.Context, room domain.RoomID, mutate func(*domain.FeatureSettings)) error {
	settings, err := uc.accessor.GetFeatureSettings(ctx, room)
	if err != nil {
		return err
	}
	if settings == nil {
		return uc.roomRepo.SendText(ctx, room, uc.unconfiguredHint())
	}

	mutate(settings)
	if err := uc.accessor.SetFeatureSettings(ctx, room, settings); err != nil {
		return err
	}
	return uc.roomRepo.SendText(ctx, room, uc.cfg.Replies.Done)
}

func (uc *FeatureUsecase) unconfiguredHint() string {
	return fmt.Sprintf(uc.cfg.Replies.FeatureUnconfigFormat, uc.cfg.Sentinel, uc.cfg.ConfigLevel)
}

// FormatTimestamp renders a fire time for humans in the zone that decides "same day"
func (uc *FeatureUsecase) FormatTimestamp(t time.Time) string {
	return t.In(uc.cfg.Location).Format("2006-01-02 15:04:05 MST")
}
