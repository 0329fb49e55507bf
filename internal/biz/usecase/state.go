package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
	"github.com/thetabots/xkcd-bot/internal/biz/repo"
)

// StateAccessor provides typed access to room state documents.
// Absent documents are normalized to their defaults and never surface as errors.
type StateAccessor struct {
	stateRepo repo.StateRepo
}

// NewStateAccessor creates a new state accessor
func NewStateAccessor(stateRepo repo.StateRepo) *StateAccessor {
	return &StateAccessor{stateRepo: stateRepo}
}

// getDocument reads a document. found is false if the document is absent.
func getDocument[T any](ctx context.Context, r repo.StateRepo, room domain.RoomID, key string) (doc *T, found bool, err error) {
	var out T
	if err := r.GetState(ctx, room, key, &out); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return &out, true, nil
}

func (a *StateAccessor) setDocument(ctx context.Context, room domain.RoomID, key string, doc any) error {
	if err := a.stateRepo.SetState(ctx, room, key, doc); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// GetLols returns the room's lolcount, 0 if never set
func (a *StateAccessor) GetLols(ctx context.Context, room domain.RoomID) (uint64, error) {
	doc, found, err := getDocument[domain.LolCount](ctx, a.stateRepo, room, domain.LolCountKey)
	if err != nil || !found {
		return 0, err
	}
	return doc.Count, nil
}

// SetLols overwrites the room's lolcount
func (a *StateAccessor) SetLols(ctx context.Context, room domain.RoomID, count uint64) error {
	return a.setDocument(ctx, room, domain.LolCountKey, &domain.LolCount{Count: count})
}

// GetFeatureSettings returns the daily post settings, nil if the room is unconfigured
func (a *StateAccessor) GetFeatureSettings(ctx context.Context, room domain.RoomID) (*domain.FeatureSettings, error) {
	doc, _, err := getDocument[domain.FeatureSettings](ctx, a.stateRepo, room, domain.FeatureSettingsKey)
	return doc, err
}

// SetFeatureSettings overwrites the daily post settings
func (a *StateAccessor) SetFeatureSettings(ctx context.Context, room domain.RoomID, settings *domain.FeatureSettings) error {
	return a.setDocument(ctx, room, domain.FeatureSettingsKey, settings)
}

// GetFeatureState returns when the daily post last fired.
// found is false and last is the epoch if it never fired.
func (a *StateAccessor) GetFeatureState(ctx context.Context, room domain.RoomID) (last time.Time, found bool, err error) {
	doc, found, err := getDocument[domain.FeatureState](ctx, a.stateRepo, room, domain.FeatureStateKey)
	if err != nil || !found {
		return domain.Epoch, false, err
	}
	return doc.Last, true, nil
}

// SetFeatureState records the last fire time
func (a *StateAccessor) SetFeatureState(ctx context.Context, room domain.RoomID, last time.Time) error {
	return a.setDocument(ctx, room, domain.FeatureStateKey, &domain.FeatureState{Last: last.UTC()})
}
