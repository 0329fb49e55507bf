package domain

import "time"

// State document keys. Values are kept stable so existing rooms keep their data.
const (
	LolCountKey        = "org.eu.theta.lolcount"
	FeatureSettingsKey = "org.eu.theta.wfrog.settings"
	FeatureStateKey    = "org.eu.theta.wfrog.state"
)

// LolCount is the per-room laughter counter document
type LolCount struct {
	Count uint64 `json:"lol_count"`
}

// FeatureSettings configures the daily image post for a room
type FeatureSettings struct {
	Link    string    `json:"link"`
	Text    string    `json:"text"`
	Info    ImageInfo `json:"info"`
	Enabled bool      `json:"enabled"`
}

// Image returns the configured image
func (s *FeatureSettings) Image() Image {
	return Image{Ref: s.Link, Info: s.Info}
}

// NewFeatureSettings creates enabled settings with an empty caption
func NewFeatureSettings(img Image) *FeatureSettings {
	return &FeatureSettings{
		Link:    img.Ref,
		Info:    img.Info,
		Enabled: true,
	}
}

// FeatureState records the last time the daily post fired in a room
type FeatureState struct {
	Last time.Time `json:"last"`
}

// Epoch is the LastFired value of a room that never fired
var Epoch = time.Unix(0, 0).UTC()

// FeatureStatus is the scheduler's view of a room
type FeatureStatus int

const (
	FeatureUnconfigured FeatureStatus = iota
	FeatureDisabled
	FeatureArmed
	FeatureFired
)

func (s FeatureStatus) String() string {
	switch s {
	case FeatureUnconfigured:
		return "unconfigured"
	case FeatureDisabled:
		return "disabled"
	case FeatureArmed:
		return "armed"
	case FeatureFired:
		return "fired"
	default:
		return "unknown"
	}
}

// SameDay reports whether a and b fall on the same calendar date in loc
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// ResolveFeatureStatus derives the room status at now.
// settings is nil when the room is unconfigured.
func ResolveFeatureStatus(settings *FeatureSettings, lastFired, now time.Time, loc *time.Location) FeatureStatus {
	switch {
	case settings == nil:
		return FeatureUnconfigured
	case !settings.Enabled:
		return FeatureDisabled
	case SameDay(lastFired, now, loc):
		return FeatureFired
	default:
		return FeatureArmed
	}
}
