package domain

import "fmt"

// CommandKind identifies a bot command
type CommandKind int

const (
	CommandPing CommandKind = iota + 1
	CommandComic
	CommandInspiration
	CommandGetCounter
	CommandIncrementCounter
	CommandSetCounter
	CommandFeatureStatus
	CommandFeatureToggle
	CommandFeatureSetText
	CommandFeatureConfigure
	// CommandParseFailure is a recognized command whose argument failed to parse.
	CommandParseFailure
)

var commandNames = map[CommandKind]string{
	CommandPing:             "ping",
	CommandComic:            "comic",
	CommandInspiration:      "inspiration",
	CommandGetCounter:       "get_counter",
	CommandIncrementCounter: "increment_counter",
	CommandSetCounter:       "set_counter",
	CommandFeatureStatus:    "feature_status",
	CommandFeatureToggle:    "feature_toggle",
	CommandFeatureSetText:   "feature_set_text",
	CommandFeatureConfigure: "feature_configure",
	CommandParseFailure:     "parse_failure",
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int(k))
}

// Command is a classified chat command.
// Only the fields relevant to Kind are set.
type Command struct {
	Kind CommandKind

	// ComicNum is nil for the latest comic
	ComicNum *int
	// Count is the new counter value for CommandSetCounter
	Count uint64
	// Enabled is the target state for CommandFeatureToggle
	Enabled bool
	// Text is the caption for CommandFeatureSetText
	Text string
	// Image is the uploaded image for CommandFeatureConfigure
	Image *Image
	// Reason describes what failed to parse
	Reason string
}

func (c Command) String() string {
	switch c.Kind {
	case CommandComic:
		if c.ComicNum == nil {
			return "comic(latest)"
		}
		return fmt.Sprintf("comic(%d)", *c.ComicNum)
	case CommandSetCounter:
		return fmt.Sprintf("set_counter(%d)", c.Count)
	case CommandFeatureToggle:
		return fmt.Sprintf("feature_toggle(%t)", c.Enabled)
	case CommandFeatureSetText:
		return fmt.Sprintf("feature_set_text(%q)", c.Text)
	default:
		return c.Kind.String()
	}
}
