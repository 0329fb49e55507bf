package usecase

// ReplyConfig holds the texts the bot sends into rooms.
// Fields ending in Format are fmt templates.
type ReplyConfig struct {
	Ping         string
	Denied       string
	ParseFailed  string
	ErrorPrefix  string
	Done         string
	CountFormat  string
	UpdateFormat string

	ComicTitleFormat string
	ComicAltFormat   string
	InspirationBody  string

	FeatureEnabled        string
	FeatureDisabled       string
	FeatureCaptionFormat  string
	FeatureNoCaption      string
	FeatureImageHeader    string
	FeatureUnconfigFormat string // args: sentinel filename, required level
	FeatureLastFormat     string
}

// DefaultReplyConfig is the default reply configuration
var DefaultReplyConfig = ReplyConfig{
	Ping:         "ohai",
	Denied:       "(You can't tell me what to do!)",
	ParseFailed:  "(Parsing failed.)",
	ErrorPrefix:  "[error] ",
	Done:         "Done.",
	CountFormat:  "lolcount: %d",
	UpdateFormat: "lolcount updated - new value: %d",

	ComicTitleFormat: "%d: %s",
	ComicAltFormat:   "Alt text: %s",
	InspirationBody:  "inspirobot",

	FeatureEnabled:       "Wednesday frog is active!",
	FeatureDisabled:      "Wednesday frog is currently disabled.",
	FeatureCaptionFormat: "The text configured is: %s",
	FeatureNoCaption:     "(Configure text with the command 'mittwoch text [text goes here]'.)",
	FeatureImageHeader:   "The image configured is:",
	FeatureUnconfigFormat: "No Wednesday frog settings are active in this room.\n" +
		"To configure Wednesday frog, send an image with the filename \"%s\".\n" +
		"You must have power level %d or greater to do so.",
	FeatureLastFormat: "Wednesday frog last triggered at: %s",
}

// withDefaults fills empty fields from DefaultReplyConfig
func (c ReplyConfig) withDefaults() ReplyConfig {
	d := DefaultReplyConfig
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&c.Ping, d.Ping)
	fill(&c.Denied, d.Denied)
	fill(&c.ParseFailed, d.ParseFailed)
	fill(&c.ErrorPrefix, d.ErrorPrefix)
	fill(&c.Done, d.Done)
	fill(&c.CountFormat, d.CountFormat)
	fill(&c.UpdateFormat, d.UpdateFormat)
	fill(&c.ComicTitleFormat, d.ComicTitleFormat)
	fill(&c.ComicAltFormat, d.ComicAltFormat)
	fill(&c.InspirationBody, d.InspirationBody)
	fill(&c.FeatureEnabled, d.FeatureEnabled)
	fill(&c.FeatureDisabled, d.FeatureDisabled)
	fill(&c.FeatureCaptionFormat, d.FeatureCaptionFormat)
	fill(&c.FeatureNoCaption, d.FeatureNoCaption)
	fill(&c.FeatureImageHeader, d.FeatureImageHeader)
	fill(&c.FeatureUnconfigFormat, d.FeatureUnconfigFormat)
	fill(&c.FeatureLastFormat, d.FeatureLastFormat)
	return c
}
