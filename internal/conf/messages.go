package conf

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/thetabots/xkcd-bot/internal/biz/usecase"
)

// MessagesConfig contains the bot's reply texts loaded from YAML.
// Empty fields fall back to the built-in defaults.
type MessagesConfig struct {
	Commands CommandMessages `yaml:"commands"`
	Counter  CounterMessages `yaml:"counter"`
	Content  ContentMessages `yaml:"content"`
	Feature  FeatureMessages `yaml:"feature"`
}

// CommandMessages contains generic command outcomes
type CommandMessages struct {
	Ping        string `yaml:"ping"`
	Denied      string `yaml:"denied"`
	ParseFailed string `yaml:"parse_failed"`
	ErrorPrefix string `yaml:"error_prefix"`
	Done        string `yaml:"done"`
}

// CounterMessages contains lolcount replies
type CounterMessages struct {
	Count   string `yaml:"count"`
	Updated string `yaml:"updated"`
}

// ContentMessages contains comic and inspiration texts
type ContentMessages struct {
	ComicTitle      string `yaml:"comic_title"`
	ComicAlt        string `yaml:"comic_alt"`
	InspirationBody string `yaml:"inspiration_body"`
}

// FeatureMessages contains daily post explanations
type FeatureMessages struct {
	Enabled      string `yaml:"enabled"`
	Disabled     string `yaml:"disabled"`
	Caption      string `yaml:"caption"`
	NoCaption    string `yaml:"no_caption"`
	ImageHeader  string `yaml:"image_header"`
	Unconfigured string `yaml:"unconfigured"`
	LastFired    string `yaml:"last_fired"`
}

// LoadMessagesConfig loads reply texts from YAML file
func LoadMessagesConfig(configPath string) (*MessagesConfig, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/messages.yaml",
			"/etc/xkcd-bot/messages.yaml",
		}
		// Add path relative to executable
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "messages.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data = b
			loadedPath = p
			break
		}
	}

	if data == nil {
		slog.Debug("no messages.yaml found, using defaults", "component", "config")
		return &MessagesConfig{}, nil
	}

	slog.Info("loading messages", "component", "config", "path", loadedPath)

	var config MessagesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return &MessagesConfig{}, fmt.Errorf("failed to parse %s: %w", loadedPath, err)
	}
	return &config, nil
}

// ToReplyConfig converts to the usecase reply configuration
func (c *MessagesConfig) ToReplyConfig() usecase.ReplyConfig {
	d := usecase.DefaultReplyConfig
	pick := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	return usecase.ReplyConfig{
		Ping:         pick(c.Commands.Ping, d.Ping),
		Denied:       pick(c.Commands.Denied, d.Denied),
		ParseFailed:  pick(c.Commands.ParseFailed, d.ParseFailed),
		ErrorPrefix:  pick(c.Commands.ErrorPrefix, d.ErrorPrefix),
		Done:         pick(c.Commands.Done, d.Done),
		CountFormat:  pick(c.Counter.Count, d.CountFormat),
		UpdateFormat: pick(c.Counter.Updated, d.UpdateFormat),

		ComicTitleFormat: pick(c.Content.ComicTitle, d.ComicTitleFormat),
		ComicAltFormat:   pick(c.Content.ComicAlt, d.ComicAltFormat),
		InspirationBody:  pick(c.Content.InspirationBody, d.InspirationBody),

		FeatureEnabled:        pick(c.Feature.Enabled, d.FeatureEnabled),
		FeatureDisabled:       pick(c.Feature.Disabled, d.FeatureDisabled),
		FeatureCaptionFormat:  pick(c.Feature.Caption, d.FeatureCaptionFormat),
		FeatureNoCaption:      pick(c.Feature.NoCaption, d.FeatureNoCaption),
		FeatureImageHeader:    pick(c.Feature.ImageHeader, d.FeatureImageHeader),
		FeatureUnconfigFormat: pick(c.Feature.Unconfigured, d.FeatureUnconfigFormat),
		FeatureLastFormat:     pick(c.Feature.LastFired, d.FeatureLastFormat),
	}
}
