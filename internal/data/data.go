package data

import (
	"time"

	"github.com/thetabots/xkcd-bot/internal/biz/repo"
	"github.com/thetabots/xkcd-bot/internal/infra/feishu"
	"github.com/thetabots/xkcd-bot/internal/infra/matrix"
	"github.com/thetabots/xkcd-bot/internal/infra/web"
)

// WebConfig configures the HTTP content sources
type WebConfig struct {
	XkcdURL       string
	InspirobotURL string
	Timeout       time.Duration
}

// Repositories contains all repositories
type Repositories struct {
	State       repo.StateRepo
	Room        repo.RoomRepo
	Media       repo.MediaRepo
	Fetcher     repo.Fetcher
	Comics      repo.ComicRepo
	Inspiration repo.InspirationRepo

	closers []func() error
}

// Close releases resources held by the repositories
func (r *Repositories) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func withWeb(r *Repositories, cfg WebConfig) *Repositories {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.XkcdURL == "" {
		cfg.XkcdURL = web.DefaultXkcdURL
	}
	if cfg.InspirobotURL == "" {
		cfg.InspirobotURL = web.DefaultInspirobotURL
	}
	client := web.NewClient(cfg.Timeout)
	r.Fetcher = client
	r.Comics = web.NewXkcdClient(client, cfg.XkcdURL)
	r.Inspiration = web.NewInspirobotClient(client, cfg.InspirobotURL)
	return r
}

// NewMatrixRepositories creates repositories backed by a Matrix homeserver.
// Room state lives on the server.
func NewMatrixRepositories(client *matrix.Client, webCfg WebConfig) *Repositories {
	mr := NewMatrixRepo(client)
	return withWeb(&Repositories{
		State: mr,
		Room:  mr,
		Media: mr,
	}, webCfg)
}

// NewFeishuRepositories creates repositories backed by Feishu, with room state in SQLite
func NewFeishuRepositories(client *feishu.Client, stateDBPath string, powerLevels map[string]int, webCfg WebConfig) (*Repositories, error) {
	stateRepo, err := NewSQLiteStateRepo(stateDBPath)
	if err != nil {
		return nil, err
	}
	fr := NewFeishuRepo(client, powerLevels)
	return withWeb(&Repositories{
		State:   stateRepo,
		Room:    fr,
		Media:   fr,
		closers: []func() error{stateRepo.Close},
	}, webCfg), nil
}
