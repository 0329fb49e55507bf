package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
	"github.com/thetabots/xkcd-bot/internal/biz/usecase"
	"github.com/thetabots/xkcd-bot/internal/conf"
	"github.com/thetabots/xkcd-bot/internal/data"
	"github.com/thetabots/xkcd-bot/internal/infra/feishu"
	"github.com/thetabots/xkcd-bot/internal/infra/matrix"
	"github.com/thetabots/xkcd-bot/internal/mcpserver"
)

// This MCP server exposes read-only tools over stdio for inspecting the bot's room state.
// It reads the same state store as the running bot and never sends messages.

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	pflag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		slog.Debug("no .env file found", "path", *envFile)
	}

	cfg := conf.LoadFromEnv()
	// stdout carries the protocol, logs go to stderr
	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		repos *data.Repositories
		rooms mcpserver.RoomLister
	)
	switch cfg.Backend {
	case conf.BackendMatrix:
		client, err := matrix.NewClient(matrix.Config{
			Homeserver:  cfg.Matrix.Homeserver,
			UserID:      cfg.Matrix.UserID,
			AccessToken: cfg.Matrix.AccessToken,
			Username:    cfg.Matrix.Username,
			Password:    cfg.Matrix.Password,
		}, logger)
		if err != nil {
			logger.Error("failed to create matrix client", "error", err)
			os.Exit(1)
		}
		if err := client.Login(ctx); err != nil {
			logger.Error("failed to log in", "error", err)
			os.Exit(1)
		}
		repos = data.NewMatrixRepositories(client, data.WebConfig{})
		rooms = func(ctx context.Context) ([]domain.RoomID, error) {
			joined, err := client.JoinedRooms(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]domain.RoomID, 0, len(joined))
			for _, r := range joined {
				out = append(out, domain.RoomID(r))
			}
			return out, nil
		}
	case conf.BackendFeishu:
		var err error
		client := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, logger)
		repos, err = data.NewFeishuRepositories(client, cfg.State.DBPath, cfg.Feishu.PowerLevels, data.WebConfig{})
		if err != nil {
			logger.Error("failed to open state", "error", err)
			os.Exit(1)
		}
		if lister, ok := repos.State.(*data.SQLiteStateRepo); ok {
			rooms = lister.Rooms
		}
	}
	defer repos.Close()

	featureCfg := cfg.ToFeatureConfig()
	accessor := usecase.NewStateAccessor(repos.State)
	srv := mcpserver.NewServer(mcpserver.Deps{
		Accessor:   accessor,
		Feature:    usecase.NewFeatureUsecase(accessor, repos.Room, featureCfg),
		Classifier: usecase.NewClassifier(featureCfg.Sentinel),
		Gate:       usecase.NewPermissionGate(repos.Room, cfg.Levels),
		Rooms:      rooms,
	}, "")

	logger.Info("xkcdbot MCP server ready", "backend", cfg.Backend)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("MCP server error", "error", err)
		os.Exit(1)
	}
}
