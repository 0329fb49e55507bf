package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/thetabots/xkcd-bot/internal/biz/usecase"
	"github.com/thetabots/xkcd-bot/internal/conf"
	"github.com/thetabots/xkcd-bot/internal/data"
	"github.com/thetabots/xkcd-bot/internal/infra/feishu"
	"github.com/thetabots/xkcd-bot/internal/infra/matrix"
	"github.com/thetabots/xkcd-bot/internal/server"
	"github.com/thetabots/xkcd-bot/internal/service"
)

// botServer is a chat backend's intake loop
type botServer interface {
	Start(ctx context.Context) error
	Stop()
}

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	messagesPath := pflag.String("messages", "", "reply texts YAML (overrides MESSAGES_CONFIG_PATH)")
	backend := pflag.String("backend", "", "chat backend: matrix or feishu (overrides CHAT_BACKEND)")
	pflag.Parse()

	// Load .env file
	if err := godotenv.Load(*envFile); err != nil {
		slog.Info("no .env file found, using environment variables", "path", *envFile)
	}
	if *messagesPath != "" {
		os.Setenv("MESSAGES_CONFIG_PATH", *messagesPath)
	}
	if *backend != "" {
		os.Setenv("CHAT_BACKEND", *backend)
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	webCfg := data.WebConfig{
		XkcdURL:       cfg.Web.XkcdURL,
		InspirobotURL: cfg.Web.InspirobotURL,
		Timeout:       cfg.Web.Timeout,
	}

	// Initialize clients and repository layer
	var (
		repos        *data.Repositories
		matrixClient *matrix.Client
		feishuClient *feishu.Client
	)
	switch cfg.Backend {
	case conf.BackendMatrix:
		var err error
		matrixClient, err = matrix.NewClient(matrix.Config{
			Homeserver:  cfg.Matrix.Homeserver,
			UserID:      cfg.Matrix.UserID,
			AccessToken: cfg.Matrix.AccessToken,
			Username:    cfg.Matrix.Username,
			Password:    cfg.Matrix.Password,
			AutoJoin:    cfg.Matrix.AutoJoin,
		}, logger)
		if err != nil {
			fatal(logger, "failed to create matrix client", err)
		}
		if err := matrixClient.Login(ctx); err != nil {
			fatal(logger, "failed to log in", err)
		}
		repos = data.NewMatrixRepositories(matrixClient, webCfg)
	case conf.BackendFeishu:
		var err error
		feishuClient = feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, logger)
		repos, err = data.NewFeishuRepositories(feishuClient, cfg.State.DBPath, cfg.Feishu.PowerLevels, webCfg)
		if err != nil {
			fatal(logger, "failed to create repositories", err)
		}
		logger.Info("state database opened", "path", cfg.State.DBPath)
	}

	// Initialize usecase layer
	featureCfg := cfg.ToFeatureConfig()
	classifier := usecase.NewClassifier(featureCfg.Sentinel)
	accessor := usecase.NewStateAccessor(repos.State)
	pipeline := usecase.NewImagePipeline(repos.Fetcher, repos.Media)
	featureUC := usecase.NewFeatureUsecase(accessor, repos.Room, featureCfg)
	dispatcher := usecase.NewDispatcher(usecase.DispatcherDeps{
		Gate:        usecase.NewPermissionGate(repos.Room, cfg.Levels),
		Accessor:    accessor,
		Feature:     featureUC,
		Pipeline:    pipeline,
		RoomRepo:    repos.Room,
		Comics:      repos.Comics,
		Inspiration: repos.Inspiration,
		Replies:     cfg.ToReplyConfig(),
		Logger:      logger,
	})

	// Initialize service layer
	events := service.NewEventService(classifier, dispatcher, repos.Room, cfg.Workers, logger)
	scheduler := service.NewDailyScheduler(featureUC, cfg.Feature.Interval, logger)

	// Initialize server
	var srv botServer
	if matrixClient != nil {
		srv = server.NewMatrixServer(matrixClient, events, scheduler, logger)
	} else {
		srv = server.NewFeishuServer(feishuClient, events, scheduler, classifier, pipeline, logger)
	}

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("starting xkcd-bot",
		"backend", cfg.Backend,
		"workers", cfg.Workers,
		"timezone", featureCfg.Location.String(),
		"sentinel", featureCfg.Sentinel,
	)
	if err := run(ctx, srv, sigCh, repos.Close, logger); err != nil {
		fatal(logger, "server error", err)
	}
}

// run starts srv and returns once it has stopped and closeFn has run.
// A signal on sigCh stops the server; run waits for that shutdown to finish
// so queued events drain before the process exits.
func run(ctx context.Context, srv botServer, sigCh <-chan os.Signal, closeFn func() error, logger *slog.Logger) error {
	var once sync.Once
	shutdown := func() {
		once.Do(func() {
			logger.Info("shutting down")
			srv.Stop()
			if err := closeFn(); err != nil {
				logger.Warn("failed to close repositories", "error", err)
			}
		})
	}

	go func() {
		select {
		case <-sigCh:
			shutdown()
		case <-ctx.Done():
		}
	}()

	err := srv.Start(ctx)
	// Blocks until a signal-triggered shutdown has completed
	shutdown()
	return err
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
