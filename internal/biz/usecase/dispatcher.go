package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
	"github.com/thetabots/xkcd-bot/internal/biz/repo"
)

// Dispatcher authorizes and executes commands, turning every outcome into a room reply
type Dispatcher struct {
	gate        *PermissionGate
	accessor    *StateAccessor
	feature     *FeatureUsecase
	pipeline    *ImagePipeline
	roomRepo    repo.RoomRepo
	comics      repo.ComicRepo
	inspiration repo.InspirationRepo
	replies     ReplyConfig
	logger      *slog.Logger
}

// DispatcherDeps holds the Dispatcher's collaborators
type DispatcherDeps struct {
	Gate        *PermissionGate
	Accessor    *StateAccessor
	Feature     *FeatureUsecase
	Pipeline    *ImagePipeline
	RoomRepo    repo.RoomRepo
	Comics      repo.ComicRepo
	Inspiration repo.InspirationRepo
	Replies     ReplyConfig
	Logger      *slog.Logger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		gate:        deps.Gate,
		accessor:    deps.Accessor,
		feature:     deps.Feature,
		pipeline:    deps.Pipeline,
		roomRepo:    deps.RoomRepo,
		comics:      deps.Comics,
		inspiration: deps.Inspiration,
		replies:     deps.Replies.withDefaults(),
		logger:      logger.With("component", "dispatcher"),
	}
}

// Handle authorizes and executes cmd. It is the failure boundary for one command:
// errors are rendered into the room and logged, never returned.
func (d *Dispatcher) Handle(ctx context.Context, room domain.RoomID, sender domain.UserID, cmd domain.Command) {
	err := d.handle(ctx, room, sender, cmd)
	if err == nil {
		return
	}

	d.logger.Error("command failed", "room", room, "sender", sender, "command", cmd.String(), "error", err)
	d.ReportError(ctx, room, err)
}

// ReportError sends an error notice into the room. Send failures are only logged.
func (d *Dispatcher) ReportError(ctx context.Context, room domain.RoomID, err error) {
	if sendErr := d.roomRepo.SendText(ctx, room, d.replies.ErrorPrefix+err.Error()); sendErr != nil {
		d.logger.Error("failed to report error", "room", room, "error", sendErr)
	}
}

func (d *Dispatcher) handle(ctx context.Context, room domain.RoomID, sender domain.UserID, cmd domain.Command) error {
	decision, err := d.gate.Authorize(ctx, room, sender, cmd)
	if err != nil {
		return err
	}
	if decision == Denied {
		d.logger.Info("command denied", "room", room, "sender", sender, "command", cmd.String())
		return d.roomRepo.SendText(ctx, room, d.replies.Denied)
	}

	d.logger.Debug("executing command", "room", room, "sender", sender, "command", cmd.String())
	return d.Execute(ctx, room, cmd)
}

// Execute runs an already authorized command
func (d *Dispatcher) Execute(ctx context.Context, room domain.RoomID, cmd domain.Command) error {
	switch cmd.Kind {
	case domain.CommandPing:
		return d.roomRepo.SendText(ctx, room, d.replies.Ping)

	case domain.CommandComic:
		return d.sendComic(ctx, room, cmd.ComicNum)

	case domain.CommandInspiration:
		return d.sendInspiration(ctx, room)

	case domain.CommandGetCounter:
		count, err := d.accessor.GetLols(ctx, room)
		if err != nil {
			return err
		}
		return d.roomRepo.SendText(ctx, room, fmt.Sprintf(d.replies.CountFormat, count))

	case domain.CommandIncrementCounter:
		// Unserialized read-modify-write: concurrent increments may lose one.
		count, err := d.accessor.GetLols(ctx, room)
		if err != nil {
			return err
		}
		if err := d.accessor.SetLols(ctx, room, count+1); err != nil {
			return err
		}
		return d.roomRepo.SendText(ctx, room, fmt.Sprintf(d.replies.CountFormat, count+1))

	case domain.CommandSetCounter:
		if err := d.accessor.SetLols(ctx, room, cmd.Count); err != nil {
			return err
		}
		return d.roomRepo.SendText(ctx, room, fmt.Sprintf(d.replies.UpdateFormat, cmd.Count))

	case domain.CommandFeatureStatus:
		return d.feature.Explain(ctx, room)

	case domain.CommandFeatureToggle:
		return d.feature.Toggle(ctx, room, cmd.Enabled)

	case domain.CommandFeatureSetText:
		return d.feature.SetText(ctx, room, cmd.Text)

	case domain.CommandFeatureConfigure:
		if cmd.Image == nil {
			return fmt.Errorf("no image to configure")
		}
		return d.feature.Configure(ctx, room, *cmd.Image)

	case domain.CommandParseFailure:
		return d.roomRepo.SendText(ctx, room, d.replies.ParseFailed)

	default:
		return fmt.Errorf("unknown command %s", cmd.Kind)
	}
}

func (d *Dispatcher) sendComic(ctx context.Context, room domain.RoomID, num *int) error {
	comic, err := d.comics.GetComic(ctx, num)
	if err != nil {
		return err
	}
	img, err := d.pipeline.Process(ctx, comic.Img)
	if err != nil {
		return err
	}

	if err := d.roomRepo.SendText(ctx, room, fmt.Sprintf(d.replies.ComicTitleFormat, comic.Num, comic.Title)); err != nil {
		return err
	}
	if err := d.roomRepo.SendImage(ctx, room, comic.Title, *img); err != nil {
		return err
	}
	return d.roomRepo.SendText(ctx, room, fmt.Sprintf(d.replies.ComicAltFormat, comic.Alt))
}

func (d *Dispatcher) sendInspiration(ctx context.Context, room domain.RoomID) error {
	url, err := d.inspiration.Generate(ctx)
	if err != nil {
		return err
	}
	img, err := d.pipeline.Process(ctx, url)
	if err != nil {
		return err
	}
	return d.roomRepo.SendImage(ctx, room, d.replies.InspirationBody, *img)
}
