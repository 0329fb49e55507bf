package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Config contains Matrix connection settings.
// Either AccessToken with UserID, or Username with Password, must be set.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	Username    string
	Password    string
	AutoJoin    bool
}

// Message represents a received m.room.message event
type Message struct {
	RoomID   id.RoomID
	Sender   id.UserID
	EventID  id.EventID
	MsgType  event.MessageType
	Body     string
	FileName string
	URL      id.ContentURIString
	Info     *event.FileInfo
}

// MessageHandler is the callback for received messages
type MessageHandler func(ctx context.Context, msg *Message)

// RoomHandler is the callback for room membership changes of the bot
type RoomHandler func(roomID id.RoomID)

// Client is the Matrix client-server API client
type Client struct {
	cfg    Config
	cli    *mautrix.Client
	logger *slog.Logger

	onMessage  MessageHandler
	onJoined   RoomHandler
	onLeft     RoomHandler
	cancelSync context.CancelFunc
}

// NewClient creates a new Matrix client. It does not connect.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cli, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create matrix client: %w", err)
	}
	return &Client{
		cfg:    cfg,
		cli:    cli,
		logger: logger.With("component", "matrix"),
	}, nil
}

// API returns the underlying mautrix client
func (c *Client) API() *mautrix.Client {
	return c.cli
}

// UserID returns the bot's own user ID
func (c *Client) UserID() id.UserID {
	return c.cli.UserID
}

// JoinedRooms lists the rooms the bot is currently in
func (c *Client) JoinedRooms(ctx context.Context) ([]id.RoomID, error) {
	resp, err := c.cli.JoinedRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list joined rooms: %w", err)
	}
	return resp.JoinedRooms, nil
}

// OnMessage sets the message handler
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// OnRoomJoined sets the handler called for every joined room on each sync
func (c *Client) OnRoomJoined(handler RoomHandler) {
	c.onJoined = handler
}

// OnRoomLeft sets the handler called when the bot leaves or is removed from a room
func (c *Client) OnRoomLeft(handler RoomHandler) {
	c.onLeft = handler
}

// Login logs in with username and password unless an access token is configured
func (c *Client) Login(ctx context.Context) error {
	if c.cfg.AccessToken != "" {
		return nil
	}
	resp, err := c.cli.Login(ctx, &mautrix.ReqLogin{
		Type: mautrix.AuthTypePassword,
		Identifier: mautrix.UserIdentifier{
			Type: mautrix.IdentifierTypeUser,
			User: c.cfg.Username,
		},
		Password:                 c.cfg.Password,
		InitialDeviceDisplayName: "xkcd-bot",
		StoreCredentials:         true,
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	c.logger.Info("logged in", "user_id", resp.UserID, "device_id", resp.DeviceID)
	return nil
}

// Start runs the sync loop until Stop is called (blocking).
// Events from the initial sync are not dispatched; joined rooms are still reported.
func (c *Client) Start(ctx context.Context) error {
	ctx, c.cancelSync = context.WithCancel(ctx)

	syncer, ok := c.cli.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return errors.New("unexpected syncer type")
	}
	syncer.OnSync(c.handleSync)
	syncer.OnSync(c.cli.DontProcessOldEvents)
	syncer.OnEventType(event.EventMessage, c.handleMessage)
	syncer.OnEventType(event.StateMember, c.handleMember)

	c.logger.Info("starting sync", "user_id", c.cli.UserID, "homeserver", c.cfg.Homeserver)

	for {
		err := c.cli.SyncWithContext(ctx)
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Error("sync failed, retrying", "error", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(5 * time.Second):
		}
	}
}

// Stop stops the sync loop
func (c *Client) Stop() {
	if c.cancelSync != nil {
		c.cancelSync()
	}
	c.cli.StopSync()
}

// handleSync reports joined and left rooms. It never blocks event processing.
func (c *Client) handleSync(ctx context.Context, resp *mautrix.RespSync, since string) bool {
	if c.onJoined != nil {
		for roomID := range resp.Rooms.Join {
			c.onJoined(roomID)
		}
	}
	if c.onLeft != nil {
		for roomID := range resp.Rooms.Leave {
			c.onLeft(roomID)
		}
	}
	return true
}

func (c *Client) handleMessage(ctx context.Context, evt *event.Event) {
	// Ignore our own messages
	if evt.Sender == c.cli.UserID {
		return
	}
	content := evt.Content.AsMessage()
	if content == nil || c.onMessage == nil {
		return
	}

	c.onMessage(ctx, &Message{
		RoomID:   evt.RoomID,
		Sender:   evt.Sender,
		EventID:  evt.ID,
		MsgType:  content.MsgType,
		Body:     content.Body,
		FileName: content.FileName,
		URL:      content.URL,
		Info:     content.Info,
	})
}

func (c *Client) handleMember(ctx context.Context, evt *event.Event) {
	if evt.GetStateKey() != c.cli.UserID.String() {
		return
	}
	member := evt.Content.AsMember()
	if member == nil || member.Membership != event.MembershipInvite || !c.cfg.AutoJoin {
		return
	}

	if _, err := c.cli.JoinRoomByID(ctx, evt.RoomID); err != nil {
		c.logger.Error("failed to join room", "room", evt.RoomID, "inviter", evt.Sender, "error", err)
		return
	}
	c.logger.Info("joined room", "room", evt.RoomID, "inviter", evt.Sender)
}
