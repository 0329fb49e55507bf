package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
	"github.com/thetabots/xkcd-bot/internal/biz/usecase"
)

// RoomLister lists the rooms known to the state store
type RoomLister func(ctx context.Context) ([]domain.RoomID, error)

// Deps holds what the inspection tools read from
type Deps struct {
	Accessor   *usecase.StateAccessor
	Feature    *usecase.FeatureUsecase
	Classifier *usecase.Classifier
	Gate       *usecase.PermissionGate
	Rooms      RoomLister // optional
	Now        func() time.Time
}

// Server provides read-only MCP tools for inspecting the bot's room state
type Server struct {
	server *mcp.Server
	deps   Deps
}

// NewServer creates a new MCP server and registers its tools
func NewServer(deps Deps, version string) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if version == "" {
		version = "v1.0.0"
	}

	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "xkcdbot-tools",
			Version: version,
		}, nil),
		deps: deps,
	}
	s.registerTools()
	return s
}

// registerTools registers all inspection tools
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "room_lolcount",
		Description: "Get the laughter counter of a room.",
	}, s.handleLolCount)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "room_feature",
		Description: "Get the daily image settings of a room and whether it already fired today.",
	}, s.handleFeature)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "classify_message",
		Description: "Show which command the bot would run for a message and the power level it needs.",
	}, s.handleClassify)

	if s.deps.Rooms != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_rooms",
			Description: "List rooms that have stored bot state.",
		}, s.handleListRooms)
	}
}

// RoomInput selects a room
type RoomInput struct {
	RoomID string `json:"room_id" jsonschema:"The room (Matrix room ID or Feishu chat ID)"`
}

// LolCountOutput is the output for room_lolcount
type LolCountOutput struct {
	Count uint64 `json:"count"`
}

func (s *Server) handleLolCount(ctx context.Context, req *mcp.CallToolRequest, input RoomInput) (*mcp.CallToolResult, LolCountOutput, error) {
	if input.RoomID == "" {
		return nil, LolCountOutput{}, fmt.Errorf("room_id is required")
	}
	count, err := s.deps.Accessor.GetLols(ctx, domain.RoomID(input.RoomID))
	if err != nil {
		return nil, LolCountOutput{}, err
	}
	return nil, LolCountOutput{Count: count}, nil
}

// FeatureOutput is the output for room_feature
type FeatureOutput struct {
	Status    string `json:"status"`
	Enabled   bool   `json:"enabled"`
	Caption   string `json:"caption,omitempty"`
	Image     string `json:"image,omitempty"`
	LastFired string `json:"last_fired,omitempty"`
}

func (s *Server) handleFeature(ctx context.Context, req *mcp.CallToolRequest, input RoomInput) (*mcp.CallToolResult, FeatureOutput, error) {
	if input.RoomID == "" {
		return nil, FeatureOutput{}, fmt.Errorf("room_id is required")
	}
	room := domain.RoomID(input.RoomID)

	status, err := s.deps.Feature.Status(ctx, room, s.deps.Now())
	if err != nil {
		return nil, FeatureOutput{}, err
	}
	out := FeatureOutput{Status: status.String()}

	settings, err := s.deps.Accessor.GetFeatureSettings(ctx, room)
	if err != nil {
		return nil, FeatureOutput{}, err
	}
	if settings != nil {
		out.Enabled = settings.Enabled
		out.Caption = settings.Text
		out.Image = settings.Link
	}

	last, found, err := s.deps.Accessor.GetFeatureState(ctx, room)
	if err != nil {
		return nil, FeatureOutput{}, err
	}
	if found {
		out.LastFired = s.deps.Feature.FormatTimestamp(last)
	}
	return nil, out, nil
}

// ClassifyInput is the input for classify_message
type ClassifyInput struct {
	Text string `json:"text" jsonschema:"The message body to classify"`
}

// ClassifyOutput is the output for classify_message
type ClassifyOutput struct {
	IsCommand     bool   `json:"is_command"`
	Command       string `json:"command,omitempty"`
	RequiredLevel int    `json:"required_level"`
}

func (s *Server) handleClassify(ctx context.Context, req *mcp.CallToolRequest, input ClassifyInput) (*mcp.CallToolResult, ClassifyOutput, error) {
	cmd, ok := s.deps.Classifier.Classify(input.Text)
	if !ok {
		return nil, ClassifyOutput{}, nil
	}
	return nil, ClassifyOutput{
		IsCommand:     true,
		Command:       cmd.String(),
		RequiredLevel: s.deps.Gate.RequiredLevel(cmd.Kind),
	}, nil
}

// ListRoomsInput is empty - no input needed
type ListRoomsInput struct{}

// ListRoomsOutput contains the known rooms
type ListRoomsOutput struct {
	Rooms []string `json:"rooms"`
}

func (s *Server) handleListRooms(ctx context.Context, req *mcp.CallToolRequest, input ListRoomsInput) (*mcp.CallToolResult, ListRoomsOutput, error) {
	rooms, err := s.deps.Rooms(ctx)
	if err != nil {
		return nil, ListRoomsOutput{}, err
	}
	out := ListRoomsOutput{Rooms: make([]string, 0, len(rooms))}
	for _, r := range rooms {
		out.Rooms = append(out.Rooms, string(r))
	}
	return nil, out, nil
}

// Run starts the MCP server with stdio transport
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// GetServer returns the underlying MCP server
func (s *Server) GetServer() *mcp.Server {
	return s.server
}
