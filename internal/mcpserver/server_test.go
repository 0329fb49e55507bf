package mcpserver

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
	"github.com/thetabots/xkcd-bot/internal/biz/repo"
	"github.com/thetabots/xkcd-bot/internal/biz/usecase"
)

type mockStateRepo struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func (m *mockStateRepo) GetState(ctx context.Context, room domain.RoomID, key string, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[string(room)+"|"+key]
	if !ok {
		return repo.ErrNotFound
	}
	return json.Unmarshal(data, out)
}

func (m *mockStateRepo) SetState(ctx context.Context, room domain.RoomID, key string, doc any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.docs[string(room)+"|"+key] = data
	return nil
}

// nopRoomRepo satisfies repo.RoomRepo; the inspection tools never send
type nopRoomRepo struct{}

func (nopRoomRepo) SendText(ctx context.Context, room domain.RoomID, text string) error { return nil }
func (nopRoomRepo) SendImage(ctx context.Context, room domain.RoomID, body string, img domain.Image) error {
	return nil
}
func (nopRoomRepo) PowerLevel(ctx context.Context, room domain.RoomID, user domain.UserID) (int, error) {
	return 0, nil
}
func (nopRoomRepo) MarkRead(ctx context.Context, room domain.RoomID, eventID domain.EventID) error {
	return nil
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *usecase.StateAccessor) {
	t.Helper()
	accessor := usecase.NewStateAccessor(&mockStateRepo{docs: make(map[string][]byte)})
	s := NewServer(Deps{
		Accessor:   accessor,
		Feature:    usecase.NewFeatureUsecase(accessor, nopRoomRepo{}, usecase.FeatureConfig{}),
		Classifier: usecase.NewClassifier(""),
		Gate:       usecase.NewPermissionGate(nopRoomRepo{}, usecase.DefaultLevelConfig),
		Rooms: func(ctx context.Context) ([]domain.RoomID, error) {
			return []domain.RoomID{"!a", "!b"}, nil
		},
		Now: func() time.Time { return testNow },
	}, "test")
	return s, accessor
}

func TestHandleLolCount(t *testing.T) {
	s, accessor := newTestServer(t)
	ctx := context.Background()
	_ = accessor.SetLols(ctx, "!a", 42)

	_, out, err := s.handleLolCount(ctx, nil, RoomInput{RoomID: "!a"})
	if err != nil {
		t.Fatalf("handleLolCount failed: %v", err)
	}
	if out.Count != 42 {
		t.Errorf("Expected 42, got %d", out.Count)
	}

	if _, _, err := s.handleLolCount(ctx, nil, RoomInput{}); err == nil {
		t.Error("Expected error for missing room_id")
	}
}

func TestHandleFeature(t *testing.T) {
	s, accessor := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleFeature(ctx, nil, RoomInput{RoomID: "!a"})
	if err != nil {
		t.Fatalf("handleFeature failed: %v", err)
	}
	if out.Status != domain.FeatureUnconfigured.String() || out.LastFired != "" {
		t.Errorf("Unexpected output for unconfigured room %+v", out)
	}

	settings := domain.NewFeatureSettings(domain.Image{Ref: "mxc://x/frog"})
	settings.Text = "It is Wednesday"
	_ = accessor.SetFeatureSettings(ctx, "!a", settings)
	_ = accessor.SetFeatureState(ctx, "!a", testNow.Add(-time.Hour))

	_, out, err = s.handleFeature(ctx, nil, RoomInput{RoomID: "!a"})
	if err != nil {
		t.Fatalf("handleFeature failed: %v", err)
	}
	if out.Status != domain.FeatureFired.String() {
		t.Errorf("Expected %s, got %s", domain.FeatureFired, out.Status)
	}
	if !out.Enabled || out.Caption != "It is Wednesday" || out.Image != "mxc://x/frog" {
		t.Errorf("Unexpected settings in output %+v", out)
	}
	if out.LastFired != "2024-05-01 11:00:00 UTC" {
		t.Errorf("Unexpected last_fired '%s'", out.LastFired)
	}
}

func TestHandleClassify(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		text    string
		command string
		level   int
	}{
		{"xkcd ping", "ping", 0},
		{"lolcount set 7", "set_counter(7)", 50},
		{"mittwoch off", "feature_toggle(false)", 20},
		{"hello there", "", 0},
	}
	for _, tt := range tests {
		_, out, err := s.handleClassify(ctx, nil, ClassifyInput{Text: tt.text})
		if err != nil {
			t.Fatalf("handleClassify(%q) failed: %v", tt.text, err)
		}
		if out.Command != tt.command || out.RequiredLevel != tt.level || out.IsCommand != (tt.command != "") {
			t.Errorf("handleClassify(%q): got %+v", tt.text, out)
		}
	}
}

func TestServer_OverTransport(t *testing.T) {
	s, accessor := newTestServer(t)
	ctx := context.Background()
	_ = accessor.SetLols(ctx, "!b", 3)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.GetServer().Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect failed: %v", err)
	}
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect failed: %v", err)
	}
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "room_lolcount",
		Arguments: map[string]any{"room_id": "!b"},
	})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("Expected success, got error result %+v", res.Content)
	}

	raw, _ := json.Marshal(res.StructuredContent)
	var out LolCountOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("failed to decode structured content: %v", err)
	}
	if out.Count != 3 {
		t.Errorf("Expected 3, got %d", out.Count)
	}

	res, err = session.CallTool(ctx, &mcp.CallToolParams{Name: "list_rooms", Arguments: map[string]any{}})
	if err != nil || res.IsError {
		t.Fatalf("list_rooms failed: %v %+v", err, res)
	}
}
