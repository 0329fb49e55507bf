package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
	"github.com/thetabots/xkcd-bot/internal/biz/repo"
	"github.com/thetabots/xkcd-bot/internal/biz/usecase"
)

// Mock implementations

type mockStateRepo struct {
	mu        sync.Mutex
	docs      map[string][]byte
	failRooms map[domain.RoomID]error
	// failWrites fails only SetState for a room
	failWrites map[domain.RoomID]error
}

func newMockStateRepo() *mockStateRepo {
	return &mockStateRepo{
		docs:       make(map[string][]byte),
		failRooms:  make(map[domain.RoomID]error),
		failWrites: make(map[domain.RoomID]error),
	}
}

func (m *mockStateRepo) GetState(ctx context.Context, room domain.RoomID, key string, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failRooms[room]; err != nil {
		return err
	}
	data, ok := m.docs[string(room)+"|"+key]
	if !ok {
		return repo.ErrNotFound
	}
	return json.Unmarshal(data, out)
}

func (m *mockStateRepo) SetState(ctx context.Context, room domain.RoomID, key string, doc any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failRooms[room]; err != nil {
		return err
	}
	if err := m.failWrites[room]; err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.docs[string(room)+"|"+key] = data
	return nil
}

type sentMessage struct {
	Room  domain.RoomID
	Text  string
	Image bool
}

type mockRoomRepo struct {
	mu         sync.Mutex
	sent       []sentMessage
	receipts   []domain.EventID
	receiptErr error
	levels     map[domain.UserID]int
}

func newMockRoomRepo() *mockRoomRepo {
	return &mockRoomRepo{levels: make(map[domain.UserID]int)}
}

func (m *mockRoomRepo) SendText(ctx context.Context, room domain.RoomID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{Room: room, Text: text})
	return nil
}

func (m *mockRoomRepo) SendImage(ctx context.Context, room domain.RoomID, body string, img domain.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{Room: room, Text: body, Image: true})
	return nil
}

func (m *mockRoomRepo) PowerLevel(ctx context.Context, room domain.RoomID, user domain.UserID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels[user], nil
}

func (m *mockRoomRepo) MarkRead(ctx context.Context, room domain.RoomID, eventID domain.EventID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts = append(m.receipts, eventID)
	return m.receiptErr
}

func (m *mockRoomRepo) messagesIn(room domain.RoomID) []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMessage
	for _, msg := range m.sent {
		if msg.Room == room {
			out = append(out, msg)
		}
	}
	return out
}

func (m *mockRoomRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type panicComicRepo struct{}

func (panicComicRepo) GetComic(ctx context.Context, num *int) (*domain.Comic, error) {
	panic("comic source exploded")
}

type nopInspirationRepo struct{}

func (nopInspirationRepo) Generate(ctx context.Context) (string, error) {
	return "", errors.New("not available")
}

type nopFetcher struct{}

func (nopFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	return nil, fmt.Errorf("no network in tests: %s", url)
}

type nopMediaRepo struct{}

func (nopMediaRepo) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	return "", errors.New("no uploads in tests")
}

type fixture struct {
	stateRepo  *mockStateRepo
	roomRepo   *mockRoomRepo
	accessor   *usecase.StateAccessor
	featureUC  *usecase.FeatureUsecase
	classifier *usecase.Classifier
	dispatcher *usecase.Dispatcher
}

func newFixture() *fixture {
	f := &fixture{
		stateRepo:  newMockStateRepo(),
		roomRepo:   newMockRoomRepo(),
		classifier: usecase.NewClassifier(""),
	}
	f.accessor = usecase.NewStateAccessor(f.stateRepo)
	f.featureUC = usecase.NewFeatureUsecase(f.accessor, f.roomRepo, usecase.FeatureConfig{ConfigLevel: 20})
	f.dispatcher = usecase.NewDispatcher(usecase.DispatcherDeps{
		Gate:        usecase.NewPermissionGate(f.roomRepo, usecase.DefaultLevelConfig),
		Accessor:    f.accessor,
		Feature:     f.featureUC,
		Pipeline:    usecase.NewImagePipeline(nopFetcher{}, nopMediaRepo{}),
		RoomRepo:    f.roomRepo,
		Comics:      panicComicRepo{},
		Inspiration: nopInspirationRepo{},
	})
	return f
}

var testFrog = domain.Image{Ref: "mxc://example.org/frog", Info: domain.ImageInfo{MimeType: "image/png", Width: 1, Height: 1, Size: 10}}
