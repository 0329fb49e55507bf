package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
	"github.com/thetabots/xkcd-bot/internal/biz/repo"
)

// Mock implementations

type mockStateRepo struct {
	mu      sync.Mutex
	docs    map[string][]byte
	getErr  error
	setErr  error
	getHits int
}

func newMockStateRepo() *mockStateRepo {
	return &mockStateRepo{docs: make(map[string][]byte)}
}

func stateKey(room domain.RoomID, key string) string {
	return string(room) + "|" + key
}

func (m *mockStateRepo) GetState(ctx context.Context, room domain.RoomID, key string, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getHits++
	if m.getErr != nil {
		return m.getErr
	}
	data, ok := m.docs[stateKey(room, key)]
	if !ok {
		return fmt.Errorf("room %s: %w", room, repo.ErrNotFound)
	}
	return json.Unmarshal(data, out)
}

func (m *mockStateRepo) SetState(ctx context.Context, room domain.RoomID, key string, doc any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.docs[stateKey(room, key)] = data
	return nil
}

func (m *mockStateRepo) has(room domain.RoomID, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[stateKey(room, key)]
	return ok
}

type sentMessage struct {
	Room  domain.RoomID
	Text  string
	Image *domain.Image
}

type mockRoomRepo struct {
	mu         sync.Mutex
	sent       []sentMessage
	levels     map[domain.UserID]int
	levelErr   error
	sendErr    error
	levelCalls int
	receipts   []domain.EventID
}

func newMockRoomRepo() *mockRoomRepo {
	return &mockRoomRepo{levels: make(map[domain.UserID]int)}
}

func (m *mockRoomRepo) SendText(ctx context.Context, room domain.RoomID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMessage{Room: room, Text: text})
	return nil
}

func (m *mockRoomRepo) SendImage(ctx context.Context, room domain.RoomID, body string, img domain.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMessage{Room: room, Text: body, Image: &img})
	return nil
}

func (m *mockRoomRepo) PowerLevel(ctx context.Context, room domain.RoomID, user domain.UserID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levelCalls++
	if m.levelErr != nil {
		return 0, m.levelErr
	}
	return m.levels[user], nil
}

func (m *mockRoomRepo) MarkRead(ctx context.Context, room domain.RoomID, eventID domain.EventID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts = append(m.receipts, eventID)
	return nil
}

func (m *mockRoomRepo) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

func (m *mockRoomRepo) texts() []string {
	var texts []string
	for _, msg := range m.messages() {
		if msg.Image == nil {
			texts = append(texts, msg.Text)
		}
	}
	return texts
}

func (m *mockRoomRepo) lastText() string {
	texts := m.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

type mockFetcher struct {
	bodies map[string][]byte
	err    error
}

func (m *mockFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.bodies[url]
	if !ok {
		return nil, fmt.Errorf("unexpected status 404 for %s", url)
	}
	return data, nil
}

type mockMediaRepo struct {
	uploads []string
	err     error
}

func (m *mockMediaRepo) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.uploads = append(m.uploads, mimeType)
	return fmt.Sprintf("mxc://example.org/upload%d", len(m.uploads)), nil
}

type mockComicRepo struct {
	comics map[int]*domain.Comic
	latest int
	err    error
}

func (m *mockComicRepo) GetComic(ctx context.Context, num *int) (*domain.Comic, error) {
	if m.err != nil {
		return nil, m.err
	}
	n := m.latest
	if num != nil {
		n = *num
	}
	comic, ok := m.comics[n]
	if !ok {
		return nil, fmt.Errorf("comic %d not found", n)
	}
	return comic, nil
}

type mockInspirationRepo struct {
	url string
	err error
}

func (m *mockInspirationRepo) Generate(ctx context.Context) (string, error) {
	return m.url, m.err
}
