package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"
)

// slowServer returns from Start as soon as Stop begins, but Stop itself
// takes a while, like a server draining its event queue.
type slowServer struct {
	mu       sync.Mutex
	stopping chan struct{}
	drained  bool
	startErr error
}

func newSlowServer() *slowServer {
	return &slowServer{stopping: make(chan struct{})}
}

func (s *slowServer) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	<-s.stopping
	return nil
}

func (s *slowServer) Stop() {
	close(s.stopping)
	time.Sleep(50 * time.Millisecond)
	s.mu.Lock()
	s.drained = true
	s.mu.Unlock()
}

func (s *slowServer) isDrained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drained
}

func TestRun_WaitsForShutdown(t *testing.T) {
	srv := newSlowServer()
	sigCh := make(chan os.Signal, 1)
	var closed int
	var mu sync.Mutex
	closeFn := func() error {
		mu.Lock()
		defer mu.Unlock()
		closed++
		return nil
	}

	sigCh <- syscall.SIGTERM
	if err := run(context.Background(), srv, sigCh, closeFn, slog.Default()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if !srv.isDrained() {
		t.Error("Expected run to return after the server drained")
	}
	mu.Lock()
	defer mu.Unlock()
	if closed != 1 {
		t.Errorf("Expected repositories closed once, got %d", closed)
	}
}

func TestRun_StartError(t *testing.T) {
	srv := newSlowServer()
	srv.startErr = errors.New("login failed")
	closed := false

	err := run(context.Background(), srv, make(chan os.Signal), func() error {
		closed = true
		return nil
	}, slog.Default())
	if err == nil || err.Error() != "login failed" {
		t.Errorf("Expected start error, got %v", err)
	}
	if !closed {
		t.Error("Expected repositories closed after a failed start")
	}
}
