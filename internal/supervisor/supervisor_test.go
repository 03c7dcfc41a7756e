package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

type fakeServer struct {
	started  chan struct{}
	stop     chan struct{}
	failWith error
	shutdown atomic.Int32
}

func newFakeServer() *fakeServer {
	return &fakeServer{started: make(chan struct{}, 1), stop: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	select {
	case f.started <- struct{}{}:
	default:
	}
	if f.failWith != nil {
		return f.failWith
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	if f.shutdown.Add(1) == 1 {
		close(f.stop)
	}
	return nil
}

func TestHTTPServiceShutdown(t *testing.T) {
	srv := newFakeServer()
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-srv.started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
	if srv.shutdown.Load() != 1 {
		t.Errorf("expected one shutdown, got %d", srv.shutdown.Load())
	}
}

func TestHTTPServiceListenError(t *testing.T) {
	srv := newFakeServer()
	srv.failWith = errors.New("address in use")

	err := NewHTTPService(srv, 0).Serve(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestTreeRunsServices(t *testing.T) {
	srv := newFakeServer()
	tree := NewTree(nil, TreeConfig{ShutdownTimeout: time.Second})
	tree.AddAPIService(NewHTTPService(srv, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	select {
	case <-srv.started:
	case <-time.After(2 * time.Second):
		t.Fatal("service not started")
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}
	if srv.shutdown.Load() == 0 {
		t.Error("expected server shutdown")
	}
}
