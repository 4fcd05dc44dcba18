package rpc

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gavelrs/gavel/internal/handlers"
	"github.com/gavelrs/gavel/internal/state"
	"github.com/gavelrs/gavel/internal/wire"
)

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "gaveld.sock")
	h := handlers.New(state.New(), t.TempDir(), nil, 1)
	srv := NewServer(sockPath, h, nil)

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	// Give the listener a moment to bind before the first dial.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if srv.listener != nil {
			break
		}
		time.Sleep(time.Millisecond)
	}

	t.Cleanup(func() {
		srv.Stop()
		<-done
	})
	return srv, sockPath
}

func TestServerSubmitAndStatusRoundTrip(t *testing.T) {
	_, sockPath := startTestServer(t)
	client := NewClient(sockPath)

	submitReply, err := client.Call(wire.Request{Kind: wire.KindSubmitCommand, Command: "true", GPURequire: 0})
	if err != nil {
		t.Fatalf("submit call: %v", err)
	}
	if submitReply.Kind != wire.ReplyAck {
		t.Fatalf("expected Ack for submit, got %+v", submitReply)
	}

	listReply, err := client.Call(wire.Request{Kind: wire.KindTaskList, Filter: wire.TaskFilter{Kind: wire.FilterAll}})
	if err != nil {
		t.Fatalf("list call: %v", err)
	}
	if listReply.Kind != wire.ReplyTaskStatus || len(listReply.Tasks) != 1 {
		t.Fatalf("expected 1 task in status reply, got %+v", listReply)
	}
}

func TestServerGracefulShutdown(t *testing.T) {
	srv, sockPath := startTestServer(t)
	client := NewClient(sockPath)

	reply, err := client.Call(wire.Request{Kind: wire.KindDaemonStop})
	if err != nil {
		t.Fatalf("daemon stop call: %v", err)
	}
	if reply.Kind != wire.ReplyAck {
		t.Fatalf("expected Ack for daemon stop, got %+v", reply)
	}

	select {
	case <-srv.handlers.Shutdown:
	case <-time.After(time.Second):
		t.Fatal("expected shutdown channel to be closed")
	}
}
