package server

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestServiceStartServesAndShutsDown(t *testing.T) {
	svc := NewService("127.0.0.1:0", okHandler(), zap.NewNop())

	if svc.Running() {
		t.Error("service should not report running before Start")
	}
	if err := svc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !svc.Running() {
		t.Error("service should report running after Start")
	}
	if svc.Addr() == "" {
		t.Fatal("expected a bound address")
	}

	resp, err := http.Get("http://" + svc.Addr() + "/")
	if err != nil {
		t.Fatalf("request to running service failed: %v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if svc.Running() {
		t.Error("service should not report running after Shutdown")
	}
}

func TestServiceBindFailure(t *testing.T) {
	// Occupy a port, then try to bind it again.
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("setup listener: %v", err)
	}
	defer occupied.Close()

	svc := NewService(occupied.Addr().String(), okHandler(), zap.NewNop())
	if err := svc.Start(); err == nil {
		t.Fatal("expected bind error for an occupied port")
	}
	if svc.Running() {
		t.Error("service must not report running after a bind failure")
	}
	if svc.Addr() != "" {
		t.Errorf("no address expected after bind failure, got %q", svc.Addr())
	}
}
