package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/framewell/framesink/internal/replay"
)

func TestClientPublishesSuccess(t *testing.T) {
	var gotTitle, gotPriority, gotTags, gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/replays" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotTitle = r.Header.Get("Title")
		gotPriority = r.Header.Get("Priority")
		gotTags = r.Header.Get("Tags")
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := &Config{
		Enabled:  true,
		Server:   srv.URL,
		Topic:    "replays",
		Priority: "default",
		Tags:     "film_frames",
		Token:    "tk_secret",
	}
	c := NewClient(cfg, zap.NewNop())

	result := &replay.BatchResult{Total: 3, Success: 3}
	if err := c.SendSuccess(context.Background(), result, "session-01", 2*time.Second); err != nil {
		t.Fatalf("SendSuccess failed: %v", err)
	}

	if !strings.Contains(gotTitle, "session-01") {
		t.Errorf("title should name the source, got %q", gotTitle)
	}
	if gotPriority != "default" {
		t.Errorf("expected configured priority, got %q", gotPriority)
	}
	if !strings.Contains(gotTags, "white_check_mark") {
		t.Errorf("success tags missing, got %q", gotTags)
	}
	if gotAuth != "Bearer tk_secret" {
		t.Errorf("unexpected Authorization header %q", gotAuth)
	}
	if !strings.Contains(gotBody, "Pushed: 3") {
		t.Errorf("body should summarize the batch, got %q", gotBody)
	}
}

func TestClientFailureGoesOutHighPriority(t *testing.T) {
	var gotPriority, gotTags string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPriority = r.Header.Get("Priority")
		gotTags = r.Header.Get("Tags")
	}))
	defer srv.Close()

	cfg := &Config{Enabled: true, Server: srv.URL, Topic: "replays", Priority: "low", Tags: "film_frames"}
	c := NewClient(cfg, zap.NewNop())

	result := &replay.BatchResult{Total: 2, Success: 1, Failed: 1, Errors: []string{"a.json: boom"}}
	if err := c.SendFailure(context.Background(), result, "session-01", time.Second, nil); err != nil {
		t.Fatalf("SendFailure failed: %v", err)
	}

	if gotPriority != "high" {
		t.Errorf("failures should publish at high priority, got %q", gotPriority)
	}
	if !strings.Contains(gotTags, ",x") {
		t.Errorf("failure tags missing, got %q", gotTags)
	}
}

func TestClientReportsRejectedPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := &Config{Enabled: true, Server: srv.URL, Topic: "replays", Priority: "default"}
	c := NewClient(cfg, zap.NewNop())

	err := c.SendSuccess(context.Background(), &replay.BatchResult{Total: 1, Success: 1}, "dir", time.Second)
	if err == nil {
		t.Fatal("expected an error for a non-2xx response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should carry the status, got %v", err)
	}
}

func TestNewReturnsNoopWhenDisabled(t *testing.T) {
	n := New(&Config{Enabled: false}, zap.NewNop())
	if _, ok := n.(NoopNotifier); !ok {
		t.Fatalf("expected NoopNotifier, got %T", n)
	}
	if err := n.SendFailure(context.Background(), &replay.BatchResult{}, "dir", 0, nil); err != nil {
		t.Errorf("noop notifier must never fail: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled needs nothing", Config{Enabled: false}, false},
		{"enabled without topic", Config{Enabled: true, Priority: "default"}, true},
		{"bad priority", Config{Enabled: true, Topic: "t", Priority: "loudest"}, true},
		{"valid", Config{Enabled: true, Topic: "t", Priority: "urgent"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected an error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
