package replay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/framewell/framesink/internal/client"
)

type fakePusher struct {
	mu     sync.Mutex
	pushed []string
	fail   map[string]error
}

func (f *fakePusher) Push(ctx context.Context, contentType string, body []byte) (*client.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, contentType)
	if err, ok := f.fail[string(body)]; ok {
		return nil, err
	}
	return &client.Ack{Status: "success", Timestamp: 1}, nil
}

func writeTaskFiles(t *testing.T, names map[string]string) (string, []Task) {
	t.Helper()
	dir, err := os.MkdirTemp("", "replay-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	var tasks []Task
	for name, content := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		tasks = append(tasks, Task{Path: path})
	}
	return dir, tasks
}

func TestTaskContentType(t *testing.T) {
	cases := map[string]string{
		"frame.json": "application/json",
		"frame.PNG":  "image/png",
		"frame.jpeg": "image/jpeg",
		"frame.webp": "image/webp",
		"frame.bin":  "application/octet-stream",
	}
	for name, want := range cases {
		if got := (Task{Path: name}).ContentType(); got != want {
			t.Errorf("%s: expected %q, got %q", name, want, got)
		}
	}
}

func TestExecutePushesAllTasks(t *testing.T) {
	_, tasks := writeTaskFiles(t, map[string]string{
		"a.json": `{"a":1}`,
		"b.png":  "png-bytes",
		"c.json": `{"c":3}`,
	})

	pusher := &fakePusher{}
	mgr := NewManager(pusher, 2, 0, zap.NewNop())

	result, err := mgr.Execute(context.Background(), tasks)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Total != 3 || result.Success != 3 || result.Failed != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(pusher.pushed) != 3 {
		t.Errorf("expected 3 pushes, got %d", len(pusher.pushed))
	}
}

func TestExecuteCountsRejectionsAndFailures(t *testing.T) {
	_, tasks := writeTaskFiles(t, map[string]string{
		"good.json":   `{"ok":true}`,
		"reject.json": `rejected-body`,
		"fail.json":   `failing-body`,
	})

	pusher := &fakePusher{fail: map[string]error{
		"rejected-body": fmt.Errorf("%w: 400", client.ErrRejected),
		"failing-body":  fmt.Errorf("%w: refused", client.ErrServerNotRunning),
	}}
	mgr := NewManager(pusher, 1, 0, zap.NewNop())

	result, err := mgr.Execute(context.Background(), tasks)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Success != 1 || result.Rejected != 1 || result.Failed != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(result.Errors) != 2 {
		t.Errorf("expected 2 recorded errors, got %v", result.Errors)
	}
}

func TestExecuteMissingFile(t *testing.T) {
	mgr := NewManager(&fakePusher{}, 1, 0, zap.NewNop())

	result, err := mgr.Execute(context.Background(), []Task{{Path: "/nonexistent/frame.json"}})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Failed != 1 {
		t.Errorf("expected 1 failure, got %+v", result)
	}
}

func TestExecuteEmptyBatch(t *testing.T) {
	mgr := NewManager(&fakePusher{}, 2, 0, zap.NewNop())

	result, err := mgr.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Total != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
}
