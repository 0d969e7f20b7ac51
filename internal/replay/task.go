package replay

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Task is one file to push to the server.
type Task struct {
	Path string
}

func (t Task) String() string {
	return filepath.Base(t.Path)
}

// ContentType maps the file extension to the Content-Type sent with the
// push. Unknown extensions go out as opaque binary, which the server stores
// under the default image field without a data-URI prefix.
func (t Task) ContentType() string {
	switch strings.ToLower(filepath.Ext(t.Path)) {
	case ".json":
		return "application/json"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

// TaskResult is the outcome of one push attempt.
type TaskResult struct {
	Task     Task
	Success  bool
	Rejected bool
	Error    error
}

// BatchResult aggregates a replay run.
type BatchResult struct {
	Total    int
	Success  int
	Rejected int
	Failed   int
	Errors   []string
}

func (r *BatchResult) record(tr TaskResult) {
	switch {
	case tr.Success:
		r.Success++
	case tr.Rejected:
		r.Rejected++
		if tr.Error != nil {
			r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", tr.Task, tr.Error))
		}
	default:
		r.Failed++
		if tr.Error != nil {
			r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", tr.Task, tr.Error))
		}
	}
}
