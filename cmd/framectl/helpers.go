package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/framewell/framesink/internal/imaging"
)

// savePNG writes a frame to path via a temp file and rename, so a watcher of
// the output directory never sees a half-written image.
func savePNG(frame *imaging.Frame, path string) error {
	data, err := imaging.EncodePNG(frame)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
