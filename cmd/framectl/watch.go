package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/framewell/framesink/internal/broadcast"
	"github.com/framewell/framesink/internal/imaging"
)

func watchCmd() *cobra.Command {
	var saveDir string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream broadcast messages from the server",
		Long: `Connect to /events and print each broadcast message as it arrives.
With --save-dir, decoded images are also written there as PNG files.
The connection is not re-established on failure; rerun to reconnect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stream, err := newClient().Events(cmd.Context())
			if err != nil {
				return err
			}
			defer stream.Close()

			fmt.Println("connected, waiting for payloads...")

			for {
				raw, err := stream.Next()
				if err != nil {
					if errors.Is(err, io.EOF) || cmd.Context().Err() != nil {
						return nil
					}
					return fmt.Errorf("stream ended: %w", err)
				}

				var msg broadcast.Message
				if err := json.Unmarshal(raw, &msg); err != nil {
					logger.Warn("skipping unparseable frame", zap.Error(err))
					continue
				}

				printMessage(&msg)
				if saveDir != "" {
					saveImages(&msg, saveDir)
				}
			}
		},
	}

	cmd.Flags().StringVarP(&saveDir, "save-dir", "d", "", "directory to save decoded images into")
	return cmd
}

func printMessage(msg *broadcast.Message) {
	fmt.Printf("[%s] type=%s images=%d", formatTimestamp(msg.Timestamp), msg.Type, len(msg.Images))
	if msg.Prompt != "" {
		fmt.Printf(" prompt=%q", msg.Prompt)
	}
	if msg.Seed != nil {
		fmt.Printf(" seed=%v", msg.Seed)
	}
	fmt.Println()
}

func saveImages(msg *broadcast.Message, dir string) {
	for field, encoded := range msg.Images {
		frame, err := imaging.DecodeBase64(encoded)
		if err != nil {
			logger.Warn("image field not decodable",
				zap.String("field", field),
				zap.Error(err),
			)
			continue
		}

		name := fmt.Sprintf("%d_%s.png", int64(msg.Timestamp*1000), field)
		path := filepath.Join(dir, name)
		if err := savePNG(frame, path); err != nil {
			logger.Warn("failed to save image", zap.String("path", path), zap.Error(err))
			continue
		}
		fmt.Printf("  saved %s (%dx%d)\n", path, frame.Width, frame.Height)
	}
}

func formatTimestamp(ts float64) string {
	if ts == 0 {
		return "never"
	}
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).Format("15:04:05.000")
}
