package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/framewell/framesink/internal/replay"
)

func pushCmd() *cobra.Command {
	var contentType string

	cmd := &cobra.Command{
		Use:   "push <file|->",
		Short: "Push one payload to the server",
		Long: `Push a single payload: a JSON file, a raw image file (content type
inferred from the extension), or stdin with an explicit --content-type.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body []byte
			var err error

			ct := contentType
			if args[0] == "-" {
				body, err = io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				if ct == "" {
					ct = "application/json"
				}
			} else {
				body, err = os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("reading %s: %w", args[0], err)
				}
				if ct == "" {
					ct = replay.Task{Path: args[0]}.ContentType()
				}
			}

			logger.Debug("pushing",
				zap.String("content_type", ct),
				zap.Int("bytes", len(body)),
			)

			ack, err := newClient().Push(cmd.Context(), ct, body)
			if err != nil {
				return err
			}

			fmt.Printf("%s (timestamp %.3f)\n", ack.Message, ack.Timestamp)
			return nil
		},
	}

	cmd.Flags().StringVarP(&contentType, "content-type", "t", "", "override the Content-Type header")
	return cmd
}
