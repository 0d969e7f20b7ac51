package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/framewell/framesink/internal/imaging"
	"github.com/framewell/framesink/internal/payload"
)

func snapshotCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch the current record and save its images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			latest, err := newClient().GetLatest(cmd.Context())
			if err != nil {
				return err
			}

			rec := latest.Record
			fmt.Printf("generation %d, received %s\n", latest.Generation, formatTimestamp(rec.Timestamp))
			if rec.Prompt != "" {
				fmt.Printf("prompt: %s\n", rec.Prompt)
			}
			if rec.NegativePrompt != "" {
				fmt.Printf("negative prompt: %s\n", rec.NegativePrompt)
			}
			if rec.Seed != nil {
				fmt.Printf("seed: %d\n", payload.CoerceSeed(rec.Seed))
			}

			if len(rec.Images) == 0 {
				fmt.Println("no images in the current record")
				return nil
			}

			for field, encoded := range rec.Images {
				frame, err := imaging.DecodeBase64(encoded)
				if err != nil {
					logger.Warn("image field not decodable",
						zap.String("field", field),
						zap.Error(err),
					)
					continue
				}

				path := filepath.Join(outDir, field+".png")
				if err := savePNG(frame, path); err != nil {
					return fmt.Errorf("saving %s: %w", path, err)
				}
				fmt.Printf("saved %s (%dx%d)\n", path, frame.Width, frame.Height)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to write PNG files into")
	return cmd
}
