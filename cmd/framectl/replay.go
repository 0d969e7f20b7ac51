package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/framewell/framesink/internal/notify"
	"github.com/framewell/framesink/internal/replay"
)

func replayCmd() *cobra.Command {
	var intervalMS int
	var workers int

	cmd := &cobra.Command{
		Use:   "replay <directory>",
		Short: "Push every payload file in a directory",
		Long: `Push every .json and image file in a directory, in name order, paced
by a fixed interval. Useful for replaying a recorded session against a
development server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]

			tasks, err := collectTasks(dir)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				return fmt.Errorf("no payload files found in %s", dir)
			}

			if workers == 0 {
				workers = cfg.Push.Workers
			}
			if intervalMS < 0 {
				intervalMS = cfg.Push.IntervalMS
			}
			interval := time.Duration(intervalMS) * time.Millisecond

			logger.Info("starting replay",
				zap.String("dir", dir),
				zap.Int("payloads", len(tasks)),
				zap.Int("workers", workers),
				zap.Duration("interval", interval),
			)

			notifyCfg := notify.LoadConfig()
			if err := notifyCfg.Validate(); err != nil {
				return err
			}
			notifier := notify.New(notifyCfg, logger)

			mgr := replay.NewManager(newClient(), workers, interval, logger)

			start := time.Now()
			result, err := mgr.Execute(cmd.Context(), tasks)
			duration := time.Since(start)

			if err != nil || result.Failed > 0 {
				if nerr := notifier.SendFailure(cmd.Context(), result, dir, duration, err); nerr != nil {
					logger.Warn("failure notification not sent", zap.Error(nerr))
				}
			} else {
				if nerr := notifier.SendSuccess(cmd.Context(), result, dir, duration); nerr != nil {
					logger.Warn("success notification not sent", zap.Error(nerr))
				}
			}
			if err != nil {
				return err
			}

			fmt.Printf("Replayed %d payloads in %s: %d pushed, %d rejected, %d failed\n",
				result.Total, duration.Round(time.Millisecond), result.Success, result.Rejected, result.Failed)
			for _, e := range result.Errors {
				fmt.Printf("  %s\n", e)
			}
			if result.Failed > 0 {
				return fmt.Errorf("%d payloads failed", result.Failed)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&intervalMS, "interval", "i", -1, "milliseconds between pushes per worker (default from config)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent push workers (default from config)")
	return cmd
}

// collectTasks lists the pushable files in dir, sorted by name so replays
// run in recording order.
func collectTasks(dir string) ([]replay.Task, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var tasks []replay.Task
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		task := replay.Task{Path: filepath.Join(dir, entry.Name())}
		if task.ContentType() == "application/octet-stream" {
			continue // skip files we can't name a type for
		}
		tasks = append(tasks, task)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Path < tasks[j].Path })
	return tasks, nil
}
