package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/maruel/roomdb/internal/config"
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print changes to the data directory until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(cmd.Flags().Changed("log-level")); err != nil {
				return err
			}
			slog.Info("Watching", "dir", a.dataDir)
			return watchDir(cmd.Context(), a.dataDir, func(t time.Time, op fsnotify.Op, name string) {
				_, _ = fmt.Fprintf(a.out, "%s %-6s %s\n", t.Format("15:04:05.000"), op, name)
			})
		},
	}
}

// watchDir calls fn for every change to a table, backup or configuration
// file in dir until ctx is done. Temp files are ignored.
func watchDir(ctx context.Context, dir string, fn func(t time.Time, op fsnotify.Op, name string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	if err := w.Add(dir); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(event.Name)
			if !watched(name) {
				continue
			}
			fn(time.Now(), event.Op, name)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "Error watching data directory", "err", err)
		}
	}
}

func watched(name string) bool {
	switch {
	case strings.HasSuffix(name, ".tmp"):
		return false
	case name == config.FileName:
		return true
	default:
		return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".bak")
	}
}
