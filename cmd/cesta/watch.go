package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Veraticus/cesta/internal/cli"
	"github.com/Veraticus/cesta/internal/engine"
	"github.com/Veraticus/cesta/internal/pricehistory"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const reloadDebounce = 2 * time.Second

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the catalog fresh and record daily prices",
		Long: `Run until interrupted. The catalog is reloaded whenever its file
changes, and a price snapshot runs at startup and then once per
pricehistory.interval.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Sync tools replace the file with a rename, so watch the directory.
	catalogPath := filepath.Clean(cfg.Catalog.Path)
	if err := watcher.Add(filepath.Dir(catalogPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(catalogPath), err)
	}

	scheduler := pricehistory.NewScheduler(a.prices, a.engine.Products, cfg.PriceHistory.Interval, slog.Default())
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if _, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("Watching %s (snapshot every %s). Press Ctrl+C to stop.",
		catalogPath, cfg.PriceHistory.Interval))); err != nil {
		return err
	}

	watchCatalog(ctx, watcher, a.engine, catalogPath, reloadDebounce)

	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Stopped"))
	return err
}

// watchCatalog reloads the catalog after its file settles, until ctx ends.
func watchCatalog(ctx context.Context, watcher *fsnotify.Watcher, e *engine.Engine, path string, debounce time.Duration) {
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				slog.Debug("Catalog file changed", "op", event.Op.String())
				timer.Reset(debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", "error", err)

		case <-timer.C:
			if err := loadCatalog(e, path); err != nil {
				slog.Error("Catalog reload failed, keeping previous catalog", "path", path, "error", err)
			}
		}
	}
}
