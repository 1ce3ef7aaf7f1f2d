package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watchLedger calls onChange after every write, create or rename of the
// ledger file until ctx is done. The parent directory is watched so the
// file may be created or replaced while watching.
func watchLedger(ctx context.Context, path string, logger *zap.Logger, onChange func()) error {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("watching ledger", zap.String("path", abs))

	// One pending change is enough; bursts of writes collapse into it.
	changed := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !ledgerChanged(ev) {
					continue
				}
				logger.Debug("ledger event", zap.String("op", ev.Op.String()))
				select {
				case changed <- struct{}{}:
				default:
				}
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watcher error", zap.Error(werr))
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			onChange()
		}
	}
}

func ledgerChanged(ev fsnotify.Event) bool {
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
