package registry

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"firestige.xyz/canframe/internal/log"
	"firestige.xyz/canframe/internal/metrics"
)

// Watch reloads path into store whenever the file is written or replaced,
// until ctx is cancelled. The parent directory is watched so editors that
// rename over the file are picked up. A document that fails to load leaves
// the previous snapshot in place.
func Watch(ctx context.Context, path string, store *Store, logger log.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create registry watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve registry path %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	logger = logger.WithField("registry", abs)
	logger.Debug("watching registry file")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			reload(abs, store, logger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("registry watcher error")
		}
	}
}

func reload(path string, store *Store, logger log.Logger) {
	m, err := LoadFile(path)
	if err != nil {
		metrics.RegistryReloadsTotal.WithLabelValues("error").Inc()
		logger.WithError(err).Error("registry reload failed, keeping previous snapshot")
		return
	}
	store.Replace(m)
	metrics.RegistryReloadsTotal.WithLabelValues("ok").Inc()
	metrics.RegistryEntries.Set(float64(len(m)))
	logger.WithField("entries", len(m)).Info("registry reloaded")
}
