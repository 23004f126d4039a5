package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called after a key's bytes change on disk. data is
// the value read after the change settled. Delivery is at-least-once and
// unordered; callers must treat duplicate notifications as idempotent.
type ChangeCallback func(key string, data []byte)

// debounceDelay coalesces the burst of fsnotify events a single atomic
// write produces (create of the temp file, rename onto the target).
const debounceDelay = 100 * time.Millisecond

// Watch starts an fsnotify watcher on the FS provider's data directory
// and invokes cb for every settled value change until ctx is cancelled.
//
// The watcher cannot tell this process's own writes from another
// instance's; suppression of self-notifications is the subscriber's job
// (the annotation store compares payload checksums).
func Watch(ctx context.Context, fs *FS, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(fs.Root()); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", fs.Root()))

	// One pending timer per key; a new event for the same key resets it.
	pending := make(map[string]*time.Timer)
	fireCh := make(chan string, 16)

	schedule := func(key string) {
		if t, ok := pending[key]; ok {
			t.Reset(debounceDelay)
			return
		}
		pending[key] = time.AfterFunc(debounceDelay, func() {
			select {
			case fireCh <- key:
			case <-ctx.Done():
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			for _, t := range pending {
				t.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case key := <-fireCh:
			delete(pending, key)
			data, readErr := fs.Get(key)
			if readErr != nil {
				if !errors.Is(readErr, ErrKeyNotFound) {
					logger.Warn("watcher: read failed",
						slog.String("key", key),
						slog.String("error", readErr.Error()))
				}
				continue
			}
			logger.Debug("watcher: change settled", slog.String("key", key))
			if cb != nil {
				cb(key, data)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			key, isValue := KeyForPath(ev.Name)
			if !isValue {
				continue
			}
			schedule(key)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
