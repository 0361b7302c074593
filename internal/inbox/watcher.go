package inbox

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const settleDelay = 100 * time.Millisecond

// Watch runs Sync and then imports changed files until ctx is cancelled.
// Bursts of writes to one file are coalesced before importing.
func (in *Inbox) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(in.dir.Root()); err != nil {
		return err
	}
	if err := in.Sync(ctx); err != nil {
		in.logger.Warn("inbox: initial sync failed", slog.String("error", err.Error()))
	}

	in.logger.Info("inbox: watching", slog.String("root", in.dir.Root()), slog.String("owner", in.owner))

	pending := make(map[string]struct{})
	timer := time.NewTimer(settleDelay)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			in.logger.Info("inbox: stopped")
			return nil

		case <-timer.C:
			for name := range pending {
				delete(pending, name)
				if _, err := in.Import(ctx, name); err != nil {
					in.logger.Warn("inbox: import failed",
						slog.String("file", name),
						slog.String("error", err.Error()))
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if !IsOutline(name) {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				pending[name] = struct{}{}
				timer.Reset(settleDelay)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(pending, name)
				in.forget(Stem(name))
				in.logger.Debug("inbox: file gone, subject kept", slog.String("file", name))
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			in.logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
