// Package watch uploads files dropped into a local directory. It debounces
// filesystem events so a file still being written is uploaded once, after
// it goes quiet, through the same sequential upload pipeline the CLI uses.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Shobayosamuel/cloudbox-go/internal/transfer"
)

// defaultSettleDelay is how long a file must be quiet (no further write
// events) before it is considered complete and uploaded.
const defaultSettleDelay = 500 * time.Millisecond

// flushInterval is how often the pending set is checked for settled files.
const flushInterval = 200 * time.Millisecond

// Uploader is the slice of the transfer manager the watcher needs.
type Uploader interface {
	Upload(ctx context.Context, sources []transfer.Source, progress transfer.ProgressFunc) (*transfer.BatchResult, error)
}

// Watcher observes one directory (non-recursive) and uploads new or
// modified files.
type Watcher struct {
	uploads     Uploader
	logger      *slog.Logger
	settleDelay time.Duration

	// onResult, when set, receives each file's outcome. Used by the CLI for
	// terminal output and by tests for synchronization.
	onResult func(result *transfer.BatchResult)
}

// New creates a Watcher. settleDelay <= 0 selects the default.
func New(uploads Uploader, logger *slog.Logger, settleDelay time.Duration) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	if settleDelay <= 0 {
		settleDelay = defaultSettleDelay
	}

	return &Watcher{uploads: uploads, logger: logger, settleDelay: settleDelay}
}

// OnResult registers a callback invoked after each upload attempt.
func (w *Watcher) OnResult(fn func(result *transfer.BatchResult)) {
	w.onResult = fn
}

// Run watches dir until ctx is canceled. Returns nil on cancellation and
// an error only when the watch cannot be established.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("watch: %s is not a directory", dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch: adding %s: %w", dir, err)
	}

	w.logger.Info("watching directory", slog.String("dir", dir))

	return w.loop(ctx, fw)
}

// loop is the event/flush select loop. pending maps absolute paths to the
// time of their last event; a ticker flushes paths that stayed quiet for
// the settle delay.
func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) error {
	pending := make(map[string]time.Time)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}

			w.handleEvent(ev, pending)

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("filesystem watcher error", slog.String("error", watchErr.Error()))

		case <-ticker.C:
			w.flush(ctx, pending)
		}
	}
}

// handleEvent records create/write events for regular, non-hidden files.
func (w *Watcher) handleEvent(ev fsnotify.Event, pending map[string]time.Time) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") {
		return
	}

	info, err := os.Stat(ev.Name)
	if err != nil || info.IsDir() {
		// Removed right after creation, or a directory — nothing to upload.
		return
	}

	pending[ev.Name] = time.Now()
}

// flush uploads every pending file whose last event is older than the
// settle delay. Files are uploaded sequentially in one batch.
func (w *Watcher) flush(ctx context.Context, pending map[string]time.Time) {
	cutoff := time.Now().Add(-w.settleDelay)

	var paths []string

	for path, last := range pending {
		if last.Before(cutoff) {
			paths = append(paths, path)
		}
	}

	if len(paths) == 0 {
		return
	}

	sources := make([]transfer.Source, 0, len(paths))

	for _, path := range paths {
		delete(pending, path)
		sources = append(sources, transfer.FileSource(path))
	}

	result, err := w.uploads.Upload(ctx, sources, nil)
	if err != nil {
		w.logger.Warn("watched upload batch aborted", slog.String("error", err.Error()))
	}

	if result != nil {
		for _, item := range result.Uploaded {
			w.logger.Info("watched file uploaded",
				slog.String("name", item.FileName),
				slog.Int64("size", item.FileSize),
			)
		}

		for _, fail := range result.Failed {
			w.logger.Warn("watched file upload failed",
				slog.String("name", fail.Name),
				slog.String("error", fail.Err.Error()),
			)
		}

		if w.onResult != nil {
			w.onResult(result)
		}
	}
}
