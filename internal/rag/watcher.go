package rag

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 250 * time.Millisecond

// DatasetWatcher reindexes the knowledge base when its dataset file changes.
type DatasetWatcher struct {
	watcher   *fsnotify.Watcher
	path      string
	retriever *Retriever
	logger    *zap.Logger
	debounce  time.Duration
	reloaded  chan error // optional, observes reload results
}

// NewDatasetWatcher watches the directory containing path. Editors often
// replace files instead of writing in place, so the parent is watched and
// events are filtered by name.
func NewDatasetWatcher(path string, retriever *Retriever, logger *zap.Logger) (*DatasetWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve dataset path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &DatasetWatcher{
		watcher:   w,
		path:      abs,
		retriever: retriever,
		logger:    logger,
		debounce:  reloadDebounce,
	}, nil
}

// Run processes events until ctx is cancelled or the watcher is closed.
func (d *DatasetWatcher) Run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != d.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(d.debounce)
			} else {
				timer.Reset(d.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			err := d.retriever.Load(ctx, d.path)
			if err != nil {
				d.logger.Error("knowledge base reload failed, keeping previous index",
					zap.String("path", d.path), zap.Error(err))
			} else {
				d.logger.Info("knowledge base reloaded", zap.String("path", d.path))
			}
			if d.reloaded != nil {
				select {
				case d.reloaded <- err:
				default:
				}
			}
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Warn("dataset watcher error", zap.Error(err))
		}
	}
}

// Close stops the underlying watcher.
func (d *DatasetWatcher) Close() error {
	return d.watcher.Close()
}
