// Package watcher triggers reassembly whenever a source file changes
// on disk. The file's parent directory is registered with fsnotify
// rather than the file itself, so editors that replace the file by
// rename do not silently drop the watch.
package watcher

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"goasm64/pkg/logging"
)

// OnReload is called from the watcher's goroutine after each change to
// the watched file.
type OnReload func(context.Context)

// FileWatcher dispatches reload callbacks for a single source file.
type FileWatcher struct {
	path     string
	dir      string
	name     string
	onReload OnReload
	logger   logging.Logger
}

// New returns a watcher for the file at path. Nothing is registered
// with the operating system until Start.
func New(path string, onReload OnReload, logger logging.Logger) (*FileWatcher, error) {
	fullPath, parentDir, err := watchTarget(path)
	if err != nil {
		return nil, err
	}
	return &FileWatcher{
		path:     fullPath,
		dir:      parentDir,
		name:     filepath.Base(fullPath),
		onReload: onReload,
		logger:   logger,
	}, nil
}

// Start registers the watch and begins dispatching reloads until ctx
// is cancelled.
func (w *FileWatcher) Start(ctx context.Context) error {
	watcher, err := w.getWatcher()
	if err != nil {
		return err
	}
	go w.readWatcher(ctx, watcher)
	return nil
}

func (w *FileWatcher) getWatcher() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w.logger.WithFields(map[string]interface{}{"path": w.dir}).Debug("watching path")
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return nil, err
	}
	return watcher, nil
}

func (w *FileWatcher) readWatcher(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	mask := fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			// Events are matched by base name: the watch covers only
			// the source file's directory, and some platforms report
			// symlink-resolved directory paths in event names.
			if evt.Op&mask == 0 || filepath.Base(evt.Name) != w.name {
				continue
			}
			w.logger.WithFields(map[string]interface{}{"event": evt.String()}).Debug("Registered file event.")
			w.onReload(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error: %v", err)
		}
	}
}

// watchTarget resolves path to its absolute form and the directory the
// watch must be registered on.
func watchTarget(path string) (fullPath string, parentDir string, err error) {
	fullPath, err = filepath.Abs(path)
	if err != nil {
		return "", "", err
	}
	return fullPath, filepath.Dir(fullPath), nil
}
