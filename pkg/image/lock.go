package image

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/huskrun/husk/pkg/logging"
)

// ErrLockTimeout reports that another process held the lock for the whole
// acquisition window.
var ErrLockTimeout = errors.New("timed out waiting for the lock")

// fileLock is a held exclusive lock backed by a lock file. Whoever creates
// the file owns the lock until release removes it.
type fileLock struct {
	path string
}

// lockOptions tune acquireLock. The zero value uses the defaults.
type lockOptions struct {
	timeout time.Duration // total acquisition budget, default 30s
	poll    time.Duration // re-check interval while waiting, default 500ms
	onWait  func()        // called once when the lock turns out to be contended
}

// acquireLock takes the exclusive lock backed by the file at path. When the
// file already exists, it waits for its removal, watching the directory with
// fsnotify and re-checking on a timer, until the timeout expires.
func acquireLock(ctx context.Context, path string, opts lockOptions) (*fileLock, error) {
	if opts.timeout == 0 {
		opts.timeout = 30 * time.Second
	}
	if opts.poll == 0 {
		opts.poll = 500 * time.Millisecond
	}

	deadline := time.Now().Add(opts.timeout)
	waited := false

	for {
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			fmt.Fprintf(file, "%d", os.Getpid())
			if err := file.Close(); err != nil {
				logging.Verbosef("Cannot close lock file %q: %v", path, err)
			}
			return &fileLock{path: path}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("failed to create lock file %q: %w", path, err)
		}

		if !waited {
			waited = true
			if opts.onWait != nil {
				opts.onWait()
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrLockTimeout
		}
		wait := opts.poll
		if remaining < wait {
			wait = remaining
		}
		if err := waitForRemoval(ctx, path, wait); err != nil {
			return nil, err
		}
	}
}

// release gives up the lock. Removal failures are logged rather than
// returned since the caller cannot do anything about them.
func (l *fileLock) release() {
	if err := os.Remove(l.path); err != nil {
		logging.Verbosef("Cannot delete lock file %q: %v", l.path, err)
	}
}

// waitForRemoval blocks until the file at path disappears, the wait
// elapses, or the context is cancelled. A removal seen by fsnotify ends the
// wait early; the caller re-checks by trying to take the lock again either
// way.
func waitForRemoval(ctx context.Context, path string, wait time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Verbosef("Cannot watch the lock file, falling back to polling: %v", err)
		return sleepOrDone(ctx, wait)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		logging.Verbosef("Cannot watch the lock directory, falling back to polling: %v", err)
		return sleepOrDone(ctx, wait)
	}

	// The holder may have released between our failed create and the watch
	// being in place.
	if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name == path && event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Verbosef("Lock watcher error: %v", err)
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
