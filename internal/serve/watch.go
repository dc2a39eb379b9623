package serve

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/boostgo/errorx"
	"github.com/fsnotify/fsnotify"

	"github.com/boostgo/imgdiff"
)

var ErrWatch = errorx.New("imgdiff.serve.watch")

// Watch reruns the comparison whenever a file in either tree is created,
// written, removed or renamed. Events are debounced; a failed rerun is
// logged and the loop keeps going. Watch returns nil when ctx is done.
func (s *Server) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return newWatchError(s.expectedRoot, err)
	}
	defer watcher.Close()

	for _, root := range []string{s.expectedRoot, s.actualRoot} {
		if err := s.addRecursive(watcher, root); err != nil {
			return err
		}
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	s.logger.Debug("watching trees", "expected", s.expectedRoot, "actual", s.actualRoot, "debounce", s.debounce)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !s.relevant(event) {
				continue
			}

			if event.Has(fsnotify.Create) && imgdiff.DirectoryExist(event.Name) {
				if err := s.addRecursive(watcher, event.Name); err != nil {
					s.logger.Warn("cannot watch new directory", "path", event.Name, "error", err)
				}
			}

			s.logger.Debug("file event", "op", event.Op.String(), "path", event.Name)

			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watch error", "error", err)

		case <-fire:
			fire = nil
			if _, err := s.Rerun(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("rerun failed", "error", err)
			}
		}
	}
}

func (s *Server) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	return !within(s.reportDir, event.Name) && event.Name != s.lock.Path()
}

func (s *Server) addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return newWatchError(path, err)
		}

		if !entry.IsDir() {
			return nil
		}

		if within(s.reportDir, path) {
			return filepath.SkipDir
		}

		if err := watcher.Add(path); err != nil {
			return newWatchError(path, err)
		}
		return nil
	})
}

func within(dir, path string) bool {
	dir = filepath.Clean(dir)
	path = filepath.Clean(path)

	return path == dir || strings.HasPrefix(path, dir+string(os.PathSeparator))
}

func newWatchError(path string, err error) error {
	return ErrWatch.
		SetError(err).
		SetData(struct {
			Path  string `json:"path"`
			Error error  `json:"error"`
		}{
			Path:  path,
			Error: err,
		})
}
