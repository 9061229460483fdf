package shadersrc

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports shader files that changed on disk. It is polled from the
// render loop, so nothing it does blocks.
type Watcher struct {
	fs *fsnotify.Watcher
}

// NewWatcher watches the given directories (not recursively).
func NewWatcher(dirs ...string) (*Watcher, error) {
	fw, err := fsnotify.NewBufferedWatcher(64)
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return &Watcher{fs: fw}, nil
}

// Changed drains pending events and returns the shader files written,
// created or renamed into place since the last call, sorted and without
// duplicates.
func (w *Watcher) Changed() []string {
	seen := make(map[string]bool)
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return sorted(seen)
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !Supported(ev.Name) {
				continue
			}
			seen[filepath.Clean(ev.Name)] = true
		case err, ok := <-w.fs.Errors:
			if ok {
				logger.Warn("shader watcher error", "error", err)
			}
		default:
			return sorted(seen)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func sorted(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
