package game

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"
)

// Layer names one level of the default → game → pool merge.
type Layer string

const (
	LayerDefault Layer = "default"
	LayerGame    Layer = "game"
	LayerPool    Layer = "pool"
)

// Change is a config file that was edited, created or removed since the last poll.
type Change struct {
	Layer   Layer
	Path    string
	Removed bool
}

func (c Change) String() string {
	verb := "changed"
	if c.Removed {
		verb = "removed"
	}
	return fmt.Sprintf("%s layer %s %s", c.Layer, c.Path, verb)
}

type watchedFile struct {
	layer Layer
	path  string
}

// FileWatcher polls the files behind one game/pool and reports every change
// seen in a poll as one batch, so edits to several layers cause one reload.
type FileWatcher struct {
	files    []watchedFile
	interval time.Duration
	onChange func([]Change)
	stopCh   chan struct{}
	stopOnce sync.Once
	mtimes   map[string]time.Time
}

// NewFileWatcher watches the layers that make up game/pool under paths.
func NewFileWatcher(paths Paths, game, pool string, interval time.Duration, onChange func([]Change)) *FileWatcher {
	layers := []Layer{LayerDefault, LayerGame, LayerPool}
	w := &FileWatcher{
		interval: interval,
		onChange: onChange,
		stopCh:   make(chan struct{}),
		mtimes:   make(map[string]time.Time),
	}
	for i, p := range paths.Files(game, pool) {
		w.files = append(w.files, watchedFile{layer: layers[i], path: p})
	}
	return w
}

// Start records the current state synchronously, then polls in a goroutine.
func (w *FileWatcher) Start() {
	w.poll()
	ticker := time.NewTicker(w.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if changes := w.poll(); len(changes) > 0 && w.onChange != nil {
					w.onChange(changes)
				}
			case <-w.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the watcher. It is safe to call more than once.
func (w *FileWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// poll compares each file with the last observation. A file that is missing
// from the start is reported once it appears.
func (w *FileWatcher) poll() []Change {
	var out []Change
	for _, f := range w.files {
		last, seen := w.mtimes[f.path]
		fi, err := os.Stat(f.path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			if seen {
				delete(w.mtimes, f.path)
				out = append(out, Change{Layer: f.layer, Path: f.path, Removed: true})
			}
		case err != nil:
			// unreadable for now; try again next tick
		case !seen || fi.ModTime().After(last):
			w.mtimes[f.path] = fi.ModTime()
			out = append(out, Change{Layer: f.layer, Path: f.path})
		}
	}
	return out
}
