package host

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-pkgz/lgr"
)

// Watcher reports writes to the settings layer files so the service can
// reload on external edits. Rapid bursts (editors often write twice) are
// debounced into a single notification.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange func()
	debounce time.Duration
}

// NewWatcher creates a watcher over the settings directory
func NewWatcher(dir string, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{watcher: fw, onChange: onChange, debounce: 250 * time.Millisecond}, nil
}

// Run processes filesystem events until the context is canceled
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close() //nolint:errcheck // shutdown path

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			lgr.Printf("[DEBUG] settings file changed: %s", event.Name)
			timer.Stop()
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			lgr.Printf("[WARN] settings watcher error: %v", err)
		case <-timer.C:
			w.onChange()
		}
	}
}
