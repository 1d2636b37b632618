package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/harrison/agentcore/internal/agentcore"
)

// DefaultDebounceDelay coalesces bursts of rapid write events into a
// single fired trigger.
const DefaultDebounceDelay = 100 * time.Millisecond

// watchedTrigger pairs a configured file_change trigger with the root
// directory it was registered against, so a fsnotify event under that root
// can be mapped back to the trigger that should fire.
type watchedTrigger struct {
	trigger agentcore.Trigger
	root    string
}

// fileWatchSet is the monitor's single fsnotify.Watcher, recursively
// watching every root directory any file_change trigger names and
// dispatching matched, debounced events back to the owning Monitor.
type fileWatchSet struct {
	monitor  *Monitor
	watcher  *fsnotify.Watcher
	triggers []watchedTrigger
	done     chan struct{}
	wg       sync.WaitGroup

	mu          sync.Mutex
	debounceMap map[string]*time.Timer
}

func newFileWatchSet(m *Monitor) (*fileWatchSet, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fswatch: %w", err)
	}
	return &fileWatchSet{
		monitor:     m,
		watcher:     w,
		done:        make(chan struct{}),
		debounceMap: make(map[string]*time.Timer),
	}, nil
}

// add registers trig's Path (and every existing subdirectory beneath it) on
// the shared watcher. Paths that don't exist yet are skipped rather than
// failing the whole monitor startup, tolerating a not-yet-created root.
func (fw *fileWatchSet) add(trig agentcore.Trigger) error {
	root := filepath.Clean(trig.Path)
	if err := fw.addRecursive(root); err != nil {
		return err
	}
	fw.triggers = append(fw.triggers, watchedTrigger{trigger: trig, root: root})
	return nil
}

func (fw *fileWatchSet) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			if err := fw.watcher.Add(path); err != nil {
				if os.IsPermission(err) {
					return nil
				}
				return err
			}
		}
		return nil
	})
}

// start launches the event-processing goroutine. No-op when no triggers
// were registered, so an agent configured without any file_change trigger
// never pays for an idle fsnotify loop.
func (fw *fileWatchSet) start() {
	if len(fw.triggers) == 0 {
		return
	}
	fw.wg.Add(1)
	go fw.processEvents()
}

func (fw *fileWatchSet) close() {
	close(fw.done)
	fw.watcher.Close()
	fw.wg.Wait()
}

func (fw *fileWatchSet) processEvents() {
	defer fw.wg.Done()
	for {
		select {
		case <-fw.done:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.monitor.narrate("fswatch: %v", err)
		}
	}
}

func (fw *fileWatchSet) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := fw.addRecursive(path); err != nil {
				fw.monitor.narrate("fswatch: %v", err)
			}
		}
	}

	for _, wt := range fw.triggers {
		if !underRoot(wt.root, path) {
			continue
		}
		if !matchesPattern(wt.trigger.Pattern, path) {
			continue
		}
		if event.Has(fsnotify.Write) {
			fw.debounce(wt.trigger, path)
		} else if event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
			fw.monitor.fire(wt.trigger, path)
		}
	}
}

// debounce coalesces rapid write events on the same path into a single
// fired trigger, resetting the timer on every new write.
func (fw *fileWatchSet) debounce(trig agentcore.Trigger, path string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	key := trig.Name + ":" + path
	if timer, ok := fw.debounceMap[key]; ok {
		timer.Stop()
	}
	fw.debounceMap[key] = time.AfterFunc(DefaultDebounceDelay, func() {
		fw.mu.Lock()
		delete(fw.debounceMap, key)
		fw.mu.Unlock()
		fw.monitor.fire(trig, path)
	})
}

func underRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (len(rel) > 0 && rel[0] != '.')
}

// matchesPattern applies a trigger's Pattern as a regex against the file's
// base name, per the monitor's filesystem-trigger matching rule: path must
// be under the trigger's root, and if a pattern is configured the file name
// must match it as a regular expression (not a shell glob).
func matchesPattern(pattern, path string) bool {
	if pattern == "" {
		return true
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(filepath.Base(path))
}
