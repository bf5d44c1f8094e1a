// Package watch reports changes made to the database file by other processes.
package watch

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/verte-zerg/mantra/internal/logger"
)

// DefaultDebounce groups bursts of writes into one change notification.
const DefaultDebounce = 150 * time.Millisecond

// Watcher watches a database file and its SQLite side files and fans each
// change out to every subscriber.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	stop     chan struct{}
	once     sync.Once
	done     chan struct{}

	mu     sync.Mutex
	subs   map[chan struct{}]struct{}
	closed bool
}

// New starts watching path. Subscribers are told about changes coalesced over debounce.
func New(path string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory so WAL and journal files are seen too.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		if closeErr := fw.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return nil, err
	}

	w := &Watcher{
		path:     path,
		debounce: debounce,
		watcher:  fw,
		stop:     make(chan struct{}),
		subs:     make(map[chan struct{}]struct{}),
		done:     make(chan struct{}),
	}
	go w.watchLoop()
	return w, nil
}

// Subscribe returns a channel that receives one value per debounced burst of
// writes, and a cancel func that unsubscribes and closes it. A value sent
// before a subscriber reads it stays pending and later bursts coalesce into it.
func (w *Watcher) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		close(ch)
		return ch, func() {}
	}
	w.subs[ch] = struct{}{}
	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if _, ok := w.subs[ch]; ok {
			delete(w.subs, ch)
			close(ch)
		}
	}
}

// Matches reports whether name is the database file or one of its side files.
func (w *Watcher) Matches(name string) bool {
	base := filepath.Base(w.path)
	got := filepath.Base(name)
	if got == base {
		return true
	}
	suffix, ok := strings.CutPrefix(got, base)
	if !ok {
		return false
	}
	return suffix == "-wal" || suffix == "-journal"
}

func (w *Watcher) watchLoop() {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.Matches(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.send()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("database watcher error", "error", err)

		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) send() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for ch := range w.subs {
		select {
		case ch <- struct{}{}:
		default:
			// A change is already pending.
		}
	}
}

// Close stops the watcher and closes every subscriber channel.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.stop)
		<-w.done
		err = w.watcher.Close()

		w.mu.Lock()
		defer w.mu.Unlock()
		for ch := range w.subs {
			close(ch)
		}
		w.subs = nil
		w.closed = true
	})
	return err
}
