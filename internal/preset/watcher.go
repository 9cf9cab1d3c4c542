// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package preset

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long a preset file must be quiet before a change is
// reported. Editors often write a file in several steps.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reports changes to one preset file. It watches the parent
// directory so that editors which save by renaming a new file into place are
// seen too.
//
// OnChange runs on the watcher's goroutine; it must hand the reload over to
// the UI goroutine rather than touch application state.
type Watcher struct {
	path     string
	onChange func(path string)
	debounce time.Duration
	log      zerolog.Logger

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	changed time.Time
	dirty   bool

	ctx    context.Context
	cancel context.CancelFunc
	done   sync.WaitGroup
}

// Watch starts watching path.
func Watch(path string, debounce time.Duration, log zerolog.Logger, onChange func(path string)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating preset watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     abs,
		onChange: onChange,
		debounce: debounce,
		log:      log.With().Str("preset", abs).Logger(),
		watcher:  fw,
		ctx:      ctx,
		cancel:   cancel,
	}
	w.done.Add(2)
	go w.processEvents()
	go w.processPending()
	return w, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string { return w.path }

func (w *Watcher) processEvents() {
	defer w.done.Done()
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.mu.Lock()
				w.changed = time.Now()
				w.dirty = true
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("preset watcher error")
		}
	}
}

func (w *Watcher) processPending() {
	defer w.done.Done()
	ticker := time.NewTicker(w.debounce / 4)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case now := <-ticker.C:
			w.mu.Lock()
			fire := w.dirty && now.Sub(w.changed) >= w.debounce
			if fire {
				w.dirty = false
			}
			w.mu.Unlock()

			if fire {
				w.log.Debug().Msg("preset changed on disk")
				w.onChange(w.path)
			}
		}
	}
}

// Close stops watching and waits for the watcher goroutines to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.done.Wait()
	return err
}
