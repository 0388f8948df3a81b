// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package decipher

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces bursts of fs events (editors write in
// several syscalls) into one reload.
const watchDebounce = 250 * time.Millisecond

// Watcher reloads the dictionary when its file changes on disk.
type Watcher struct {
	dict    *Dictionary
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchDictionary starts a debounced file watcher on the dictionary's
// directory. Call Close to stop it.
func WatchDictionary(dict *Dictionary) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating dictionary watcher: %w", err)
	}
	// Watch the directory, not the file: atomic renames replace the
	// inode and a file watch would silently die.
	if err := fsw.Add(filepath.Dir(dict.Path())); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching dictionary dir: %w", err)
	}

	w := &Watcher{dict: dict, watcher: fsw, done: make(chan struct{})}
	go w.run()
	return w, nil
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) run() {
	defer close(w.done)

	var timer *time.Timer
	var timerC <-chan time.Time
	target := filepath.Clean(w.dict.Path())

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerC = timer.C
			} else {
				timer.Reset(watchDebounce)
			}

		case <-timerC:
			if err := w.dict.Reload(); err != nil {
				slog.Warn("dictionary reload after file change failed", "error", err)
			} else {
				slog.Info("dictionary reloaded after file change", "path", target)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("dictionary watcher error", "error", err)
		}
	}
}
