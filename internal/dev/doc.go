// Package dev provides the file watcher behind "blade gen --watch".
//
// The watcher follows the project's source tree with fsnotify, adding new
// directories as they appear, and reports debounced changes classified as
// Go source, manifest or configuration edits:
//
//	w, err := dev.NewWatcher(dev.WatcherConfig{
//	    Paths: dev.CollectWatchPaths(cfg),
//	})
//	if err != nil {
//	    return err
//	}
//	w.OnChange(func(c dev.Change) {
//	    regenerate()
//	})
//	return w.Start(ctx)
//
// Start blocks until ctx is done or Stop is called.
package dev
