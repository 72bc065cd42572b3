package trim

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"cfgdb/internal/cfgerr"
)

// Watch runs the workflow once, then re-runs it on every write to the
// removal spec until the watcher fails. Events are consumed sequentially,
// so at most one analysis is ever in flight; rapid edits trigger redundant
// full reruns but never concurrent ones.
func (w *Workflow) Watch(specPath, reportPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return cfgerr.Wrap(cfgerr.IOError, "failed to create file watcher", err)
	}
	defer watcher.Close()

	// Watch the parent directory; editors that replace the file on save
	// would otherwise drop the watch.
	dir := filepath.Dir(specPath)
	if err := watcher.Add(dir); err != nil {
		return cfgerr.Wrap(cfgerr.IOError, "failed to watch spec directory", err)
	}

	target, err := filepath.Abs(specPath)
	if err != nil {
		return cfgerr.Wrap(cfgerr.IOError, "failed to resolve spec path", err)
	}

	if _, err := w.Run(specPath, reportPath); err != nil {
		w.logger.Error("Initial trim analysis failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	w.logger.Info("Watching removal spec for changes", map[string]interface{}{
		"spec":   specPath,
		"report": reportPath,
	})

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			eventPath, err := filepath.Abs(event.Name)
			if err != nil || eventPath != target {
				continue
			}

			w.logger.Info("Removal spec changed, re-running analysis", map[string]interface{}{
				"event": event.Op.String(),
			})
			if _, err := w.Run(specPath, reportPath); err != nil {
				w.logger.Error("Trim analysis failed", map[string]interface{}{
					"error": err.Error(),
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return cfgerr.Wrap(cfgerr.IOError, "file watcher failed", err)
		}
	}
}
