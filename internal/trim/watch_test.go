package trim

import (
	"path/filepath"
	"testing"

	"cfgdb/internal/cfgerr"
)

func TestWatchMissingDirectory(t *testing.T) {
	env := setupWorkflow(t)

	specPath := filepath.Join(env.dir, "no-such-dir", "removals.txt")
	err := env.workflow.Watch(specPath, filepath.Join(env.dir, "report.md"))
	if err == nil {
		t.Fatal("expected watcher setup to fail")
	}
	if !cfgerr.HasCode(err, cfgerr.IOError) {
		t.Errorf("expected IO_ERROR, got %v", err)
	}
}
