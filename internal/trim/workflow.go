package trim

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"cfgdb/internal/cfgerr"
	"cfgdb/internal/graph"
	"cfgdb/internal/logging"
	"cfgdb/internal/storage"
)

// defaultBatchSize keeps id-list queries below the store's parameter ceiling
const defaultBatchSize = 1000

// Workflow runs a full trim analysis: parse the removal spec, expand
// patterns, compute impact in batches, cross-reference protected classes
// and archive emptiness, and write a Markdown report.
type Workflow struct {
	engine   *graph.Engine
	archives ArchiveAnalyzer
	logger   *logging.Logger

	// BatchSize overrides the per-batch id count when positive
	BatchSize int
}

// NewWorkflow creates a trim workflow over a graph engine
func NewWorkflow(engine *graph.Engine, archives ArchiveAnalyzer, logger *logging.Logger) *Workflow {
	return &Workflow{
		engine:   engine,
		archives: archives,
		logger:   logger,
	}
}

// Result is the aggregated outcome of one trim analysis run
type Result struct {
	RunID string

	Removed         []string
	Orphaned        []string
	Affected        []string
	Protected       []string
	AtRiskProtected []string
	EmptyArchives   []string

	// Graph holds the first batch's impact graph only; later batches
	// contribute lists but their graphs are discarded.
	Graph *graph.Data

	Duration time.Duration
}

// Run executes one full analysis of specPath and writes the report to
// reportPath. An empty removal list is a no-op returning a nil Result.
func (w *Workflow) Run(specPath, reportPath string) (*Result, error) {
	result, err := w.Analyze(specPath)
	if err != nil {
		return nil, err
	}
	if result == nil {
		w.logger.Info("Removal spec is empty, nothing to analyze", map[string]interface{}{
			"spec": specPath,
		})
		return nil, nil
	}

	report := RenderReport(w.engine.Classes(), result, w.logger)
	if err := writeReportAtomic(reportPath, report); err != nil {
		return nil, cfgerr.Wrap(cfgerr.IOError, "failed to write report", err)
	}

	w.logger.Info("Trim analysis complete", map[string]interface{}{
		"runId":         result.RunID,
		"removed":       len(result.Removed),
		"orphaned":      len(result.Orphaned),
		"affected":      len(result.Affected),
		"emptyArchives": len(result.EmptyArchives),
		"atRisk":        len(result.AtRiskProtected),
		"report":        reportPath,
		"duration":      result.Duration.String(),
	})

	return result, nil
}

// Analyze computes a trim result without writing a report.
// Returns (nil, nil) when the spec yields no removals.
func (w *Workflow) Analyze(specPath string) (*Result, error) {
	started := time.Now()

	f, err := os.Open(specPath)
	if err != nil {
		return nil, cfgerr.Wrap(cfgerr.IOError, "failed to open removal spec", err)
	}
	spec, parseErr := ParseSpec(f)
	f.Close()
	if parseErr != nil {
		return nil, cfgerr.Wrap(cfgerr.IOError, "failed to read removal spec", parseErr)
	}

	removals, protected, err := Expand(spec, w.engine.Classes(), w.logger)
	if err != nil {
		return nil, err
	}
	if len(removals) == 0 {
		return nil, nil
	}

	result := &Result{
		RunID:     uuid.New().String(),
		Removed:   removals,
		Protected: protected,
	}

	// Each batch queries the live store, so its orphan and affected sets
	// are exact regardless of what earlier batches targeted. Only the
	// first batch's graph is kept.
	batches := storage.ChunkIDs(removals, w.batchSize())
	for i, batch := range batches {
		w.logger.Debug("Running impact batch", map[string]interface{}{
			"batch":   i + 1,
			"batches": len(batches),
			"ids":     len(batch),
		})

		impact, err := w.engine.ImpactAnalysis(batch)
		if err != nil {
			return nil, err
		}
		result.Orphaned = append(result.Orphaned, impact.OrphanedClasses...)
		result.Affected = append(result.Affected, impact.AffectedClasses...)
		if result.Graph == nil {
			result.Graph = impact.GraphData
		}
	}
	result.Orphaned = dedupSort(result.Orphaned)
	result.Affected = dedupSort(result.Affected)

	// A class both targeted directly and orphaned by another removal
	// counts once, as removed.
	removedSet := make(map[string]struct{}, len(result.Removed))
	for _, id := range result.Removed {
		removedSet[id] = struct{}{}
	}
	orphaned := result.Orphaned[:0]
	for _, id := range result.Orphaned {
		if _, ok := removedSet[id]; !ok {
			orphaned = append(orphaned, id)
		}
	}
	result.Orphaned = orphaned

	result.AtRiskProtected = intersect(result.Protected, result.Orphaned)

	result.EmptyArchives, err = w.archives.AnalyzeArchiveImpact(result.Removed, result.Orphaned)
	if err != nil {
		return nil, err
	}

	result.Duration = time.Since(started)
	return result, nil
}

func (w *Workflow) batchSize() int {
	if w.BatchSize > 0 {
		return w.BatchSize
	}
	return defaultBatchSize
}

// intersect returns sorted elements of a that also appear in b.
// Both inputs are already sorted and deduplicated.
func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, id := range b {
		set[id] = struct{}{}
	}
	var out []string
	for _, id := range a {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// writeReportAtomic writes via a temp file and rename so a failed run
// never leaves a truncated report behind
func writeReportAtomic(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".report-*.md")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
