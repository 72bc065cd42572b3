// Package trim implements the batch removal-analysis workflow: it reads a
// line-oriented removal specification, expands regex patterns against the
// class store, runs impact analysis in parameter-safe batches, and renders
// a Markdown report of orphans, affected descendants, empty archives, and
// at-risk protected classes.
package trim

import (
	"bufio"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"cfgdb/internal/logging"
	"cfgdb/internal/storage"
)

// matchTimeout caps a single regex match check so a pathological pattern
// degrades into a logged per-id error instead of a hang
const matchTimeout = time.Second

// Spec is a parsed removal specification before pattern expansion
type Spec struct {
	RemoveLiterals  []string
	RemovePatterns  []string
	ProtectLiterals []string
	ProtectPatterns []string
}

// HasPatterns reports whether any regex patterns need expanding
func (s *Spec) HasPatterns() bool {
	return len(s.RemovePatterns) > 0 || len(s.ProtectPatterns) > 0
}

// isPattern reports whether an entry should be treated as a regex rather
// than a literal class id
func isPattern(entry string) bool {
	if strings.Contains(entry, "?<") {
		return true
	}
	return strings.ContainsAny(entry, `*?[]()|.$^\+`)
}

// ParseSpec reads a line-oriented removal specification.
// Blank lines and # comments are skipped; a leading + marks the entry as
// protected; entries containing regex metacharacters become patterns.
func ParseSpec(r io.Reader) (*Spec, error) {
	spec := &Spec{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		protected := false
		if strings.HasPrefix(line, "+") {
			protected = true
			line = strings.TrimSpace(line[1:])
			if line == "" {
				continue
			}
		}

		switch {
		case protected && isPattern(line):
			spec.ProtectPatterns = append(spec.ProtectPatterns, line)
		case protected:
			spec.ProtectLiterals = append(spec.ProtectLiterals, line)
		case isPattern(line):
			spec.RemovePatterns = append(spec.RemovePatterns, line)
		default:
			spec.RemoveLiterals = append(spec.RemoveLiterals, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return spec, nil
}

// Expand resolves a parsed spec into final removal and protected lists.
// Patterns are matched against every class id in the store; a pattern that
// fails to compile, or an id whose match check errors, is logged and
// contributes nothing. Both lists are deduplicated and sorted, and any id
// that is protected is dropped from the removal list.
func Expand(spec *Spec, classes *storage.ClassRepository, logger *logging.Logger) (removals, protected []string, err error) {
	removals = append(removals, spec.RemoveLiterals...)
	protected = append(protected, spec.ProtectLiterals...)

	if spec.HasPatterns() {
		all, err := classes.GetAll()
		if err != nil {
			return nil, nil, err
		}
		ids := make([]string, len(all))
		for i, record := range all {
			ids[i] = record.ID
		}

		logger.Debug("Expanding removal patterns", map[string]interface{}{
			"classes":           len(ids),
			"patterns":          len(spec.RemovePatterns),
			"protectedPatterns": len(spec.ProtectPatterns),
		})

		removals = append(removals, expandPatterns(spec.RemovePatterns, ids, logger)...)
		protected = append(protected, expandPatterns(spec.ProtectPatterns, ids, logger)...)
	}

	removals = dedupSort(removals)
	protected = dedupSort(protected)

	// Protection wins over removal
	protectedSet := make(map[string]struct{}, len(protected))
	for _, id := range protected {
		protectedSet[id] = struct{}{}
	}
	kept := removals[:0]
	for _, id := range removals {
		if _, ok := protectedSet[id]; !ok {
			kept = append(kept, id)
		}
	}

	return kept, protected, nil
}

// expandPatterns matches each pattern against every id, collecting matches.
// Failures are logged with the offending pattern and skipped.
func expandPatterns(patterns []string, ids []string, logger *logging.Logger) []string {
	var matches []string

	for _, pattern := range patterns {
		re, err := regexp2.Compile(pattern, regexp2.None)
		if err != nil {
			logger.Warn("Failed to compile removal pattern", map[string]interface{}{
				"pattern": pattern,
				"error":   err.Error(),
			})
			continue
		}
		re.MatchTimeout = matchTimeout

		count := 0
		for _, id := range ids {
			ok, err := re.MatchString(id)
			if err != nil {
				logger.Warn("Pattern match check failed", map[string]interface{}{
					"pattern": pattern,
					"class":   id,
					"error":   err.Error(),
				})
				continue
			}
			if ok {
				matches = append(matches, id)
				count++
			}
		}

		logger.Debug("Pattern expanded", map[string]interface{}{
			"pattern": pattern,
			"matches": count,
		})
	}

	return matches
}

// dedupSort sorts ids and removes duplicates in place
func dedupSort(ids []string) []string {
	if len(ids) == 0 {
		return ids
	}
	sort.Strings(ids)
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}
