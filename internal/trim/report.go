package trim

import (
	"fmt"
	"strings"

	"cfgdb/internal/logging"
	"cfgdb/internal/storage"
)

// RenderReport produces the Markdown impact report for one analysis run
func RenderReport(classes *storage.ClassRepository, result *Result, logger *logging.Logger) string {
	var b strings.Builder

	b.WriteString("# Trim Impact Report\n\n")

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Classes to remove: %d\n", len(result.Removed))
	fmt.Fprintf(&b, "- Orphaned classes: %d\n", len(result.Orphaned))
	fmt.Fprintf(&b, "- Affected descendants: %d\n", len(result.Affected))
	fmt.Fprintf(&b, "- Empty archives: %d\n", len(result.EmptyArchives))
	fmt.Fprintf(&b, "- Protected classes: %d\n", len(result.Protected))
	fmt.Fprintf(&b, "- At-risk protected classes: %d\n", len(result.AtRiskProtected))
	b.WriteString("\n")

	b.WriteString("## Classes to Remove\n\n")
	if len(result.Removed) == 0 {
		b.WriteString("None.\n\n")
	} else {
		for _, id := range result.Removed {
			fmt.Fprintf(&b, "- %s\n", id)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Orphaned Class Trees\n\n")
	if len(result.Orphaned) == 0 {
		b.WriteString("None.\n\n")
	} else {
		orphanSet := make(map[string]struct{}, len(result.Orphaned))
		for _, id := range result.Orphaned {
			orphanSet[id] = struct{}{}
		}
		// Every orphan id is a tree root, even when it also appears as a
		// descendant inside another orphan's tree. Such chains print twice,
		// once nested and once as their own root.
		for _, id := range result.Orphaned {
			writeOrphanTree(&b, classes, id, orphanSet, 0, map[string]struct{}{}, logger)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Empty Archives\n\n")
	if len(result.EmptyArchives) == 0 {
		b.WriteString("None.\n\n")
	} else {
		for _, id := range result.EmptyArchives {
			fmt.Fprintf(&b, "- %s\n", id)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Protected Classes\n\n")
	if len(result.Protected) == 0 {
		b.WriteString("None.\n\n")
	} else {
		for _, id := range result.Protected {
			fmt.Fprintf(&b, "- %s\n", id)
		}
		b.WriteString("\n")
	}

	b.WriteString("## At-Risk Protected Classes\n\n")
	if len(result.AtRiskProtected) == 0 {
		b.WriteString("None.\n\n")
	} else {
		b.WriteString("**Warning:** the following protected classes would be orphaned by this removal:\n\n")
		for _, id := range result.AtRiskProtected {
			fmt.Fprintf(&b, "- %s\n", id)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "---\n\nRun %s\n", result.RunID)

	return b.String()
}

// writeOrphanTree prints id and its recursive children as an indented list,
// tagging orphans. The path set breaks inheritance cycles so a malformed
// forest cannot recurse forever.
func writeOrphanTree(b *strings.Builder, classes *storage.ClassRepository, id string, orphans map[string]struct{}, depth int, path map[string]struct{}, logger *logging.Logger) {
	if _, looped := path[id]; looped {
		return
	}
	path[id] = struct{}{}
	defer delete(path, id)

	tag := ""
	if _, ok := orphans[id]; ok {
		tag = " (orphan)"
	}
	fmt.Fprintf(b, "%s- %s%s\n", strings.Repeat("  ", depth), id, tag)

	children, err := classes.GetChildren(id)
	if err != nil {
		logger.Warn("Failed to fetch children for report tree", map[string]interface{}{
			"class": id,
			"error": err.Error(),
		})
		return
	}
	for _, child := range children {
		writeOrphanTree(b, classes, child.ID, orphans, depth+1, path, logger)
	}
}
