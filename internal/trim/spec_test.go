package trim

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"cfgdb/internal/logging"
	"cfgdb/internal/storage"
)

func TestParseSpec(t *testing.T) {
	input := `
# removal list for the next release
OldTank
OldPlane

+KeepMe
+Keep.*
Old.*
(?<=Legacy)Unit
`
	spec, err := ParseSpec(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if !reflect.DeepEqual(spec.RemoveLiterals, []string{"OldTank", "OldPlane"}) {
		t.Errorf("remove literals = %v", spec.RemoveLiterals)
	}
	if !reflect.DeepEqual(spec.RemovePatterns, []string{"Old.*", "(?<=Legacy)Unit"}) {
		t.Errorf("remove patterns = %v", spec.RemovePatterns)
	}
	if !reflect.DeepEqual(spec.ProtectLiterals, []string{"KeepMe"}) {
		t.Errorf("protect literals = %v", spec.ProtectLiterals)
	}
	if !reflect.DeepEqual(spec.ProtectPatterns, []string{"Keep.*"}) {
		t.Errorf("protect patterns = %v", spec.ProtectPatterns)
	}
}

func TestParseSpecBarePlus(t *testing.T) {
	spec, err := ParseSpec(strings.NewReader("+\n+   \nReal\n"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(spec.ProtectLiterals) != 0 || len(spec.ProtectPatterns) != 0 {
		t.Errorf("bare + lines should be skipped, got %+v", spec)
	}
	if !reflect.DeepEqual(spec.RemoveLiterals, []string{"Real"}) {
		t.Errorf("remove literals = %v", spec.RemoveLiterals)
	}
}

func TestIsPattern(t *testing.T) {
	cases := map[string]bool{
		"PlainId":        false,
		"Old.*":          true,
		"Tank?":          true,
		"A|B":            true,
		"(?<=Legacy)X":   true,
		"Weird?<Thing":   true,
		"Escaped\\d":     true,
		"Bracket[0-9]":   true,
		"Caret^":         true,
		"Dollar$":        true,
		"Plus+":          true,
		"Under_score_Id": false,
	}
	for entry, want := range cases {
		if got := isPattern(entry); got != want {
			t.Errorf("isPattern(%q) = %v, want %v", entry, got, want)
		}
	}
}

func setupTestClasses(t *testing.T, ids ...string) *storage.ClassRepository {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "classes.db"), logging.Discard())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := storage.NewClassRepository(db)
	records := make([]*storage.ClassRecord, len(ids))
	for i, id := range ids {
		records[i] = &storage.ClassRecord{ID: id}
	}
	if err := repo.BulkImport(records); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return repo
}

func TestExpand(t *testing.T) {
	classes := setupTestClasses(t, "OldTank", "OldPlane", "KeepOld", "NewTank")
	logger := logging.Discard()

	t.Run("patterns match against stored ids", func(t *testing.T) {
		spec := &Spec{RemovePatterns: []string{"^Old.*"}}
		removals, protected, err := Expand(spec, classes, logger)
		if err != nil {
			t.Fatalf("expand failed: %v", err)
		}
		if !reflect.DeepEqual(removals, []string{"OldPlane", "OldTank"}) {
			t.Errorf("removals = %v", removals)
		}
		if len(protected) != 0 {
			t.Errorf("protected = %v", protected)
		}
	})

	t.Run("protection wins over removal", func(t *testing.T) {
		spec := &Spec{
			RemovePatterns:  []string{".*Old.*"},
			ProtectLiterals: []string{"KeepOld"},
		}
		removals, protected, err := Expand(spec, classes, logger)
		if err != nil {
			t.Fatalf("expand failed: %v", err)
		}
		if !reflect.DeepEqual(removals, []string{"OldPlane", "OldTank"}) {
			t.Errorf("removals = %v", removals)
		}
		if !reflect.DeepEqual(protected, []string{"KeepOld"}) {
			t.Errorf("protected = %v", protected)
		}
	})

	t.Run("protected pattern shields its matches", func(t *testing.T) {
		spec := &Spec{
			RemoveLiterals:  []string{"KeepOld", "OldTank"},
			ProtectPatterns: []string{"^Keep.*"},
		}
		removals, protected, err := Expand(spec, classes, logger)
		if err != nil {
			t.Fatalf("expand failed: %v", err)
		}
		if !reflect.DeepEqual(removals, []string{"OldTank"}) {
			t.Errorf("removals = %v", removals)
		}
		if !reflect.DeepEqual(protected, []string{"KeepOld"}) {
			t.Errorf("protected = %v", protected)
		}
	})

	t.Run("bad pattern contributes nothing", func(t *testing.T) {
		spec := &Spec{
			RemoveLiterals: []string{"NewTank"},
			RemovePatterns: []string{"(unclosed"},
		}
		removals, _, err := Expand(spec, classes, logger)
		if err != nil {
			t.Fatalf("expand should tolerate a bad pattern: %v", err)
		}
		if !reflect.DeepEqual(removals, []string{"NewTank"}) {
			t.Errorf("removals = %v", removals)
		}
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		spec := &Spec{
			RemoveLiterals: []string{"OldTank", "OldTank"},
			RemovePatterns: []string{"^OldTank$"},
		}
		removals, _, err := Expand(spec, classes, logger)
		if err != nil {
			t.Fatalf("expand failed: %v", err)
		}
		if !reflect.DeepEqual(removals, []string{"OldTank"}) {
			t.Errorf("removals = %v", removals)
		}
	})

	t.Run("lookbehind pattern works", func(t *testing.T) {
		lookbehind := setupTestClasses(t, "LegacyUnit", "ModernUnit")
		spec := &Spec{RemovePatterns: []string{"(?<=Legacy)Unit"}}
		removals, _, err := Expand(spec, lookbehind, logger)
		if err != nil {
			t.Fatalf("expand failed: %v", err)
		}
		if !reflect.DeepEqual(removals, []string{"LegacyUnit"}) {
			t.Errorf("removals = %v", removals)
		}
	})
}
