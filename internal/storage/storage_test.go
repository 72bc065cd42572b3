package storage

import (
	"path/filepath"
	"reflect"
	"testing"

	"cfgdb/internal/cfgerr"
	"cfgdb/internal/logging"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "classes.db")
	db, err := Open(dbPath, logging.Discard())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func strPtr(s string) *string { return &s }

func intPtr(i int64) *int64 { return &i }

func mustImport(t *testing.T, repo *ClassRepository, records []*ClassRecord) {
	t.Helper()
	if err := repo.BulkImport(records); err != nil {
		t.Fatalf("bulk import failed: %v", err)
	}
}

// forest used by most traversal tests:
//
//	Root
//	├── Mid
//	│   ├── LeafA
//	│   └── LeafB
//	└── Side
//	Other (second root)
func testForest() []*ClassRecord {
	return []*ClassRecord{
		{ID: "Root"},
		{ID: "Mid", ParentID: strPtr("Root")},
		{ID: "LeafA", ParentID: strPtr("Mid")},
		{ID: "LeafB", ParentID: strPtr("Mid")},
		{ID: "Side", ParentID: strPtr("Root")},
		{ID: "Other"},
	}
}

func TestOpenExistingMissingFile(t *testing.T) {
	_, err := OpenExisting(filepath.Join(t.TempDir(), "nope.db"), logging.Discard())
	if err == nil {
		t.Fatal("expected error for missing database file")
	}
	if !cfgerr.HasCode(err, cfgerr.NotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestOpenReopens(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "classes.db")
	logger := logging.Discard()

	db, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	repo := NewClassRepository(db)
	mustImport(t, repo, []*ClassRecord{{ID: "Persisted"}})
	if err := db.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	db2, err := OpenExisting(dbPath, logger)
	if err != nil {
		t.Fatalf("failed to reopen database: %v", err)
	}
	defer db2.Close()

	record, err := NewClassRepository(db2).Get("Persisted")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if record == nil {
		t.Fatal("expected record to survive reopen")
	}
}

func TestClassCRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClassRepository(db)

	t.Run("create requires id", func(t *testing.T) {
		err := repo.Create(&ClassRecord{})
		if !cfgerr.HasCode(err, cfgerr.InvalidData) {
			t.Errorf("expected INVALID_DATA, got %v", err)
		}
	})

	t.Run("create and get", func(t *testing.T) {
		record := &ClassRecord{
			ID:              "Soldier",
			ParentID:        strPtr("Man"),
			ContainerClass:  strPtr("CfgVehicles"),
			SourceFileIndex: intPtr(7),
		}
		if err := repo.Create(record); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		got, err := repo.Get("Soldier")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected record")
		}
		if !reflect.DeepEqual(got, record) {
			t.Errorf("got %+v, want %+v", got, record)
		}
	})

	t.Run("get missing returns nil", func(t *testing.T) {
		got, err := repo.Get("Nonexistent")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("create replaces existing id", func(t *testing.T) {
		if err := repo.Create(&ClassRecord{ID: "Soldier", ParentID: strPtr("CAManBase")}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		got, err := repo.Get("Soldier")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.ParentID == nil || *got.ParentID != "CAManBase" {
			t.Errorf("expected replaced parent, got %+v", got)
		}
	})

	t.Run("update missing returns NotFound", func(t *testing.T) {
		err := repo.Update(&ClassRecord{ID: "Ghost"})
		if !cfgerr.HasCode(err, cfgerr.NotFound) {
			t.Errorf("expected NOT_FOUND, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := repo.Delete("Soldier"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if err := repo.Delete("Soldier"); !cfgerr.HasCode(err, cfgerr.NotFound) {
			t.Errorf("expected NOT_FOUND on second delete, got %v", err)
		}
	})
}

func TestRootsAndChildren(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClassRepository(db)
	mustImport(t, repo, testForest())

	roots, err := repo.GetRootClasses()
	if err != nil {
		t.Fatalf("roots failed: %v", err)
	}
	if got := idsOf(roots); !reflect.DeepEqual(got, []string{"Other", "Root"}) {
		t.Errorf("roots = %v", got)
	}

	children, err := repo.GetChildren("Mid")
	if err != nil {
		t.Fatalf("children failed: %v", err)
	}
	if got := idsOf(children); !reflect.DeepEqual(got, []string{"LeafA", "LeafB"}) {
		t.Errorf("children = %v", got)
	}

	none, err := repo.GetChildren("LeafA")
	if err != nil {
		t.Fatalf("children failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no children, got %v", idsOf(none))
	}
}

func TestGetHierarchy(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClassRepository(db)
	mustImport(t, repo, testForest())

	t.Run("depth bound respected", func(t *testing.T) {
		nodes, err := repo.GetHierarchy("Root", 1)
		if err != nil {
			t.Fatalf("hierarchy failed: %v", err)
		}
		want := []string{"Root", "Mid", "Side"}
		if got := nodeIDs(nodes); !reflect.DeepEqual(got, want) {
			t.Errorf("nodes = %v, want %v", got, want)
		}
		for _, node := range nodes {
			if node.Depth > 1 {
				t.Errorf("node %s at depth %d exceeds bound", node.ID, node.Depth)
			}
		}
	})

	t.Run("sorted by depth then id", func(t *testing.T) {
		nodes, err := repo.GetHierarchy("Root", 10)
		if err != nil {
			t.Fatalf("hierarchy failed: %v", err)
		}
		want := []string{"Root", "Mid", "Side", "LeafA", "LeafB"}
		if got := nodeIDs(nodes); !reflect.DeepEqual(got, want) {
			t.Errorf("nodes = %v, want %v", got, want)
		}
	})

	t.Run("depth zero is root only", func(t *testing.T) {
		nodes, err := repo.GetHierarchy("Root", 0)
		if err != nil {
			t.Fatalf("hierarchy failed: %v", err)
		}
		if got := nodeIDs(nodes); !reflect.DeepEqual(got, []string{"Root"}) {
			t.Errorf("nodes = %v", got)
		}
	})

	t.Run("unknown root yields empty", func(t *testing.T) {
		nodes, err := repo.GetHierarchy("Ghost", 10)
		if err != nil {
			t.Fatalf("hierarchy failed: %v", err)
		}
		if len(nodes) != 0 {
			t.Errorf("expected empty, got %v", nodeIDs(nodes))
		}
	})

	t.Run("depth out of range rejected", func(t *testing.T) {
		if _, err := repo.GetHierarchy("Root", -1); !cfgerr.HasCode(err, cfgerr.InvalidData) {
			t.Errorf("expected INVALID_DATA for -1, got %v", err)
		}
		if _, err := repo.GetHierarchy("Root", 51); !cfgerr.HasCode(err, cfgerr.InvalidData) {
			t.Errorf("expected INVALID_DATA for 51, got %v", err)
		}
	})

	t.Run("cycle terminates at depth bound", func(t *testing.T) {
		mustImport(t, repo, []*ClassRecord{
			{ID: "CycleA", ParentID: strPtr("CycleB")},
			{ID: "CycleB", ParentID: strPtr("CycleA")},
		})
		nodes, err := repo.GetHierarchy("CycleA", 5)
		if err != nil {
			t.Fatalf("hierarchy failed: %v", err)
		}
		// Depth 0..5 alternating between the two nodes
		if len(nodes) != 6 {
			t.Errorf("expected 6 rows from cyclic walk, got %d", len(nodes))
		}
	})
}

func TestGetFullHierarchy(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClassRepository(db)

	t.Run("empty store yields empty", func(t *testing.T) {
		nodes, err := repo.GetFullHierarchy(10)
		if err != nil {
			t.Fatalf("full hierarchy failed: %v", err)
		}
		if len(nodes) != 0 {
			t.Errorf("expected empty, got %v", nodeIDs(nodes))
		}
	})

	mustImport(t, repo, testForest())

	t.Run("covers every root", func(t *testing.T) {
		nodes, err := repo.GetFullHierarchy(10)
		if err != nil {
			t.Fatalf("full hierarchy failed: %v", err)
		}
		want := []string{"Other", "Root", "Mid", "Side", "LeafA", "LeafB"}
		if got := nodeIDs(nodes); !reflect.DeepEqual(got, want) {
			t.Errorf("nodes = %v, want %v", got, want)
		}
	})

	t.Run("single root matches GetHierarchy", func(t *testing.T) {
		if err := repo.Delete("Other"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		full, err := repo.GetFullHierarchy(10)
		if err != nil {
			t.Fatalf("full hierarchy failed: %v", err)
		}
		single, err := repo.GetHierarchy("Root", 10)
		if err != nil {
			t.Fatalf("hierarchy failed: %v", err)
		}
		if !reflect.DeepEqual(nodeIDs(full), nodeIDs(single)) {
			t.Errorf("full = %v, single = %v", nodeIDs(full), nodeIDs(single))
		}
	})
}

func TestFindOrphanedByParentRemoval(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClassRepository(db)
	mustImport(t, repo, testForest())

	t.Run("empty input yields empty", func(t *testing.T) {
		orphans, err := repo.FindOrphanedByParentRemoval(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(orphans) != 0 {
			t.Errorf("expected no orphans, got %v", idsOf(orphans))
		}
	})

	t.Run("direct children only", func(t *testing.T) {
		orphans, err := repo.FindOrphanedByParentRemoval([]string{"Root"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := idsOf(orphans); !reflect.DeepEqual(got, []string{"Mid", "Side"}) {
			t.Errorf("orphans = %v", got)
		}
	})
}

func TestFindAffectedChildren(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClassRepository(db)
	mustImport(t, repo, testForest())

	t.Run("excludes the inputs themselves", func(t *testing.T) {
		affected, err := repo.FindAffectedChildren([]string{"Mid", "Side"}, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := idsOf(affected); !reflect.DeepEqual(got, []string{"LeafA", "LeafB"}) {
			t.Errorf("affected = %v", got)
		}
	})

	t.Run("input reachable from another input stays excluded", func(t *testing.T) {
		// Mid is a descendant of Root, but both are inputs
		affected, err := repo.FindAffectedChildren([]string{"Root", "Mid"}, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, record := range affected {
			if record.ID == "Root" || record.ID == "Mid" {
				t.Errorf("input id %s leaked into affected set", record.ID)
			}
		}
	})

	t.Run("depth bound limits descent", func(t *testing.T) {
		affected, err := repo.FindAffectedChildren([]string{"Root"}, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := idsOf(affected); !reflect.DeepEqual(got, []string{"Mid", "Side"}) {
			t.Errorf("affected = %v", got)
		}
	})
}

func TestBulkImport(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClassRepository(db)

	t.Run("empty import is a no-op", func(t *testing.T) {
		if err := repo.BulkImport(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("import twice replaces in place", func(t *testing.T) {
		mustImport(t, repo, testForest())
		mustImport(t, repo, testForest())

		all, err := repo.GetAll()
		if err != nil {
			t.Fatalf("get all failed: %v", err)
		}
		if len(all) != len(testForest()) {
			t.Errorf("expected %d classes after re-import, got %d", len(testForest()), len(all))
		}
	})

	t.Run("invalid record rolls back the batch", func(t *testing.T) {
		if err := repo.ClearAll(); err != nil {
			t.Fatalf("clear failed: %v", err)
		}
		err := repo.BulkImport([]*ClassRecord{{ID: "Good"}, {ID: ""}})
		if !cfgerr.HasCode(err, cfgerr.InvalidData) {
			t.Fatalf("expected INVALID_DATA, got %v", err)
		}
		got, err := repo.Get("Good")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got != nil {
			t.Error("expected rollback to discard the whole batch")
		}
	})
}

func TestChunkIDs(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}

	chunks := ChunkIDs(ids, 2)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if !reflect.DeepEqual(chunks[2], []string{"e"}) {
		t.Errorf("last chunk = %v", chunks[2])
	}

	if got := ChunkIDs(nil, 2); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}

	// Non-positive size falls back to the default ceiling
	if got := ChunkIDs(ids, 0); len(got) != 1 {
		t.Errorf("expected a single chunk, got %d", len(got))
	}
}

func TestPlaceholders(t *testing.T) {
	if got := placeholders(3); got != "?,?,?" {
		t.Errorf("placeholders(3) = %q", got)
	}
	if got := placeholders(0); got != "" {
		t.Errorf("placeholders(0) = %q", got)
	}
}

func idsOf(records []*ClassRecord) []string {
	ids := make([]string, len(records))
	for i, record := range records {
		ids[i] = record.ID
	}
	return ids
}

func nodeIDs(nodes []*HierarchyNode) []string {
	ids := make([]string, len(nodes))
	for i, node := range nodes {
		ids[i] = node.ID
	}
	return ids
}
