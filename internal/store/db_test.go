package store

import (
	"testing"
)

func TestOpenMemory(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	if db.Path != ":memory:" {
		t.Errorf("Path = %q, want :memory:", db.Path)
	}
}

func TestSchemaVersion(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 5 {
		t.Errorf("SchemaVersion = %d, want 5", v)
	}
}

func TestTablesExist(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	tables := []string{
		"schema_versions", "concepts", "concept_edges",
		"verification_events", "claim_events", "trust_states",
		"retractions", "bundle_requirements",
	}
	for _, table := range tables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestResultConstraint(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		INSERT INTO verification_events (id, person_id, concept_id, modality, result, created_at)
		VALUES ('ev1', 'p1', 'c1', 'external:observed', 'demonstrated', 1000)
	`)
	if err != nil {
		t.Fatalf("valid insert failed: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO verification_events (id, person_id, concept_id, modality, result, created_at)
		VALUES ('ev2', 'p1', 'c1', 'external:observed', 'maybe', 1000)
	`)
	if err == nil {
		t.Error("expected error for invalid result, got nil")
	}
}

func TestRetractionReasonConstraint(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		INSERT INTO retractions (id, event_id, event_type, reason, retracted_by, created_at)
		VALUES ('r1', 'ev1', 'verification', 'changed_my_mind', 'admin', 1000)
	`)
	if err == nil {
		t.Error("expected error for invalid reason, got nil")
	}
}
