package store

import (
	"testing"

	"github.com/credencelabs/credence/internal/model"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustConcept(t *testing.T, db *DB, id, name string) {
	t.Helper()
	if err := db.UpsertConcept(&model.Concept{ID: id, Name: name}); err != nil {
		t.Fatalf("UpsertConcept(%s): %v", id, err)
	}
}

func mustEdge(t *testing.T, db *DB, from, to string, typ model.EdgeType, strength float64) {
	t.Helper()
	err := db.InsertEdge(&model.Edge{
		FromConceptID:     from,
		ToConceptID:       to,
		Type:              typ,
		InferenceStrength: strength,
	})
	if err != nil {
		t.Fatalf("InsertEdge(%s->%s): %v", from, to, err)
	}
}

func TestUpsertConcept(t *testing.T) {
	db := testDB(t)

	c := &model.Concept{ID: "goroutines", Name: "Goroutines", Domain: "go"}
	if err := db.UpsertConcept(c); err != nil {
		t.Fatalf("UpsertConcept: %v", err)
	}

	got, err := db.GetConcept("goroutines")
	if err != nil {
		t.Fatalf("GetConcept: %v", err)
	}
	if got == nil || got.Name != "Goroutines" {
		t.Fatalf("GetConcept = %+v, want name Goroutines", got)
	}

	// Re-insertion replaces the mutable fields
	c.Name = "Goroutines & Scheduling"
	if err := db.UpsertConcept(c); err != nil {
		t.Fatalf("UpsertConcept update: %v", err)
	}
	got, _ = db.GetConcept("goroutines")
	if got.Name != "Goroutines & Scheduling" {
		t.Errorf("name after upsert = %q", got.Name)
	}
}

func TestGetConceptMissing(t *testing.T) {
	db := testDB(t)
	got, err := db.GetConcept("nope")
	if err != nil {
		t.Fatalf("GetConcept: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing concept, got %+v", got)
	}
}

func TestConceptsByDomain(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertConcept(&model.Concept{ID: "a", Name: "A", Domain: "go"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertConcept(&model.Concept{ID: "b", Name: "B", Domain: "go"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertConcept(&model.Concept{ID: "c", Name: "C", Domain: "sql"}); err != nil {
		t.Fatal(err)
	}

	got, err := db.ConceptsByDomain("go")
	if err != nil {
		t.Fatalf("ConceptsByDomain: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d concepts, want 2", len(got))
	}
}

func TestEdges(t *testing.T) {
	db := testDB(t)
	mustConcept(t, db, "a", "A")
	mustConcept(t, db, "b", "B")

	mustEdge(t, db, "a", "b", model.EdgePrerequisite, 0.8)
	// Duplicate edges between the same pair are permitted
	mustEdge(t, db, "a", "b", model.EdgeRelatedTo, 0.5)

	out, err := db.OutgoingEdges("a")
	if err != nil {
		t.Fatalf("OutgoingEdges: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d outgoing edges, want 2", len(out))
	}

	in, err := db.IncomingEdges("b")
	if err != nil {
		t.Fatalf("IncomingEdges: %v", err)
	}
	if len(in) != 2 {
		t.Errorf("got %d incoming edges, want 2", len(in))
	}
}

func TestDownstreamDependentsTransitive(t *testing.T) {
	db := testDB(t)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		mustConcept(t, db, id, id)
	}
	// a -> b -> c (prerequisite chain), a -> d via related_to (not counted)
	mustEdge(t, db, "a", "b", model.EdgePrerequisite, 0.8)
	mustEdge(t, db, "b", "c", model.EdgePrerequisite, 0.8)
	mustEdge(t, db, "a", "d", model.EdgeRelatedTo, 0.5)

	deps, err := db.DownstreamDependents("a")
	if err != nil {
		t.Fatalf("DownstreamDependents: %v", err)
	}
	if len(deps) != 2 {
		t.Fatalf("got %v, want [b c]", deps)
	}
}

func TestDownstreamDependentsCycle(t *testing.T) {
	db := testDB(t)
	for _, id := range []string{"a", "b"} {
		mustConcept(t, db, id, id)
	}
	mustEdge(t, db, "a", "b", model.EdgePrerequisite, 0.8)
	mustEdge(t, db, "b", "a", model.EdgePrerequisite, 0.8)

	deps, err := db.DownstreamDependents("a")
	if err != nil {
		t.Fatalf("DownstreamDependents: %v", err)
	}
	if len(deps) != 1 || deps[0] != "b" {
		t.Errorf("got %v, want [b]", deps)
	}
}

func TestSaveGraphAndBundles(t *testing.T) {
	db := testDB(t)

	minConf := 0.6
	err := db.SaveGraph(
		[]model.Concept{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
		[]model.Edge{{FromConceptID: "a", ToConceptID: "b", Type: model.EdgePrerequisite, InferenceStrength: 0.7}},
		map[string][]model.BundleRequirement{
			"basics": {{ConceptID: "a", MinLevel: model.LevelVerified, MinConfidence: &minConf}},
		},
	)
	if err != nil {
		t.Fatalf("SaveGraph: %v", err)
	}

	if got, _ := db.GetConcept("b"); got == nil {
		t.Error("concept b not saved")
	}
	out, _ := db.OutgoingEdges("a")
	if len(out) != 1 {
		t.Errorf("got %d edges, want 1", len(out))
	}

	reqs, err := db.BundleRequirements("basics")
	if err != nil {
		t.Fatalf("BundleRequirements: %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("got %d requirements, want 1", len(reqs))
	}
	if reqs[0].MinConfidence == nil || *reqs[0].MinConfidence != 0.6 {
		t.Errorf("min confidence = %v, want 0.6", reqs[0].MinConfidence)
	}
}
