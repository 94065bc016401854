package engine

import (
	"testing"

	"github.com/credencelabs/credence/internal/model"
)

func TestPropagateFillsUntestedNeighbors(t *testing.T) {
	e, db := testEngine(t)
	seedConcept(t, db, "goroutines")
	seedConcept(t, db, "channels")
	seedEdge(t, db, "goroutines", "channels", model.EdgePrerequisite, 0.8)

	record(t, e, "ada", "goroutines", model.ModalityApplication, model.ResultDemonstrated, 1000)

	updated, err := e.Propagate("ada", "goroutines")
	if err != nil {
		t.Fatal(err)
	}
	if len(updated) != 1 {
		t.Fatalf("got %d updated states, want 1", len(updated))
	}

	ts := updated[0]
	if ts.ConceptID != "channels" || ts.Level != model.LevelInferred {
		t.Errorf("got %+v", ts)
	}
	// 0.9 source confidence x 0.8 edge strength x 0.5 attenuation.
	if !almostEqual(ts.Confidence, 0.36) {
		t.Errorf("confidence = %v, want 0.36", ts.Confidence)
	}
	if len(ts.InferredFrom) != 1 || ts.InferredFrom[0] != "goroutines" {
		t.Errorf("inferredFrom = %v", ts.InferredFrom)
	}
}

func TestPropagateNeverOverwritesDirectEvidence(t *testing.T) {
	e, db := testEngine(t)
	seedConcept(t, db, "goroutines")
	seedConcept(t, db, "channels")
	seedEdge(t, db, "goroutines", "channels", model.EdgePrerequisite, 0.9)

	record(t, e, "ada", "goroutines", model.ModalityApplication, model.ResultDemonstrated, 1000)
	record(t, e, "ada", "channels", model.ModalityObserved, model.ResultFailed, 2000)

	updated, err := e.Propagate("ada", "goroutines")
	if err != nil {
		t.Fatal(err)
	}
	if len(updated) != 0 {
		t.Errorf("propagation overwrote direct evidence: %+v", updated)
	}

	ts, _ := e.Store.GetTrustState("ada", "channels")
	if ts.Level != model.LevelUntested {
		t.Errorf("direct state mutated to %s", ts.Level)
	}
}

func TestPropagateDiscardsBelowThreshold(t *testing.T) {
	e, db := testEngine(t)
	seedConcept(t, db, "goroutines")
	seedConcept(t, db, "channels")
	// 0.9 x 0.2 x 0.5 = 0.09, under the 0.1 threshold.
	seedEdge(t, db, "goroutines", "channels", model.EdgePrerequisite, 0.2)

	record(t, e, "ada", "goroutines", model.ModalityApplication, model.ResultDemonstrated, 1000)

	updated, err := e.Propagate("ada", "goroutines")
	if err != nil {
		t.Fatal(err)
	}
	if len(updated) != 0 {
		t.Errorf("sub-threshold signal was written: %+v", updated)
	}
	ts, _ := e.Store.GetTrustState("ada", "channels")
	if ts != nil {
		t.Errorf("unexpected state for channels: %+v", ts)
	}
}

func TestPropagateMultiHopAttenuates(t *testing.T) {
	e, db := testEngine(t)
	seedConcept(t, db, "goroutines")
	seedConcept(t, db, "channels")
	seedConcept(t, db, "select")
	seedEdge(t, db, "goroutines", "channels", model.EdgePrerequisite, 1.0)
	seedEdge(t, db, "channels", "select", model.EdgePrerequisite, 1.0)

	record(t, e, "ada", "goroutines", model.ModalityApplication, model.ResultDemonstrated, 1000)

	updated, err := e.Propagate("ada", "goroutines")
	if err != nil {
		t.Fatal(err)
	}
	if len(updated) != 2 {
		t.Fatalf("got %d updated states, want 2", len(updated))
	}
	byConcept := map[string]model.TrustState{}
	for _, ts := range updated {
		byConcept[ts.ConceptID] = ts
	}
	if !almostEqual(byConcept["channels"].Confidence, 0.45) {
		t.Errorf("one hop = %v, want 0.45", byConcept["channels"].Confidence)
	}
	if !almostEqual(byConcept["select"].Confidence, 0.225) {
		t.Errorf("two hops = %v, want 0.225", byConcept["select"].Confidence)
	}
}

func TestPropagateCycleSafe(t *testing.T) {
	e, db := testEngine(t)
	seedConcept(t, db, "a")
	seedConcept(t, db, "b")
	seedEdge(t, db, "a", "b", model.EdgePrerequisite, 1.0)
	seedEdge(t, db, "b", "a", model.EdgePrerequisite, 1.0)

	record(t, e, "ada", "a", model.ModalityApplication, model.ResultDemonstrated, 1000)

	updated, err := e.Propagate("ada", "a")
	if err != nil {
		t.Fatal(err)
	}
	// The cycle must terminate and never feed back into the source.
	if len(updated) != 1 || updated[0].ConceptID != "b" {
		t.Errorf("got %+v", updated)
	}
	src, _ := e.Store.GetTrustState("ada", "a")
	if src.Level != model.LevelVerified {
		t.Errorf("source state mutated to %s", src.Level)
	}
}

func TestContestedPropagatesBackward(t *testing.T) {
	e, db := testEngine(t)
	seedConcept(t, db, "pointers")
	seedConcept(t, db, "slices")
	seedEdge(t, db, "pointers", "slices", model.EdgePrerequisite, 0.8)

	// Mixed evidence on the dependent concept makes it contested.
	record(t, e, "ada", "slices", model.ModalityObserved, model.ResultDemonstrated, 1000)
	record(t, e, "ada", "slices", model.ModalityObserved, model.ResultFailed, 2000)

	updated, err := e.Propagate("ada", "slices")
	if err != nil {
		t.Fatal(err)
	}
	if len(updated) != 1 {
		t.Fatalf("got %d updated states, want 1", len(updated))
	}
	ts := updated[0]
	if ts.ConceptID != "pointers" || ts.Level != model.LevelContested {
		t.Errorf("got %+v", ts)
	}
	// 0.5 contested confidence x 0.8 strength x 0.5 attenuation x 1.5 failure multiplier.
	if !almostEqual(ts.Confidence, 0.3) {
		t.Errorf("confidence = %v, want 0.3", ts.Confidence)
	}
}

func TestPropagateFromUntestedSourceIsNoop(t *testing.T) {
	e, db := testEngine(t)
	seedConcept(t, db, "goroutines")

	updated, err := e.Propagate("ada", "goroutines")
	if err != nil {
		t.Fatal(err)
	}
	if updated != nil {
		t.Errorf("got %+v, want nil", updated)
	}
}
