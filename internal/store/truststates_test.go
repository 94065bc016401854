package store

import (
	"testing"

	"github.com/credencelabs/credence/internal/model"
)

func TestUpsertTrustStateRoundtrip(t *testing.T) {
	db := testDB(t)

	lastVerified := int64(5000)
	gap := 0.3
	ts := &model.TrustState{
		PersonID:         "ada",
		ConceptID:        "goroutines",
		Level:            model.LevelVerified,
		Confidence:       0.75,
		LastVerified:     &lastVerified,
		ModalitiesTested: []model.Modality{model.ModalityObserved, model.ModalityRecall},
		InferredFrom:     []string{"channels"},
		CalibrationGap:   &gap,
	}
	if err := db.UpsertTrustState(ts); err != nil {
		t.Fatalf("UpsertTrustState: %v", err)
	}

	got, err := db.GetTrustState("ada", "goroutines")
	if err != nil {
		t.Fatalf("GetTrustState: %v", err)
	}
	if got == nil {
		t.Fatal("state not found")
	}
	if got.Level != model.LevelVerified || got.Confidence != 0.75 {
		t.Errorf("got level=%s conf=%v", got.Level, got.Confidence)
	}
	if got.LastVerified == nil || *got.LastVerified != 5000 {
		t.Errorf("lastVerified = %v", got.LastVerified)
	}
	if len(got.ModalitiesTested) != 2 {
		t.Errorf("modalities = %v", got.ModalitiesTested)
	}
	if len(got.InferredFrom) != 1 || got.InferredFrom[0] != "channels" {
		t.Errorf("inferredFrom = %v", got.InferredFrom)
	}
	if got.CalibrationGap == nil || *got.CalibrationGap != 0.3 {
		t.Errorf("calibrationGap = %v", got.CalibrationGap)
	}
}

func TestUpsertTrustStateReplaces(t *testing.T) {
	db := testDB(t)

	ts := &model.TrustState{PersonID: "ada", ConceptID: "c", Level: model.LevelVerified, Confidence: 0.6}
	if err := db.UpsertTrustState(ts); err != nil {
		t.Fatal(err)
	}

	ts.Level = model.LevelContested
	ts.Confidence = 0.4
	if err := db.UpsertTrustState(ts); err != nil {
		t.Fatal(err)
	}

	got, _ := db.GetTrustState("ada", "c")
	if got.Level != model.LevelContested || got.Confidence != 0.4 {
		t.Errorf("got %+v after replace", got)
	}
}

func TestGetTrustStateMissing(t *testing.T) {
	db := testDB(t)
	got, err := db.GetTrustState("nobody", "nothing")
	if err != nil {
		t.Fatalf("GetTrustState: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestTrustStatesByPerson(t *testing.T) {
	db := testDB(t)

	for _, concept := range []string{"a", "b", "c"} {
		ts := &model.TrustState{PersonID: "ada", ConceptID: concept, Level: model.LevelVerified, Confidence: 0.5}
		if err := db.UpsertTrustState(ts); err != nil {
			t.Fatal(err)
		}
	}
	other := &model.TrustState{PersonID: "bob", ConceptID: "a", Level: model.LevelUntested}
	if err := db.UpsertTrustState(other); err != nil {
		t.Fatal(err)
	}

	states, err := db.TrustStatesByPerson("ada")
	if err != nil {
		t.Fatalf("TrustStatesByPerson: %v", err)
	}
	if len(states) != 3 {
		t.Errorf("got %d states, want 3", len(states))
	}

	all, err := db.AllTrustStates()
	if err != nil {
		t.Fatalf("AllTrustStates: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("got %d total states, want 4", len(all))
	}
}
