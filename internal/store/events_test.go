package store

import (
	"testing"

	"github.com/credencelabs/credence/internal/model"
)

func TestAppendAndGetVerification(t *testing.T) {
	db := testDB(t)

	ev := &model.VerificationEvent{
		PersonID:  "ada",
		ConceptID: "goroutines",
		Modality:  model.ModalityObserved,
		Result:    model.ResultDemonstrated,
		Context:   "code review",
	}
	if err := db.AppendVerification(ev); err != nil {
		t.Fatalf("AppendVerification: %v", err)
	}
	if ev.ID == "" {
		t.Fatal("expected generated event id")
	}

	got, err := db.GetVerification(ev.ID)
	if err != nil {
		t.Fatalf("GetVerification: %v", err)
	}
	if got == nil || got.Result != model.ResultDemonstrated || got.Retracted {
		t.Errorf("got %+v", got)
	}
}

func TestVerificationHistoryExcludesRetracted(t *testing.T) {
	db := testDB(t)

	ev1 := &model.VerificationEvent{PersonID: "ada", ConceptID: "c", Modality: model.ModalityObserved, Result: model.ResultDemonstrated, CreatedAt: 1000}
	ev2 := &model.VerificationEvent{PersonID: "ada", ConceptID: "c", Modality: model.ModalityRecall, Result: model.ResultFailed, CreatedAt: 2000}
	for _, ev := range []*model.VerificationEvent{ev1, ev2} {
		if err := db.AppendVerification(ev); err != nil {
			t.Fatal(err)
		}
	}

	if err := db.MarkVerificationRetracted(ev2.ID); err != nil {
		t.Fatalf("MarkVerificationRetracted: %v", err)
	}

	history, err := db.VerificationHistory("ada", "c")
	if err != nil {
		t.Fatalf("VerificationHistory: %v", err)
	}
	if len(history) != 1 || history[0].ID != ev1.ID {
		t.Errorf("history = %+v, want only ev1", history)
	}

	// The retracted event is still retrievable, flagged
	got, _ := db.GetVerification(ev2.ID)
	if got == nil || !got.Retracted {
		t.Errorf("retracted event = %+v, want retracted=true", got)
	}
}

func TestClaims(t *testing.T) {
	db := testDB(t)

	c1 := &model.ClaimEvent{PersonID: "ada", ConceptID: "c", Confidence: 0.8, CreatedAt: 1000}
	c2 := &model.ClaimEvent{PersonID: "ada", ConceptID: "d", Confidence: 0.4, CreatedAt: 2000}
	for _, c := range []*model.ClaimEvent{c1, c2} {
		if err := db.AppendClaim(c); err != nil {
			t.Fatal(err)
		}
	}

	if err := db.MarkClaimRetracted(c2.ID); err != nil {
		t.Fatalf("MarkClaimRetracted: %v", err)
	}

	claims, err := db.ClaimsByPerson("ada")
	if err != nil {
		t.Fatalf("ClaimsByPerson: %v", err)
	}
	if len(claims) != 1 || claims[0].ID != c1.ID {
		t.Errorf("claims = %+v, want only c1", claims)
	}
}

func TestRetractionAuditTrail(t *testing.T) {
	db := testDB(t)

	r := &model.Retraction{
		EventID:     "ev-123",
		EventType:   model.EventVerification,
		Reason:      model.ReasonDuplicate,
		RetractedBy: "admin",
	}
	if err := db.AppendRetraction(r); err != nil {
		t.Fatalf("AppendRetraction: %v", err)
	}
	if r.ID == "" {
		t.Fatal("expected generated retraction id")
	}

	recs, err := db.RetractionsForEvent("ev-123")
	if err != nil {
		t.Fatalf("RetractionsForEvent: %v", err)
	}
	if len(recs) != 1 || recs[0].Reason != model.ReasonDuplicate {
		t.Errorf("retractions = %+v", recs)
	}
}
