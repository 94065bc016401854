package engine

import (
	"fmt"
	"log"
	"math"

	"github.com/credencelabs/credence/internal/model"
)

// confidenceEpsilon is the material-change threshold for reporting a concept
// as changed after retraction.
const confidenceEpsilon = 0.001

// RetractResult reports the outcome of a retraction request.
type RetractResult struct {
	Retracted bool            `json:"retracted"`
	EventType model.EventType `json:"event_type,omitempty"`
	// Changed lists the concept ids whose recomputed trust differs
	// materially (level change or confidence delta > 0.001) from the
	// stored state.
	Changed []string `json:"changed,omitempty"`
}

// Retract invalidates an event: the original record is flagged, never
// deleted; a permanent audit record is appended; and for verification
// events the trust state is recomputed from the remaining non-retracted
// history. Claim retractions never trigger recomputation since claims do
// not feed level or confidence.
//
// Retracting an unknown event id is a benign no-op reporting
// {Retracted: false}, not an error.
func (e *Engine) Retract(eventID string, reason model.RetractionReason, actor string) (*RetractResult, error) {
	if !model.ValidReason(reason) {
		return nil, fmt.Errorf("invalid retraction reason %q", reason)
	}

	ev, err := e.Store.GetVerification(eventID)
	if err != nil {
		return nil, err
	}
	if ev != nil {
		return e.retractVerification(ev, reason, actor)
	}

	claim, err := e.Store.GetClaim(eventID)
	if err != nil {
		return nil, err
	}
	if claim != nil {
		return e.retractClaim(claim, reason, actor)
	}

	return &RetractResult{Retracted: false}, nil
}

func (e *Engine) retractVerification(ev *model.VerificationEvent, reason model.RetractionReason, actor string) (*RetractResult, error) {
	prev, err := e.Store.GetTrustState(ev.PersonID, ev.ConceptID)
	if err != nil {
		return nil, err
	}

	if err := e.Store.MarkVerificationRetracted(ev.ID); err != nil {
		return nil, err
	}
	if err := e.Store.AppendRetraction(&model.Retraction{
		EventID:     ev.ID,
		EventType:   model.EventVerification,
		Reason:      reason,
		RetractedBy: actor,
	}); err != nil {
		return nil, err
	}

	ts, err := e.recomputeTrust(ev.PersonID, ev.ConceptID, false)
	if err != nil {
		return nil, err
	}

	result := &RetractResult{Retracted: true, EventType: model.EventVerification}
	if materiallyChanged(prev, ts) {
		result.Changed = []string{ev.ConceptID}
		log.Printf("retraction %s: trust for %s/%s now %s (%.3f)",
			ev.ID, ev.PersonID, ev.ConceptID, ts.Level, ts.Confidence)
	}
	return result, nil
}

func (e *Engine) retractClaim(claim *model.ClaimEvent, reason model.RetractionReason, actor string) (*RetractResult, error) {
	if err := e.Store.MarkClaimRetracted(claim.ID); err != nil {
		return nil, err
	}
	if err := e.Store.AppendRetraction(&model.Retraction{
		EventID:     claim.ID,
		EventType:   model.EventClaim,
		Reason:      reason,
		RetractedBy: actor,
	}); err != nil {
		return nil, err
	}
	return &RetractResult{Retracted: true, EventType: model.EventClaim}, nil
}

// materiallyChanged reports whether the recomputed state differs from the
// prior one by level or by more than the confidence epsilon.
func materiallyChanged(prev, next *model.TrustState) bool {
	if prev == nil {
		return next.Level != model.LevelUntested || next.Confidence > confidenceEpsilon
	}
	if prev.Level != next.Level {
		return true
	}
	return math.Abs(prev.Confidence-next.Confidence) > confidenceEpsilon
}
