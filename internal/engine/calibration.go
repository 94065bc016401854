package engine

import (
	"fmt"
	"math"

	"github.com/credencelabs/credence/internal/model"
)

// CalibrationReport aggregates, per person, how well self-reports track
// evidence.
type CalibrationReport struct {
	PersonID string `json:"person_id"`
	// ClaimCount is the number of non-retracted claims consulted.
	ClaimCount int `json:"claim_count"`
	// PredictionAccuracy is 1 minus the average absolute gap between
	// self-reported confidence and evidence-based decayed confidence at
	// claim time. Zero when no claims exist.
	PredictionAccuracy float64 `json:"prediction_accuracy"`
	// CalibrationScore is the fraction of claims within 0.2 of the
	// evidence-based confidence at claim time.
	CalibrationScore float64 `json:"calibration_score"`
	// StalenessPct is the fraction of verified concepts whose last
	// verification exceeds the freshness window.
	StalenessPct   float64 `json:"staleness_pct"`
	Recommendation string  `json:"recommendation"`
}

// wellCalibratedGap is the absolute gap under which a claim counts as
// well calibrated.
const wellCalibratedGap = 0.2

// Calibration computes the self-report-versus-evidence report for a person
// as of the given timestamp. Degrades gracefully: a person with zero events
// gets a zero-sample report, never an error.
func (e *Engine) Calibration(personID string, asOf int64) (*CalibrationReport, error) {
	claims, err := e.Store.ClaimsByPerson(personID)
	if err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}

	report := &CalibrationReport{PersonID: personID}

	var gapSum float64
	wellCalibrated := 0
	for _, claim := range claims {
		evidence, err := e.evidenceConfidenceAt(claim.PersonID, claim.ConceptID, claim.CreatedAt)
		if err != nil {
			return nil, err
		}
		gap := math.Abs(claim.Confidence - evidence)
		gapSum += gap
		if gap <= wellCalibratedGap {
			wellCalibrated++
		}
	}
	report.ClaimCount = len(claims)
	if len(claims) > 0 {
		report.PredictionAccuracy = 1 - gapSum/float64(len(claims))
		report.CalibrationScore = float64(wellCalibrated) / float64(len(claims))
	}

	report.StalenessPct, err = e.staleness(personID, asOf)
	if err != nil {
		return nil, err
	}

	report.Recommendation = recommend(report)
	return report, nil
}

// evidenceConfidenceAt replays the verification history up to a timestamp
// and decays the result to that moment. Exact rather than approximate:
// the projection is rebuildable from events alone.
func (e *Engine) evidenceConfidenceAt(personID, conceptID string, at int64) (float64, error) {
	history, err := e.Store.VerificationHistory(personID, conceptID)
	if err != nil {
		return 0, err
	}
	var upTo []model.VerificationEvent
	for _, ev := range history {
		if ev.CreatedAt <= at {
			upTo = append(upTo, ev)
		}
	}
	if len(upTo) == 0 {
		return 0, nil
	}

	_, confidence := computeTrustFromHistory(upTo, nil, e.Params)
	halfLife := e.Params.halfLifeDays(len(distinctModalities(upTo)), e.downstreamCount(conceptID))
	return decayedConfidence(confidence, lastVerifiedAt(upTo), at, halfLife), nil
}

// staleness returns the fraction of the person's verified concepts whose
// last verification is older than the freshness window.
func (e *Engine) staleness(personID string, asOf int64) (float64, error) {
	states, err := e.Store.TrustStatesByPerson(personID)
	if err != nil {
		return 0, err
	}

	window := int64(e.Params.StalenessWindowDays * dayMillis)
	verified := 0
	stale := 0
	for _, ts := range states {
		if ts.LastVerified == nil {
			continue
		}
		verified++
		if asOf-*ts.LastVerified > window {
			stale++
		}
	}
	if verified == 0 {
		return 0, nil
	}
	return float64(stale) / float64(verified), nil
}

func recommend(r *CalibrationReport) string {
	switch {
	case r.ClaimCount == 0:
		return "No claim history yet. Self-assessments paired with verification attempts would establish a calibration baseline."
	case r.PredictionAccuracy < 0.5:
		return "Self-reports diverge sharply from demonstrated evidence. Treat claimed confidence as unreliable and verify before relying on it."
	case r.StalenessPct > 0.5:
		return "Most verified concepts are stale. Re-verification would restore confidence in the recorded trust levels."
	case r.PredictionAccuracy < 0.8:
		return "Self-reports are loosely calibrated. Spot-check claims on high-stakes concepts."
	default:
		return "Self-reports track evidence well. Current verification cadence is adequate."
	}
}
