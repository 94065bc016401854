package engine

import (
	"fmt"

	"github.com/credencelabs/credence/internal/model"
)

// DecisionKind classifies which engine decision an explanation covers.
type DecisionKind string

const (
	DecisionTrustUpdate DecisionKind = "trust_update"
	DecisionPropagation DecisionKind = "propagation"
	DecisionDecay       DecisionKind = "decay"
	DecisionContested   DecisionKind = "contested"
	DecisionCalibration DecisionKind = "calibration"
)

// Alternative is an interpretation that was considered and rejected.
// A decision without visible alternatives is not auditable.
type Alternative struct {
	Interpretation string `json:"interpretation"`
	RejectedReason string `json:"rejected_reason"`
}

// Explanation is a structured rationale for an engine decision: the
// human-readable reasoning, the raw inputs consulted, a confidence figure
// matching the decision's own computed confidence, and the alternatives
// that were rejected.
type Explanation struct {
	Kind         DecisionKind   `json:"kind"`
	Reasoning    string         `json:"reasoning"`
	Inputs       map[string]any `json:"inputs"`
	Confidence   float64        `json:"confidence"`
	Alternatives []Alternative  `json:"alternatives"`
}

// ExplainTrustUpdate builds the rationale behind a scored trust state.
func (e *Engine) ExplainTrustUpdate(ts *model.TrustState, history []model.VerificationEvent) *Explanation {
	demonstrated, failed, partial := 0, 0, 0
	for _, ev := range history {
		switch ev.Result {
		case model.ResultDemonstrated:
			demonstrated++
		case model.ResultFailed:
			failed++
		case model.ResultPartial:
			partial++
		}
	}

	inputs := map[string]any{
		"concept_id":   ts.ConceptID,
		"person_id":    ts.PersonID,
		"demonstrated": demonstrated,
		"failed":       failed,
		"partial":      partial,
		"modalities":   ts.ModalitiesTested,
	}

	var reasoning string
	var alts []Alternative
	switch ts.Level {
	case model.LevelContested:
		if len(history) == 0 {
			reasoning = fmt.Sprintf("All evidence for %s was retracted from under a previously held state; confidence fixed at %.2f until re-verified.", ts.ConceptID, ts.Confidence)
			alts = []Alternative{
				{"Reset to untested", "evidence once existed; snapping back to untested would erase that the question was ever open"},
				{"Keep the previous confidence", "the evidence supporting it no longer stands"},
			}
		} else {
			reasoning = fmt.Sprintf("%s has both successes (%d demonstrated, %d partial) and %d failures; the evidence conflicts, confidence %.2f reflects the success weight.", ts.ConceptID, demonstrated, partial, failed, ts.Confidence)
			alts = []Alternative{
				{"Trust the most recent outcome only", "classification is over aggregate counts so recomputation stays order-independent"},
				{"Classify as verified on any success", "unexplained failures are evidence the understanding is not settled"},
			}
		}
	case model.LevelVerified:
		if demonstrated == 0 {
			reasoning = fmt.Sprintf("%s has only partial demonstrations; confidence %.2f is half the strongest partial modality's weight.", ts.ConceptID, ts.Confidence)
			alts = []Alternative{
				{"Classify as inferred", "partial results are direct evidence, however weak, not a graph inference"},
				{"Full modality strength", "a partial result does not carry a full demonstration's weight"},
			}
		} else {
			reasoning = fmt.Sprintf("%s was demonstrated %d time(s) across %d modalit(ies); confidence %.2f from the strongest modality plus cross-modality bonus.", ts.ConceptID, demonstrated, len(ts.ModalitiesTested), ts.Confidence)
			alts = []Alternative{
				{"Average modality strengths", "the strongest channel is the best available evidence; averaging would punish extra weak-channel checks"},
				{"Count repetitions into confidence", "repeating the same modality shows consistency, not broader understanding"},
			}
		}
	default:
		reasoning = fmt.Sprintf("No usable evidence for %s; trust remains %s.", ts.ConceptID, ts.Level)
		alts = []Alternative{
			{"Assume competence from claims", "claims never feed trust level or confidence, only calibration"},
		}
	}

	return &Explanation{
		Kind:         DecisionTrustUpdate,
		Reasoning:    reasoning,
		Inputs:       inputs,
		Confidence:   ts.Confidence,
		Alternatives: alts,
	}
}

// ExplainPropagation builds the rationale for one propagated contribution.
func (e *Engine) ExplainPropagation(ts *model.TrustState, sourceID string, magnitude float64) *Explanation {
	return &Explanation{
		Kind: DecisionPropagation,
		Reasoning: fmt.Sprintf("Trust in %s propagated to %s with attenuated magnitude %.3f; %s has no direct evidence so the inferred contribution fills it.",
			sourceID, ts.ConceptID, magnitude, ts.ConceptID),
		Inputs: map[string]any{
			"source_concept": sourceID,
			"target_concept": ts.ConceptID,
			"magnitude":      magnitude,
			"attenuation":    e.Params.PropagationAttenuation,
			"threshold":      e.Params.PropagationThreshold,
			"inferred_from":  ts.InferredFrom,
		},
		Confidence: ts.Confidence,
		Alternatives: []Alternative{
			{"Overwrite direct evidence with the propagated signal", "direct verification always outranks graph inference"},
			{"Propagate without attenuation", "each hop weakens the implication; unattenuated signals would saturate the graph"},
		},
	}
}

// ExplainDecay builds the rationale for a decayed read.
func (e *Engine) ExplainDecay(ts *model.TrustState, halfLifeDays float64, elapsedDays float64) *Explanation {
	return &Explanation{
		Kind: DecisionDecay,
		Reasoning: fmt.Sprintf("Confidence in %s decayed from %.2f to %.2f over %.1f days against a %.0f-day half-life; the stored confidence is untouched.",
			ts.ConceptID, ts.Confidence, ts.DecayedConfidence, elapsedDays, halfLifeDays),
		Inputs: map[string]any{
			"concept_id":     ts.ConceptID,
			"confidence":     ts.Confidence,
			"decayed":        ts.DecayedConfidence,
			"half_life_days": halfLifeDays,
			"elapsed_days":   elapsedDays,
			"modality_count": len(ts.ModalitiesTested),
		},
		Confidence: ts.DecayedConfidence,
		Alternatives: []Alternative{
			{"Persist the decayed value", "decay is a read-time lens; persisting it would destroy the raw evidence-derived confidence"},
			{"Linear decay", "forgetting is proportional to what remains; exponential decay with a half-life models that"},
		},
	}
}

// ExplainCalibration builds the rationale for a calibration finding.
func (e *Engine) ExplainCalibration(r *CalibrationReport) *Explanation {
	return &Explanation{
		Kind: DecisionCalibration,
		Reasoning: fmt.Sprintf("Across %d claim(s), self-reports land within %.2f of the evidence on average; %.0f%% of verified concepts are past the freshness window.",
			r.ClaimCount, 1-r.PredictionAccuracy, r.StalenessPct*100),
		Inputs: map[string]any{
			"person_id":           r.PersonID,
			"claim_count":         r.ClaimCount,
			"prediction_accuracy": r.PredictionAccuracy,
			"calibration_score":   r.CalibrationScore,
			"staleness_pct":       r.StalenessPct,
		},
		Confidence: r.PredictionAccuracy,
		Alternatives: []Alternative{
			{"Score calibration against raw stored confidence", "evidence decays; comparing claims to stale raw confidence would overstate gaps"},
			{"Let well-calibrated claims raise trust levels", "self-reports are calibration input only, never trust evidence"},
		},
	}
}
