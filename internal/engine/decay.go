package engine

import (
	"fmt"
	"math"

	"github.com/credencelabs/credence/internal/model"
)

const dayMillis = 24 * 60 * 60 * 1000

// halfLifeDays computes the decay half-life for a trust state. Evidence
// across more modalities decays slower, and concepts many other concepts
// depend on decay slower still. Monotonically non-decreasing in both counts.
func (p Params) halfLifeDays(modalityCount, dependentCount int) float64 {
	if modalityCount < 1 {
		modalityCount = 1
	}
	if dependentCount < 0 {
		dependentCount = 0
	}
	return p.BaseHalfLifeDays *
		math.Pow(p.CrossModalityMultiplier, float64(modalityCount-1)) *
		(1 + float64(dependentCount)*p.StructuralBonus)
}

// decayedConfidence applies exponential time decay to a stored confidence.
// Never mutates anything: the stored confidence stays raw and decay is
// recomputed from confidence + lastVerified at every read.
func decayedConfidence(confidence float64, lastVerified *int64, asOf int64, halfLifeDays float64) float64 {
	if confidence <= 0 || lastVerified == nil {
		return 0
	}
	elapsed := float64(asOf - *lastVerified)
	if elapsed <= 0 {
		return confidence
	}
	days := elapsed / dayMillis
	decayed := confidence * math.Pow(0.5, days/halfLifeDays)
	if decayed < 0 {
		return 0
	}
	return decayed
}

// applyDecay fills in DecayedConfidence on a state as of the given time.
// Inferred states have no lastVerified; their raw confidence stands in,
// decayed from the state's own update time.
func (e *Engine) applyDecay(ts *model.TrustState, asOf int64) {
	ref := ts.LastVerified
	if ref == nil && ts.Level == model.LevelInferred {
		updated := ts.UpdatedAt
		ref = &updated
	}
	halfLife := e.Params.halfLifeDays(len(ts.ModalitiesTested), e.downstreamCount(ts.ConceptID))
	ts.DecayedConfidence = decayedConfidence(ts.Confidence, ref, asOf, halfLife)
}

// ExplainTrustRead builds the decay rationale for a decayed read as of the
// given timestamp.
func (e *Engine) ExplainTrustRead(ts *model.TrustState, asOf int64) *Explanation {
	halfLife := e.Params.halfLifeDays(len(ts.ModalitiesTested), e.downstreamCount(ts.ConceptID))
	var elapsedDays float64
	if ts.LastVerified != nil && asOf > *ts.LastVerified {
		elapsedDays = float64(asOf-*ts.LastVerified) / dayMillis
	}
	return e.ExplainDecay(ts, halfLife, elapsedDays)
}

// DecayedState is one entry in a staleness report: a concept whose decayed
// confidence has dropped below its stored confidence.
type DecayedState struct {
	ConceptID         string  `json:"concept_id"`
	Level             string  `json:"level"`
	Confidence        float64 `json:"confidence"`
	DecayedConfidence float64 `json:"decayed_confidence"`
	HalfLifeDays      float64 `json:"half_life_days"`
}

// DecayReport surfaces staleness for a person as of the given timestamp:
// only states whose decayed confidence is strictly below the stored
// confidence appear. Nothing is persisted.
func (e *Engine) DecayReport(personID string, asOf int64) ([]DecayedState, error) {
	states, err := e.Store.TrustStatesByPerson(personID)
	if err != nil {
		return nil, fmt.Errorf("decay report: %w", err)
	}

	var report []DecayedState
	for i := range states {
		ts := &states[i]
		e.applyDecay(ts, asOf)
		if ts.DecayedConfidence >= ts.Confidence {
			continue
		}
		report = append(report, DecayedState{
			ConceptID:         ts.ConceptID,
			Level:             string(ts.Level),
			Confidence:        ts.Confidence,
			DecayedConfidence: ts.DecayedConfidence,
			HalfLifeDays:      e.Params.halfLifeDays(len(ts.ModalitiesTested), e.downstreamCount(ts.ConceptID)),
		})
	}
	return report, nil
}
