package engine

import (
	"fmt"

	"github.com/credencelabs/credence/internal/model"
)

// Propagate infers trust contributions for graph-neighbors of a source
// concept from the source's persisted trust state.
//
// A verified source walks forward along outgoing edges: trust in a concept
// implies some trust in the concepts it supports, attenuated per hop and by
// each edge's inference strength. A contested source walks backward along
// incoming edges: failing a dependent concept is counter-evidence against
// its prerequisites, amplified by the failure multiplier because missed
// false negatives are the costlier mistake in teaching.
//
// Magnitudes below the propagation threshold are discarded as noise.
// Concepts with direct verification evidence are never overwritten; only
// untested concepts (or earlier inferred states, which re-propagation
// replaces) receive a contribution, with the source recorded in
// inferredFrom. Cycle-safe via a per-traversal visited set. Propagation
// never errors on degenerate inputs: an untested or absent source simply
// yields no states.
func (e *Engine) Propagate(personID, sourceConceptID string) ([]model.TrustState, error) {
	source, err := e.Store.GetTrustState(personID, sourceConceptID)
	if err != nil {
		return nil, fmt.Errorf("propagate from %s: %w", sourceConceptID, err)
	}
	if source == nil || source.Confidence <= 0 {
		return nil, nil
	}

	var negative bool
	switch source.Level {
	case model.LevelVerified:
		negative = false
	case model.LevelContested:
		negative = true
	default:
		// Inferred trust does not re-propagate; untested has nothing to say.
		return nil, nil
	}

	type hop struct {
		conceptID string
		magnitude float64
	}

	visited := map[string]bool{sourceConceptID: true}
	frontier := []hop{{sourceConceptID, source.Confidence}}
	var updated []model.TrustState

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		edges, err := e.neighborEdges(current.conceptID, negative)
		if err != nil {
			return updated, err
		}

		for _, edge := range edges {
			target := edge.ToConceptID
			if negative {
				target = edge.FromConceptID
			}
			if visited[target] {
				continue
			}
			visited[target] = true

			magnitude := current.magnitude * edge.InferenceStrength * e.Params.PropagationAttenuation
			if negative {
				magnitude *= e.Params.FailurePropagationMultiplier
			}
			if magnitude < e.Params.PropagationThreshold {
				continue
			}

			ts, err := e.applyContribution(personID, target, sourceConceptID, magnitude, negative)
			if err != nil {
				return updated, err
			}
			if ts != nil {
				updated = append(updated, *ts)
			}

			frontier = append(frontier, hop{target, magnitude})
		}
	}

	return updated, nil
}

// neighborEdges returns the edges to walk from a concept: outgoing for
// positive propagation, incoming for failure propagation.
func (e *Engine) neighborEdges(conceptID string, backward bool) ([]model.Edge, error) {
	if backward {
		return e.Store.IncomingEdges(conceptID)
	}
	return e.Store.OutgoingEdges(conceptID)
}

// applyContribution writes an inferred (or suspect) state for a target
// concept, unless direct evidence already exists there. Returns nil when the
// target was skipped.
func (e *Engine) applyContribution(personID, conceptID, sourceID string, magnitude float64, negative bool) (*model.TrustState, error) {
	existing, err := e.Store.GetTrustState(personID, conceptID)
	if err != nil {
		return nil, err
	}
	// Direct evidence wins: anything with a verification timestamp, or any
	// non-inferred classification, is left alone.
	if existing != nil && (existing.LastVerified != nil ||
		(existing.Level != model.LevelUntested && existing.Level != model.LevelInferred)) {
		return nil, nil
	}

	level := model.LevelInferred
	if negative {
		// A propagated failure marks the prerequisite unresolved, not
		// positively trusted.
		level = model.LevelContested
	}

	ts := &model.TrustState{
		PersonID:     personID,
		ConceptID:    conceptID,
		Level:        level,
		Confidence:   capConfidence(magnitude),
		InferredFrom: []string{sourceID},
	}
	if existing != nil {
		ts.CalibrationGap = existing.CalibrationGap
		ts.InferredFrom = mergeSources(existing.InferredFrom, sourceID)
	}

	if err := e.Store.UpsertTrustState(ts); err != nil {
		return nil, err
	}
	return ts, nil
}

// mergeSources appends a source id if not already present.
func mergeSources(sources []string, id string) []string {
	for _, s := range sources {
		if s == id {
			return sources
		}
	}
	return append(sources, id)
}
