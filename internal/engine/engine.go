package engine

import (
	"fmt"
	"log"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/credencelabs/credence/internal/model"
)

// Engine is the trust computation core: scoring, decay, propagation,
// retraction, and calibration over an abstract storage contract. All
// operations are synchronous; the engine holds no goroutines and performs
// no I/O beyond the Storage calls.
type Engine struct {
	Store  Storage
	Params Params

	// depCache memoizes downstream-dependent counts. The transitive closure
	// is a graph walk consulted on every decayed read; graph loads are rare.
	depCache *gocache.Cache
}

// New creates an Engine over the given storage with the given parameters.
func New(store Storage, params Params) *Engine {
	return &Engine{
		Store:    store,
		Params:   params,
		depCache: gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// downstreamCount returns the number of concepts that structurally depend
// on conceptID, memoized with a TTL. Degrades to 0 on storage errors since
// decay must never fail a read.
func (e *Engine) downstreamCount(conceptID string) int {
	if v, ok := e.depCache.Get(conceptID); ok {
		return v.(int)
	}
	deps, err := e.Store.DownstreamDependents(conceptID)
	if err != nil {
		log.Printf("downstream dependents for %s: %v", conceptID, err)
		return 0
	}
	e.depCache.Set(conceptID, len(deps), gocache.DefaultExpiration)
	return len(deps)
}

// invalidateDepCache drops memoized centrality after the graph changes.
func (e *Engine) invalidateDepCache() {
	e.depCache.Flush()
}

// RecordVerification appends a verification event and recomputes the trust
// state for that (person, concept) from the full non-retracted history.
// Returns the new state and its explanation.
func (e *Engine) RecordVerification(ev *model.VerificationEvent) (*model.TrustState, *Explanation, error) {
	if ev.CreatedAt == 0 {
		ev.CreatedAt = time.Now().UnixMilli()
	}
	if err := e.Store.AppendVerification(ev); err != nil {
		return nil, nil, err
	}

	ts, err := e.recomputeTrust(ev.PersonID, ev.ConceptID, true)
	if err != nil {
		return nil, nil, err
	}

	history, err := e.Store.VerificationHistory(ev.PersonID, ev.ConceptID)
	if err != nil {
		return nil, nil, err
	}
	return ts, e.ExplainTrustUpdate(ts, history), nil
}

// recomputeTrust rebuilds the derived projection for one (person, concept)
// by replaying the non-retracted history, and persists it. Direct evidence
// supersedes any propagated contribution, so inferredFrom is cleared when
// history is non-empty.
//
// usePrevFallback controls whether an empty history may fall back to the
// previous state's contested marker. Retraction passes false: the whole
// point of retracting a fraudulent or consent-erased event is that it must
// leave no residue, so a sole retracted event resets to untested.
func (e *Engine) recomputeTrust(personID, conceptID string, usePrevFallback bool) (*model.TrustState, error) {
	history, err := e.Store.VerificationHistory(personID, conceptID)
	if err != nil {
		return nil, err
	}
	prev, err := e.Store.GetTrustState(personID, conceptID)
	if err != nil {
		return nil, err
	}

	fallbackPrev := prev
	if !usePrevFallback {
		fallbackPrev = nil
	}
	level, confidence := computeTrustFromHistory(history, fallbackPrev, e.Params)

	ts := &model.TrustState{
		PersonID:         personID,
		ConceptID:        conceptID,
		Level:            level,
		Confidence:       confidence,
		LastVerified:     lastVerifiedAt(history),
		ModalitiesTested: distinctModalities(history),
	}
	if prev != nil {
		ts.CalibrationGap = prev.CalibrationGap
		if len(history) == 0 {
			ts.InferredFrom = prev.InferredFrom
		}
	}

	if err := e.Store.UpsertTrustState(ts); err != nil {
		return nil, err
	}
	return ts, nil
}

// RecordClaim appends a self-report and stores the signed calibration gap
// (claimed minus decayed evidence confidence) on the trust state. Claims
// never move level or confidence.
func (e *Engine) RecordClaim(c *model.ClaimEvent) (float64, error) {
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UnixMilli()
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return 0, fmt.Errorf("claim confidence %v out of range [0,1]", c.Confidence)
	}
	if err := e.Store.AppendClaim(c); err != nil {
		return 0, err
	}

	ts, err := e.Store.GetTrustState(c.PersonID, c.ConceptID)
	if err != nil {
		return 0, err
	}
	if ts == nil {
		ts = &model.TrustState{
			PersonID:  c.PersonID,
			ConceptID: c.ConceptID,
			Level:     model.LevelUntested,
		}
	}
	e.applyDecay(ts, c.CreatedAt)

	gap := c.Confidence - ts.DecayedConfidence
	ts.CalibrationGap = &gap
	if err := e.Store.UpsertTrustState(ts); err != nil {
		return 0, err
	}
	return gap, nil
}

// Trust returns the decayed trust state for a (person, concept) as of the
// given timestamp. Unknown concepts resolve to a benign untested state,
// never an error.
func (e *Engine) Trust(personID, conceptID string, asOf int64) (*model.TrustState, error) {
	ts, err := e.Store.GetTrustState(personID, conceptID)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return &model.TrustState{
			PersonID:  personID,
			ConceptID: conceptID,
			Level:     model.LevelUntested,
		}, nil
	}
	e.applyDecay(ts, asOf)
	return ts, nil
}

// TrustOverview returns all decayed trust states for a person.
func (e *Engine) TrustOverview(personID string, asOf int64) ([]model.TrustState, error) {
	states, err := e.Store.TrustStatesByPerson(personID)
	if err != nil {
		return nil, err
	}
	for i := range states {
		e.applyDecay(&states[i], asOf)
	}
	return states, nil
}

// BundleCheck reports whether a person meets one bundle requirement.
type BundleCheck struct {
	ConceptID         string  `json:"concept_id"`
	Required          string  `json:"required"`
	Have              string  `json:"have"`
	DecayedConfidence float64 `json:"decayed_confidence"`
	Met               bool    `json:"met"`
}

// CheckBundle evaluates a named requirement bundle against a person's
// current decayed trust.
func (e *Engine) CheckBundle(personID, bundle string, asOf int64) ([]BundleCheck, error) {
	reqs, err := e.Store.BundleRequirements(bundle)
	if err != nil {
		return nil, err
	}

	var checks []BundleCheck
	for _, r := range reqs {
		ts, err := e.Trust(personID, r.ConceptID, asOf)
		if err != nil {
			return nil, err
		}
		met := model.LevelAtLeast(ts.Level, r.MinLevel)
		if met && r.MinConfidence != nil && ts.DecayedConfidence < *r.MinConfidence {
			met = false
		}
		checks = append(checks, BundleCheck{
			ConceptID:         r.ConceptID,
			Required:          string(r.MinLevel),
			Have:              string(ts.Level),
			DecayedConfidence: ts.DecayedConfidence,
			Met:               met,
		})
	}
	return checks, nil
}
