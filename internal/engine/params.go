package engine

import "github.com/credencelabs/credence/internal/model"

// Params holds every constant the scoring, decay, and propagation algorithms
// consume. Injected rather than read from globals so the engine is
// deterministic and testable with alternate parameter sets.
type Params struct {
	// ModalityStrengths maps each evidence channel to its intrinsic weight.
	// Passive channels are weak signals; transfer/application is the
	// strongest evidence of real understanding.
	ModalityStrengths map[model.Modality]float64

	// CrossModalityConfidenceBonus is added per distinct demonstrated
	// modality beyond the first.
	CrossModalityConfidenceBonus float64

	// PartialCreditBonus is added to a verified confidence when partial
	// results accompany a full demonstration.
	PartialCreditBonus float64

	// ContestedFallbackConfidence is the fixed confidence assigned when all
	// evidence has been retracted away but a verified or inferred state
	// previously existed.
	ContestedFallbackConfidence float64

	// BaseHalfLifeDays is the confidence half-life for single-modality,
	// structurally isolated concepts.
	BaseHalfLifeDays float64

	// CrossModalityMultiplier (> 1) stretches the half-life per additional
	// distinct modality tested. Evidence from multiple channels decays
	// slower.
	CrossModalityMultiplier float64

	// StructuralBonus stretches the half-life per downstream dependent.
	// Foundational concepts are continually reinforced by use.
	StructuralBonus float64

	// PropagationAttenuation scales a propagated signal at each hop.
	PropagationAttenuation float64

	// FailurePropagationMultiplier amplifies negative signals: failing a
	// dependent concept is stronger counter-evidence against its
	// prerequisites than success is confirming evidence.
	FailurePropagationMultiplier float64

	// PropagationThreshold discards propagated magnitudes below it as noise.
	PropagationThreshold float64

	// StalenessWindowDays is the freshness window used by calibration.
	StalenessWindowDays float64
}

// DefaultParams returns the process-wide default parameter set.
func DefaultParams() Params {
	return Params{
		ModalityStrengths: map[model.Modality]float64{
			model.ModalityMentioned:   0.3,
			model.ModalityObserved:    0.6,
			model.ModalityRecall:      0.75,
			model.ModalityExplanation: 0.8,
			model.ModalityApplication: 0.9,
		},
		CrossModalityConfidenceBonus: 0.1,
		PartialCreditBonus:           0.05,
		ContestedFallbackConfidence:  0.2,
		BaseHalfLifeDays:             90,
		CrossModalityMultiplier:      1.5,
		StructuralBonus:              0.2,
		PropagationAttenuation:       0.5,
		FailurePropagationMultiplier: 1.5,
		PropagationThreshold:         0.1,
		StalenessWindowDays:          60,
	}
}

// strength returns the intrinsic weight for a modality, 0 for unknown ones.
// Out-of-range inputs degrade rather than error.
func (p Params) strength(m model.Modality) float64 {
	s, ok := p.ModalityStrengths[m]
	if !ok || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
