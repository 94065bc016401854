package engine

import (
	"github.com/credencelabs/credence/internal/model"
)

// computeTrustFromHistory derives {level, confidence} from the non-retracted
// verification history for one (person, concept). The previous state is
// consulted only when the filtered history is empty, to distinguish
// "never tested" from "evidence vanished".
//
// Classification is over aggregate counts, never sequence, so recomputation
// after retraction is commutative with event order.
func computeTrustFromHistory(history []model.VerificationEvent, prev *model.TrustState, p Params) (model.TrustLevel, float64) {
	if len(history) == 0 {
		// Evidence retracted away from under a verified/inferred state is
		// not the same as never having been tested. Conservative fallback:
		// unresolved, not untested.
		if prev != nil && (prev.Level == model.LevelVerified || prev.Level == model.LevelInferred) {
			return model.LevelContested, p.ContestedFallbackConfidence
		}
		return model.LevelUntested, 0
	}

	var demonstrated, failed, partial []model.VerificationEvent
	for _, ev := range history {
		switch ev.Result {
		case model.ResultDemonstrated:
			demonstrated = append(demonstrated, ev)
		case model.ResultFailed:
			failed = append(failed, ev)
		case model.ResultPartial:
			partial = append(partial, ev)
		}
	}

	bonus := modalityBonus(demonstrated, p)

	switch {
	case len(failed) > 0 && (len(demonstrated) > 0 || len(partial) > 0):
		successWeight := float64(len(demonstrated)) + 0.5*float64(len(partial))
		confidence := successWeight / (successWeight + float64(len(failed)))
		return model.LevelContested, capConfidence(confidence + bonus)

	case len(demonstrated) > 0:
		confidence := maxStrength(demonstrated, p) + bonus
		if len(partial) > 0 {
			confidence += p.PartialCreditBonus
		}
		return model.LevelVerified, capConfidence(confidence)

	case len(partial) > 0:
		// Partial-only evidence is a deliberately weaker signal: half the
		// best partial modality's strength.
		return model.LevelVerified, maxStrength(partial, p) * 0.5

	default:
		return model.LevelUntested, 0
	}
}

// modalityBonus rewards evidence across distinct demonstrated modalities:
// (count − 1) · bonus, floored at zero.
func modalityBonus(demonstrated []model.VerificationEvent, p Params) float64 {
	distinct := map[model.Modality]bool{}
	for _, ev := range demonstrated {
		distinct[ev.Modality] = true
	}
	if len(distinct) <= 1 {
		return 0
	}
	return float64(len(distinct)-1) * p.CrossModalityConfidenceBonus
}

// maxStrength returns the highest modality strength across events.
func maxStrength(events []model.VerificationEvent, p Params) float64 {
	best := 0.0
	for _, ev := range events {
		if s := p.strength(ev.Modality); s > best {
			best = s
		}
	}
	return best
}

func capConfidence(c float64) float64 {
	if c > 1 {
		return 1
	}
	if c < 0 {
		return 0
	}
	return c
}

// distinctModalities returns the set of modalities seen in a history,
// in first-seen order.
func distinctModalities(history []model.VerificationEvent) []model.Modality {
	seen := map[model.Modality]bool{}
	var out []model.Modality
	for _, ev := range history {
		if !seen[ev.Modality] {
			seen[ev.Modality] = true
			out = append(out, ev.Modality)
		}
	}
	return out
}

// lastVerifiedAt returns the timestamp of the most recent event in a history,
// or nil for an empty history.
func lastVerifiedAt(history []model.VerificationEvent) *int64 {
	var latest *int64
	for i := range history {
		ts := history[i].CreatedAt
		if latest == nil || ts > *latest {
			latest = &ts
		}
	}
	return latest
}
