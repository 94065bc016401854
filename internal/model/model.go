package model

// Concept is an atomic unit of knowledge or skill. Concepts are owned by the
// graph and are immutable once created except via re-insertion (upsert).
type Concept struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Domain      string `json:"domain,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

// EdgeType classifies a directed relationship between two concepts.
type EdgeType string

const (
	EdgePrerequisite EdgeType = "prerequisite"
	EdgeRelatedTo    EdgeType = "related_to"
)

// Edge is a directed, weighted relationship between two concepts.
// InferenceStrength expresses how strongly trust in From implies trust in To.
// Multiple edges between the same pair are permitted.
type Edge struct {
	ID                string   `json:"id"`
	FromConceptID     string   `json:"from_concept_id"`
	ToConceptID       string   `json:"to_concept_id"`
	Type              EdgeType `json:"type"`
	InferenceStrength float64  `json:"inference_strength"`
	CreatedAt         int64    `json:"created_at"`
}

// Modality is the evidence channel through which understanding was shown.
type Modality string

const (
	ModalityMentioned   Modality = "passive:mentioned"
	ModalityObserved    Modality = "external:observed"
	ModalityRecall      Modality = "external:recall"
	ModalityExplanation Modality = "external:explanation"
	ModalityApplication Modality = "external:application"
)

// Result is the outcome of a verification attempt.
type Result string

const (
	ResultDemonstrated Result = "demonstrated"
	ResultFailed       Result = "failed"
	ResultPartial      Result = "partial"
)

// VerificationEvent records one attempt to demonstrate understanding of a
// concept. Events are append-only; the only permitted mutation is setting
// the retracted flag.
type VerificationEvent struct {
	ID        string   `json:"id"`
	PersonID  string   `json:"person_id"`
	ConceptID string   `json:"concept_id"`
	Modality  Modality `json:"modality"`
	Result    Result   `json:"result"`
	Context   string   `json:"context,omitempty"`
	CreatedAt int64    `json:"created_at"`
	Retracted bool     `json:"retracted"`
}

// ClaimEvent records a self-reported confidence. Claims never affect trust
// level or confidence; they feed calibration only.
type ClaimEvent struct {
	ID         string  `json:"id"`
	PersonID   string  `json:"person_id"`
	ConceptID  string  `json:"concept_id"`
	Confidence float64 `json:"confidence"`
	Context    string  `json:"context,omitempty"`
	CreatedAt  int64   `json:"created_at"`
	Retracted  bool    `json:"retracted"`
}

// TrustLevel is the coarse classification of belief in a person's
// understanding of a concept.
type TrustLevel string

const (
	LevelUntested  TrustLevel = "untested"
	LevelVerified  TrustLevel = "verified"
	LevelInferred  TrustLevel = "inferred"
	LevelContested TrustLevel = "contested"
)

// TrustState is the derived belief for one (person, concept). It is a pure
// function of the non-retracted verification history plus decay/propagation
// parameters and can always be rebuilt by replaying that history.
// DecayedConfidence is computed at read time and never stored.
type TrustState struct {
	PersonID          string     `json:"person_id"`
	ConceptID         string     `json:"concept_id"`
	Level             TrustLevel `json:"level"`
	Confidence        float64    `json:"confidence"`
	DecayedConfidence float64    `json:"decayed_confidence"`
	LastVerified      *int64     `json:"last_verified,omitempty"`
	ModalitiesTested  []Modality `json:"modalities_tested,omitempty"`
	InferredFrom      []string   `json:"inferred_from,omitempty"`
	CalibrationGap    *float64   `json:"calibration_gap,omitempty"`
	UpdatedAt         int64      `json:"updated_at"`
}

// RetractionReason is the closed set of reasons an event may be invalidated.
type RetractionReason string

const (
	ReasonFraudulent     RetractionReason = "fraudulent"
	ReasonDuplicate      RetractionReason = "duplicate"
	ReasonIdentityMixup  RetractionReason = "identity_mixup"
	ReasonConsentErasure RetractionReason = "consent_erasure"
	ReasonDataCorrection RetractionReason = "data_correction"
)

// ValidReason reports whether r is one of the accepted retraction reasons.
func ValidReason(r RetractionReason) bool {
	switch r {
	case ReasonFraudulent, ReasonDuplicate, ReasonIdentityMixup,
		ReasonConsentErasure, ReasonDataCorrection:
		return true
	}
	return false
}

// EventType distinguishes which log a retraction targets.
type EventType string

const (
	EventVerification EventType = "verification"
	EventClaim        EventType = "claim"
)

// Retraction is the permanent audit record of an event invalidation.
// Retractions are append-only and never mutated or deleted.
type Retraction struct {
	ID          string           `json:"id"`
	EventID     string           `json:"event_id"`
	EventType   EventType        `json:"event_type"`
	Reason      RetractionReason `json:"reason"`
	RetractedBy string           `json:"retracted_by"`
	CreatedAt   int64            `json:"created_at"`
}

// LoadResult reports the outcome of an atomic graph batch load. On any
// validation failure Loaded and EdgesCreated are both zero and Errors names
// every violation.
type LoadResult struct {
	Loaded       int      `json:"loaded"`
	EdgesCreated int      `json:"edges_created"`
	Bundles      int      `json:"bundles,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

// BundleRequirement is one entry in a named trust-requirement bundle:
// the person must hold at least MinLevel on Concept, optionally with a
// minimum decayed confidence.
type BundleRequirement struct {
	ConceptID     string     `json:"concept_id"`
	MinLevel      TrustLevel `json:"min_level"`
	MinConfidence *float64   `json:"min_confidence,omitempty"`
}

// levelRank orders trust levels for bundle checks. Inferred trust counts as
// weaker than verified but stronger than nothing; contested never satisfies
// a requirement.
var levelRank = map[TrustLevel]int{
	LevelUntested:  0,
	LevelContested: 0,
	LevelInferred:  1,
	LevelVerified:  2,
}

// LevelAtLeast reports whether have satisfies a want requirement.
func LevelAtLeast(have, want TrustLevel) bool {
	if have == LevelContested {
		return false
	}
	return levelRank[have] >= levelRank[want]
}
