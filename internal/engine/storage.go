package engine

import "github.com/credencelabs/credence/internal/model"

// Storage is the persistence contract the engine computes over. The engine
// never performs I/O itself; store.DB is the production implementation.
// Implementations must guarantee that VerificationHistory and the trust-state
// reads reflect retraction flags.
type Storage interface {
	// Concept graph
	GetConcept(id string) (*model.Concept, error)
	ConceptExists(id string) (bool, error)
	OutgoingEdges(conceptID string) ([]model.Edge, error)
	IncomingEdges(conceptID string) ([]model.Edge, error)
	DownstreamDependents(conceptID string) ([]string, error)
	SaveGraph(concepts []model.Concept, edges []model.Edge, bundles map[string][]model.BundleRequirement) error
	BundleRequirements(name string) ([]model.BundleRequirement, error)

	// Append-only event logs
	AppendVerification(ev *model.VerificationEvent) error
	AppendClaim(c *model.ClaimEvent) error
	GetVerification(id string) (*model.VerificationEvent, error)
	GetClaim(id string) (*model.ClaimEvent, error)
	VerificationHistory(personID, conceptID string) ([]model.VerificationEvent, error)
	ClaimsByPerson(personID string) ([]model.ClaimEvent, error)
	MarkVerificationRetracted(id string) error
	MarkClaimRetracted(id string) error
	AppendRetraction(r *model.Retraction) error

	// Derived trust projection
	UpsertTrustState(ts *model.TrustState) error
	GetTrustState(personID, conceptID string) (*model.TrustState, error)
	TrustStatesByPerson(personID string) ([]model.TrustState, error)
}
