package engine

import (
	"fmt"
	"log"

	"github.com/credencelabs/credence/internal/model"
	"github.com/credencelabs/credence/internal/pack"
)

// LoadPack validates and atomically loads a domain-pack document. Every
// edge and bundle endpoint must exist either in the incoming batch or in
// storage already; on any violation the result carries the full error list
// and nothing is committed (Loaded = 0, EdgesCreated = 0).
//
// Loads are idempotent to retry: concept insertion is an upsert, so
// reapplying the same document is safe.
func (e *Engine) LoadPack(doc *pack.Document) (*model.LoadResult, error) {
	errs := doc.Validate()

	batch := map[string]bool{}
	for _, c := range doc.Concepts {
		batch[c.ID] = true
	}

	resolve := func(id, where string) error {
		if id == "" || batch[id] {
			return nil
		}
		exists, err := e.Store.ConceptExists(id)
		if err != nil {
			return err
		}
		if !exists {
			errs = append(errs, fmt.Sprintf("%s references missing concept %q", where, id))
		}
		return nil
	}

	for _, edge := range doc.Edges {
		if err := resolve(edge.From, fmt.Sprintf("edge %s->%s", edge.From, edge.To)); err != nil {
			return nil, err
		}
		if err := resolve(edge.To, fmt.Sprintf("edge %s->%s", edge.From, edge.To)); err != nil {
			return nil, err
		}
	}
	for name, reqs := range doc.Bundles {
		for _, r := range reqs {
			if err := resolve(r.Concept, fmt.Sprintf("bundle %q", name)); err != nil {
				return nil, err
			}
		}
	}
	for concept := range doc.Mappings {
		if err := resolve(concept, fmt.Sprintf("mapping %q", concept)); err != nil {
			return nil, err
		}
	}

	if len(errs) > 0 {
		return &model.LoadResult{Errors: errs}, nil
	}

	concepts := make([]model.Concept, 0, len(doc.Concepts))
	for _, c := range doc.Concepts {
		concepts = append(concepts, model.Concept{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Domain:      c.Domain,
		})
	}
	edges := make([]model.Edge, 0, len(doc.Edges))
	for _, eg := range doc.Edges {
		strength := 0.5
		if eg.InferenceStrength != nil {
			strength = *eg.InferenceStrength
		}
		edges = append(edges, model.Edge{
			FromConceptID:     eg.From,
			ToConceptID:       eg.To,
			Type:              model.EdgeType(eg.Type),
			InferenceStrength: strength,
		})
	}
	bundles := map[string][]model.BundleRequirement{}
	for name, reqs := range doc.Bundles {
		for _, r := range reqs {
			bundles[name] = append(bundles[name], model.BundleRequirement{
				ConceptID:     r.Concept,
				MinLevel:      model.TrustLevel(r.MinLevel),
				MinConfidence: r.MinConfidence,
			})
		}
	}

	if err := e.Store.SaveGraph(concepts, edges, bundles); err != nil {
		return nil, err
	}
	e.invalidateDepCache()

	log.Printf("loaded domain pack: %d concepts, %d edges, %d bundles",
		len(concepts), len(edges), len(bundles))
	return &model.LoadResult{
		Loaded:       len(concepts),
		EdgesCreated: len(edges),
		Bundles:      len(bundles),
	}, nil
}
