// Package pack parses and validates domain-pack documents: portable bundles
// of concepts, relationship edges, trust-requirement bundles, and optional
// concept-to-file mappings. Documents are YAML (JSON parses as a YAML
// subset) and are fully validated before any mutation is applied.
package pack

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/credencelabs/credence/internal/model"
)

// Document is the domain-pack exchange format.
type Document struct {
	Concepts []ConceptDoc                 `yaml:"concepts" json:"concepts"`
	Edges    []EdgeDoc                    `yaml:"edges" json:"edges"`
	Bundles  map[string][]RequirementDoc  `yaml:"bundles,omitempty" json:"bundles,omitempty"`
	Mappings map[string][]string          `yaml:"mappings,omitempty" json:"mappings,omitempty"`
}

// ConceptDoc is one concept entry.
type ConceptDoc struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Domain      string `yaml:"domain,omitempty" json:"domain,omitempty"`
}

// EdgeDoc is one relationship entry. Type defaults to related_to and
// InferenceStrength defaults to 0.5 when omitted.
type EdgeDoc struct {
	From              string   `yaml:"from" json:"from"`
	To                string   `yaml:"to" json:"to"`
	Type              string   `yaml:"type,omitempty" json:"type,omitempty"`
	InferenceStrength *float64 `yaml:"inference_strength,omitempty" json:"inference_strength,omitempty"`
}

// RequirementDoc is one bundle requirement entry.
type RequirementDoc struct {
	Concept       string   `yaml:"concept" json:"concept"`
	MinLevel      string   `yaml:"min_level" json:"min_level"`
	MinConfidence *float64 `yaml:"min_confidence,omitempty" json:"min_confidence,omitempty"`
}

// validEdgeTypes mirrors the relationship types the graph accepts.
var validEdgeTypes = map[string]bool{
	string(model.EdgePrerequisite): true,
	string(model.EdgeRelatedTo):    true,
}

var validLevels = map[string]bool{
	string(model.LevelUntested):  true,
	string(model.LevelVerified):  true,
	string(model.LevelInferred):  true,
	string(model.LevelContested): true,
}

// Parse decodes a domain-pack document. Parse errors are returned as-is;
// semantic problems are reported by Validate.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse domain pack: %w", err)
	}
	doc.applyDefaults()
	return &doc, nil
}

func (d *Document) applyDefaults() {
	for i := range d.Edges {
		if d.Edges[i].Type == "" {
			d.Edges[i].Type = string(model.EdgeRelatedTo)
		}
		if d.Edges[i].InferenceStrength == nil {
			s := 0.5
			d.Edges[i].InferenceStrength = &s
		}
	}
}

// Validate returns every structural problem in the document as a descriptive
// message. An empty slice means the document is internally consistent;
// cross-references against already-stored concepts are the loader's job.
func (d *Document) Validate() []string {
	var errs []string

	seen := map[string]bool{}
	for i, c := range d.Concepts {
		if c.ID == "" {
			errs = append(errs, fmt.Sprintf("concept[%d]: missing id", i))
			continue
		}
		if c.Name == "" {
			errs = append(errs, fmt.Sprintf("concept %q: missing name", c.ID))
		}
		if seen[c.ID] {
			errs = append(errs, fmt.Sprintf("concept %q: duplicate id in batch", c.ID))
		}
		seen[c.ID] = true
	}

	for i, e := range d.Edges {
		if e.From == "" || e.To == "" {
			errs = append(errs, fmt.Sprintf("edge[%d]: from and to are required", i))
		}
		if !validEdgeTypes[e.Type] {
			errs = append(errs, fmt.Sprintf("edge[%d] %s->%s: unknown type %q", i, e.From, e.To, e.Type))
		}
		if e.InferenceStrength != nil {
			if s := *e.InferenceStrength; s < 0 || s > 1 {
				errs = append(errs, fmt.Sprintf("edge[%d] %s->%s: inference_strength %v out of range [0,1]", i, e.From, e.To, s))
			}
		}
	}

	for name, reqs := range d.Bundles {
		if name == "" {
			errs = append(errs, "bundle with empty name")
		}
		for i, r := range reqs {
			if r.Concept == "" {
				errs = append(errs, fmt.Sprintf("bundle %q[%d]: missing concept", name, i))
			}
			if !validLevels[r.MinLevel] {
				errs = append(errs, fmt.Sprintf("bundle %q[%d]: unknown min_level %q", name, i, r.MinLevel))
			}
			if r.MinConfidence != nil && (*r.MinConfidence < 0 || *r.MinConfidence > 1) {
				errs = append(errs, fmt.Sprintf("bundle %q[%d]: min_confidence %v out of range [0,1]", name, i, *r.MinConfidence))
			}
		}
	}

	for concept, paths := range d.Mappings {
		if concept == "" {
			errs = append(errs, "mapping with empty concept id")
		}
		if len(paths) == 0 {
			errs = append(errs, fmt.Sprintf("mapping %q: no file paths", concept))
		}
	}

	return errs
}
