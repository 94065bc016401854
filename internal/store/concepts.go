package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/credencelabs/credence/internal/model"
)

// UpsertConcept inserts a concept or, if the id already exists, replaces its
// name, description, and domain. Re-insertion is the only mutation path.
func (db *DB) UpsertConcept(c *model.Concept) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO concepts (id, name, description, domain, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			domain = excluded.domain,
			updated_at = excluded.updated_at
	`, c.ID, c.Name, c.Description, c.Domain, now, now)
	if err != nil {
		return fmt.Errorf("upsert concept %s: %w", c.ID, err)
	}
	c.UpdatedAt = now
	if c.CreatedAt == 0 {
		c.CreatedAt = now
	}
	return nil
}

// GetConcept returns a concept by id, or nil if not found.
func (db *DB) GetConcept(id string) (*model.Concept, error) {
	var c model.Concept
	var desc, domain sql.NullString
	err := db.QueryRow(`
		SELECT id, name, description, domain, created_at, updated_at
		FROM concepts WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &desc, &domain, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get concept: %w", err)
	}
	c.Description = desc.String
	c.Domain = domain.String
	return &c, nil
}

// ConceptsByDomain returns all concepts carrying the given domain tag,
// ordered by id.
func (db *DB) ConceptsByDomain(domain string) ([]model.Concept, error) {
	rows, err := db.Query(`
		SELECT id, name, description, domain, created_at, updated_at
		FROM concepts WHERE domain = ? ORDER BY id
	`, domain)
	if err != nil {
		return nil, fmt.Errorf("concepts by domain: %w", err)
	}
	defer rows.Close()
	return scanConcepts(rows)
}

// InsertEdge inserts a relationship edge. Edges are not deduplicated; two
// identical relationships between the same pair are two rows.
func (db *DB) InsertEdge(e *model.Edge) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO concept_edges (id, from_concept_id, to_concept_id, edge_type, inference_strength, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.FromConceptID, e.ToConceptID, e.Type, e.InferenceStrength, now)
	if err != nil {
		return fmt.Errorf("insert edge %s->%s: %w", e.FromConceptID, e.ToConceptID, err)
	}
	e.CreatedAt = now
	return nil
}

// OutgoingEdges returns all edges originating from a concept.
func (db *DB) OutgoingEdges(conceptID string) ([]model.Edge, error) {
	return db.queryEdges("from_concept_id", conceptID)
}

// IncomingEdges returns all edges terminating at a concept.
func (db *DB) IncomingEdges(conceptID string) ([]model.Edge, error) {
	return db.queryEdges("to_concept_id", conceptID)
}

func (db *DB) queryEdges(column, conceptID string) ([]model.Edge, error) {
	rows, err := db.Query(fmt.Sprintf(`
		SELECT id, from_concept_id, to_concept_id, edge_type, inference_strength, created_at
		FROM concept_edges WHERE %s = ? ORDER BY created_at
	`, column), conceptID)
	if err != nil {
		return nil, fmt.Errorf("query edges by %s: %w", column, err)
	}
	defer rows.Close()

	var edges []model.Edge
	for rows.Next() {
		var e model.Edge
		if err := rows.Scan(&e.ID, &e.FromConceptID, &e.ToConceptID, &e.Type, &e.InferenceStrength, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// DownstreamDependents returns the ids of all concepts that structurally
// depend on the given concept: the transitive closure over outgoing
// prerequisite edges. Cycle-safe via the visited set.
func (db *DB) DownstreamDependents(conceptID string) ([]string, error) {
	visited := map[string]bool{conceptID: true}
	var dependents []string
	frontier := []string{conceptID}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		edges, err := db.OutgoingEdges(current)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if e.Type != model.EdgePrerequisite {
				continue
			}
			if visited[e.ToConceptID] {
				continue
			}
			visited[e.ToConceptID] = true
			dependents = append(dependents, e.ToConceptID)
			frontier = append(frontier, e.ToConceptID)
		}
	}
	return dependents, nil
}

// ConceptExists reports whether a concept id is present.
func (db *DB) ConceptExists(id string) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM concepts WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("concept exists: %w", err)
	}
	return count > 0, nil
}

// SaveGraph commits a validated batch of concepts, edges, and bundle
// requirements in a single transaction. Callers validate edge endpoints
// before calling; the transaction guarantees the graph is never left with
// a partial batch.
func (db *DB) SaveGraph(concepts []model.Concept, edges []model.Edge, bundles map[string][]model.BundleRequirement) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin graph load: %w", err)
	}
	now := time.Now().UnixMilli()

	for _, c := range concepts {
		if _, err := tx.Exec(`
			INSERT INTO concepts (id, name, description, domain, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				domain = excluded.domain,
				updated_at = excluded.updated_at
		`, c.ID, c.Name, c.Description, c.Domain, now, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("load concept %s: %w", c.ID, err)
		}
	}

	for _, e := range edges {
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.Exec(`
			INSERT INTO concept_edges (id, from_concept_id, to_concept_id, edge_type, inference_strength, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, e.FromConceptID, e.ToConceptID, e.Type, e.InferenceStrength, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("load edge %s->%s: %w", e.FromConceptID, e.ToConceptID, err)
		}
	}

	for name, reqs := range bundles {
		for _, r := range reqs {
			var minConf any
			if r.MinConfidence != nil {
				minConf = *r.MinConfidence
			}
			if _, err := tx.Exec(`
				INSERT INTO bundle_requirements (bundle_name, concept_id, min_level, min_confidence)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(bundle_name, concept_id) DO UPDATE SET
					min_level = excluded.min_level,
					min_confidence = excluded.min_confidence
			`, name, r.ConceptID, r.MinLevel, minConf); err != nil {
				tx.Rollback()
				return fmt.Errorf("load bundle %s/%s: %w", name, r.ConceptID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit graph load: %w", err)
	}
	return nil
}

// BundleRequirements returns the requirements registered under a bundle name.
func (db *DB) BundleRequirements(name string) ([]model.BundleRequirement, error) {
	rows, err := db.Query(`
		SELECT concept_id, min_level, min_confidence
		FROM bundle_requirements WHERE bundle_name = ? ORDER BY concept_id
	`, name)
	if err != nil {
		return nil, fmt.Errorf("bundle requirements: %w", err)
	}
	defer rows.Close()

	var reqs []model.BundleRequirement
	for rows.Next() {
		var r model.BundleRequirement
		var minConf sql.NullFloat64
		if err := rows.Scan(&r.ConceptID, &r.MinLevel, &minConf); err != nil {
			return nil, fmt.Errorf("scan bundle requirement: %w", err)
		}
		if minConf.Valid {
			r.MinConfidence = &minConf.Float64
		}
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}

func scanConcepts(rows *sql.Rows) ([]model.Concept, error) {
	var concepts []model.Concept
	for rows.Next() {
		var c model.Concept
		var desc, domain sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &desc, &domain, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan concept: %w", err)
		}
		c.Description = desc.String
		c.Domain = domain.String
		concepts = append(concepts, c)
	}
	return concepts, rows.Err()
}
