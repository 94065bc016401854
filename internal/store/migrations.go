package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "concepts + concept_edges: the concept graph",
		SQL: `
CREATE TABLE concepts (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT,
    domain      TEXT,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);

CREATE INDEX idx_concepts_domain ON concepts(domain);

CREATE TABLE concept_edges (
    id                 TEXT PRIMARY KEY,
    from_concept_id    TEXT NOT NULL,
    to_concept_id      TEXT NOT NULL,
    edge_type          TEXT NOT NULL DEFAULT 'related_to',
    inference_strength REAL NOT NULL DEFAULT 0.5 CHECK (inference_strength >= 0 AND inference_strength <= 1),
    created_at         INTEGER NOT NULL,

    FOREIGN KEY (from_concept_id) REFERENCES concepts(id),
    FOREIGN KEY (to_concept_id)   REFERENCES concepts(id)
);

CREATE INDEX idx_edges_from ON concept_edges(from_concept_id);
CREATE INDEX idx_edges_to   ON concept_edges(to_concept_id);
`,
	},
	{
		Version:     2,
		Description: "verification_events + claim_events: append-only evidence logs",
		SQL: `
CREATE TABLE verification_events (
    id         TEXT PRIMARY KEY,
    person_id  TEXT NOT NULL,
    concept_id TEXT NOT NULL,
    modality   TEXT NOT NULL,
    result     TEXT NOT NULL CHECK (result IN ('demonstrated', 'failed', 'partial')),
    context    TEXT,
    created_at INTEGER NOT NULL,
    retracted  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_verifications_person_concept ON verification_events(person_id, concept_id);
CREATE INDEX idx_verifications_created        ON verification_events(created_at);

CREATE TABLE claim_events (
    id         TEXT PRIMARY KEY,
    person_id  TEXT NOT NULL,
    concept_id TEXT NOT NULL,
    confidence REAL NOT NULL CHECK (confidence >= 0 AND confidence <= 1),
    context    TEXT,
    created_at INTEGER NOT NULL,
    retracted  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_claims_person_concept ON claim_events(person_id, concept_id);
`,
	},
	{
		Version:     3,
		Description: "trust_states: derived projection, rebuildable from event history",
		SQL: `
CREATE TABLE trust_states (
    person_id       TEXT NOT NULL,
    concept_id      TEXT NOT NULL,
    level           TEXT NOT NULL CHECK (level IN ('untested', 'verified', 'inferred', 'contested')),
    confidence      REAL NOT NULL DEFAULT 0,
    last_verified   INTEGER,
    modalities      TEXT,
    inferred_from   TEXT,
    calibration_gap REAL,
    updated_at      INTEGER NOT NULL,

    PRIMARY KEY (person_id, concept_id)
);

CREATE INDEX idx_trust_person ON trust_states(person_id);
`,
	},
	{
		Version:     4,
		Description: "retractions: permanent audit trail of event invalidations",
		SQL: `
CREATE TABLE retractions (
    id           TEXT PRIMARY KEY,
    event_id     TEXT NOT NULL,
    event_type   TEXT NOT NULL CHECK (event_type IN ('verification', 'claim')),
    reason       TEXT NOT NULL CHECK (reason IN ('fraudulent', 'duplicate', 'identity_mixup', 'consent_erasure', 'data_correction')),
    retracted_by TEXT NOT NULL,
    created_at   INTEGER NOT NULL
);

CREATE INDEX idx_retractions_event ON retractions(event_id);
`,
	},
	{
		Version:     5,
		Description: "bundles: named trust-requirement sets from domain packs",
		SQL: `
CREATE TABLE bundle_requirements (
    bundle_name    TEXT NOT NULL,
    concept_id     TEXT NOT NULL,
    min_level      TEXT NOT NULL CHECK (min_level IN ('untested', 'verified', 'inferred', 'contested')),
    min_confidence REAL,

    PRIMARY KEY (bundle_name, concept_id)
);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
