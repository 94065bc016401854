package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/credencelabs/credence/internal/model"
)

// UpsertTrustState writes the derived trust projection for one
// (person, concept). DecayedConfidence is never persisted; it is recomputed
// from confidence + last_verified on every read.
func (db *DB) UpsertTrustState(ts *model.TrustState) error {
	now := time.Now().UnixMilli()

	modalities, err := json.Marshal(ts.ModalitiesTested)
	if err != nil {
		return fmt.Errorf("marshal modalities: %w", err)
	}
	inferredFrom, err := json.Marshal(ts.InferredFrom)
	if err != nil {
		return fmt.Errorf("marshal inferred_from: %w", err)
	}

	var lastVerified any
	if ts.LastVerified != nil {
		lastVerified = *ts.LastVerified
	}
	var gap any
	if ts.CalibrationGap != nil {
		gap = *ts.CalibrationGap
	}

	_, err = db.Exec(`
		INSERT INTO trust_states (person_id, concept_id, level, confidence, last_verified, modalities, inferred_from, calibration_gap, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(person_id, concept_id) DO UPDATE SET
			level = excluded.level,
			confidence = excluded.confidence,
			last_verified = excluded.last_verified,
			modalities = excluded.modalities,
			inferred_from = excluded.inferred_from,
			calibration_gap = excluded.calibration_gap,
			updated_at = excluded.updated_at
	`, ts.PersonID, ts.ConceptID, ts.Level, ts.Confidence, lastVerified,
		string(modalities), string(inferredFrom), gap, now)
	if err != nil {
		return fmt.Errorf("upsert trust state: %w", err)
	}
	ts.UpdatedAt = now
	return nil
}

// GetTrustState returns the stored trust state for a (person, concept),
// or nil if none exists.
func (db *DB) GetTrustState(personID, conceptID string) (*model.TrustState, error) {
	row := db.QueryRow(`
		SELECT person_id, concept_id, level, confidence, last_verified, modalities, inferred_from, calibration_gap, updated_at
		FROM trust_states WHERE person_id = ? AND concept_id = ?
	`, personID, conceptID)

	ts, err := scanTrustState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get trust state: %w", err)
	}
	return ts, nil
}

// TrustStatesByPerson returns all stored trust states for a person.
func (db *DB) TrustStatesByPerson(personID string) ([]model.TrustState, error) {
	rows, err := db.Query(`
		SELECT person_id, concept_id, level, confidence, last_verified, modalities, inferred_from, calibration_gap, updated_at
		FROM trust_states WHERE person_id = ? ORDER BY concept_id
	`, personID)
	if err != nil {
		return nil, fmt.Errorf("trust states by person: %w", err)
	}
	defer rows.Close()
	return scanTrustStates(rows)
}

// AllTrustStates returns every stored trust state. Retraction flags are
// already reflected because states are recomputed on retraction.
func (db *DB) AllTrustStates() ([]model.TrustState, error) {
	rows, err := db.Query(`
		SELECT person_id, concept_id, level, confidence, last_verified, modalities, inferred_from, calibration_gap, updated_at
		FROM trust_states ORDER BY person_id, concept_id
	`)
	if err != nil {
		return nil, fmt.Errorf("all trust states: %w", err)
	}
	defer rows.Close()
	return scanTrustStates(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrustState(row rowScanner) (*model.TrustState, error) {
	var ts model.TrustState
	var lastVerified sql.NullInt64
	var gap sql.NullFloat64
	var modalities, inferredFrom sql.NullString

	err := row.Scan(&ts.PersonID, &ts.ConceptID, &ts.Level, &ts.Confidence,
		&lastVerified, &modalities, &inferredFrom, &gap, &ts.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if lastVerified.Valid {
		ts.LastVerified = &lastVerified.Int64
	}
	if gap.Valid {
		ts.CalibrationGap = &gap.Float64
	}
	if modalities.Valid && modalities.String != "" {
		if err := json.Unmarshal([]byte(modalities.String), &ts.ModalitiesTested); err != nil {
			return nil, fmt.Errorf("unmarshal modalities: %w", err)
		}
	}
	if inferredFrom.Valid && inferredFrom.String != "" {
		if err := json.Unmarshal([]byte(inferredFrom.String), &ts.InferredFrom); err != nil {
			return nil, fmt.Errorf("unmarshal inferred_from: %w", err)
		}
	}
	return &ts, nil
}

func scanTrustStates(rows *sql.Rows) ([]model.TrustState, error) {
	var states []model.TrustState
	for rows.Next() {
		ts, err := scanTrustState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trust state: %w", err)
		}
		states = append(states, *ts)
	}
	return states, rows.Err()
}
