package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/credencelabs/credence/internal/model"
)

// AppendVerification stores a verification event. The log is append-only;
// the only later mutation is MarkVerificationRetracted.
func (db *DB) AppendVerification(ev *model.VerificationEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt == 0 {
		ev.CreatedAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO verification_events (id, person_id, concept_id, modality, result, context, created_at, retracted)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)
	`, ev.ID, ev.PersonID, ev.ConceptID, ev.Modality, ev.Result, ev.Context, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("append verification: %w", err)
	}
	return nil
}

// AppendClaim stores a self-report claim event.
func (db *DB) AppendClaim(c *model.ClaimEvent) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO claim_events (id, person_id, concept_id, confidence, context, created_at, retracted)
		VALUES (?, ?, ?, ?, ?, ?, 0)
	`, c.ID, c.PersonID, c.ConceptID, c.Confidence, c.Context, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("append claim: %w", err)
	}
	return nil
}

// GetVerification returns a verification event by id (retracted or not),
// or nil if not found.
func (db *DB) GetVerification(id string) (*model.VerificationEvent, error) {
	var ev model.VerificationEvent
	var ctx sql.NullString
	var retracted int
	err := db.QueryRow(`
		SELECT id, person_id, concept_id, modality, result, context, created_at, retracted
		FROM verification_events WHERE id = ?
	`, id).Scan(&ev.ID, &ev.PersonID, &ev.ConceptID, &ev.Modality, &ev.Result, &ctx, &ev.CreatedAt, &retracted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get verification: %w", err)
	}
	ev.Context = ctx.String
	ev.Retracted = retracted != 0
	return &ev, nil
}

// GetClaim returns a claim event by id, or nil if not found.
func (db *DB) GetClaim(id string) (*model.ClaimEvent, error) {
	var c model.ClaimEvent
	var ctx sql.NullString
	var retracted int
	err := db.QueryRow(`
		SELECT id, person_id, concept_id, confidence, context, created_at, retracted
		FROM claim_events WHERE id = ?
	`, id).Scan(&c.ID, &c.PersonID, &c.ConceptID, &c.Confidence, &ctx, &c.CreatedAt, &retracted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	c.Context = ctx.String
	c.Retracted = retracted != 0
	return &c, nil
}

// VerificationHistory returns the non-retracted verification events for a
// (person, concept), ordered by timestamp.
func (db *DB) VerificationHistory(personID, conceptID string) ([]model.VerificationEvent, error) {
	rows, err := db.Query(`
		SELECT id, person_id, concept_id, modality, result, context, created_at, retracted
		FROM verification_events
		WHERE person_id = ? AND concept_id = ? AND retracted = 0
		ORDER BY created_at
	`, personID, conceptID)
	if err != nil {
		return nil, fmt.Errorf("verification history: %w", err)
	}
	defer rows.Close()
	return scanVerifications(rows)
}

// ClaimsByPerson returns all non-retracted claims for a person, ordered by
// timestamp.
func (db *DB) ClaimsByPerson(personID string) ([]model.ClaimEvent, error) {
	rows, err := db.Query(`
		SELECT id, person_id, concept_id, confidence, context, created_at, retracted
		FROM claim_events
		WHERE person_id = ? AND retracted = 0
		ORDER BY created_at
	`, personID)
	if err != nil {
		return nil, fmt.Errorf("claims by person: %w", err)
	}
	defer rows.Close()

	var claims []model.ClaimEvent
	for rows.Next() {
		var c model.ClaimEvent
		var ctx sql.NullString
		var retracted int
		if err := rows.Scan(&c.ID, &c.PersonID, &c.ConceptID, &c.Confidence, &ctx, &c.CreatedAt, &retracted); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		c.Context = ctx.String
		c.Retracted = retracted != 0
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

// MarkVerificationRetracted flips an event's retracted flag. One-way: the
// flag is never cleared.
func (db *DB) MarkVerificationRetracted(id string) error {
	_, err := db.Exec("UPDATE verification_events SET retracted = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark verification retracted: %w", err)
	}
	return nil
}

// MarkClaimRetracted flips a claim's retracted flag.
func (db *DB) MarkClaimRetracted(id string) error {
	_, err := db.Exec("UPDATE claim_events SET retracted = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark claim retracted: %w", err)
	}
	return nil
}

// AppendRetraction stores a permanent retraction audit record.
func (db *DB) AppendRetraction(r *model.Retraction) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO retractions (id, event_id, event_type, reason, retracted_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.EventID, r.EventType, r.Reason, r.RetractedBy, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("append retraction: %w", err)
	}
	return nil
}

// RetractionsForEvent returns the audit records referencing an event id.
func (db *DB) RetractionsForEvent(eventID string) ([]model.Retraction, error) {
	rows, err := db.Query(`
		SELECT id, event_id, event_type, reason, retracted_by, created_at
		FROM retractions WHERE event_id = ? ORDER BY created_at
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("retractions for event: %w", err)
	}
	defer rows.Close()

	var recs []model.Retraction
	for rows.Next() {
		var r model.Retraction
		if err := rows.Scan(&r.ID, &r.EventID, &r.EventType, &r.Reason, &r.RetractedBy, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan retraction: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func scanVerifications(rows *sql.Rows) ([]model.VerificationEvent, error) {
	var events []model.VerificationEvent
	for rows.Next() {
		var ev model.VerificationEvent
		var ctx sql.NullString
		var retracted int
		if err := rows.Scan(&ev.ID, &ev.PersonID, &ev.ConceptID, &ev.Modality, &ev.Result, &ctx, &ev.CreatedAt, &retracted); err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		ev.Context = ctx.String
		ev.Retracted = retracted != 0
		events = append(events, ev)
	}
	return events, rows.Err()
}
