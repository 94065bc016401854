package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/credencelabs/credence/internal/model"
	"github.com/credencelabs/credence/internal/pack"
)

// asOfParam reads an optional ?as_of= unix-millis query parameter,
// defaulting to now.
func asOfParam(r *http.Request) int64 {
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return ts
		}
	}
	return time.Now().UnixMilli()
}

func (s *Server) handleLoadPack(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}

	doc, err := pack.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.engine.LoadPack(doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(result.Errors) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRecordVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PersonID  string `json:"person_id"`
		ConceptID string `json:"concept_id"`
		Modality  string `json:"modality"`
		Result    string `json:"result"`
		Context   string `json:"context"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.PersonID == "" || req.ConceptID == "" {
		writeError(w, http.StatusBadRequest, "person_id and concept_id required")
		return
	}
	switch model.Result(req.Result) {
	case model.ResultDemonstrated, model.ResultFailed, model.ResultPartial:
	default:
		writeError(w, http.StatusBadRequest, "result must be demonstrated, failed, or partial")
		return
	}

	ev := &model.VerificationEvent{
		PersonID:  req.PersonID,
		ConceptID: req.ConceptID,
		Modality:  model.Modality(req.Modality),
		Result:    model.Result(req.Result),
		Context:   req.Context,
		CreatedAt: req.Timestamp,
	}
	state, explanation, err := s.engine.RecordVerification(ev)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"event_id":    ev.ID,
		"trust":       state,
		"explanation": explanation,
	})
}

func (s *Server) handleRecordClaim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PersonID   string  `json:"person_id"`
		ConceptID  string  `json:"concept_id"`
		Confidence float64 `json:"confidence"`
		Context    string  `json:"context"`
		Timestamp  int64   `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.PersonID == "" || req.ConceptID == "" {
		writeError(w, http.StatusBadRequest, "person_id and concept_id required")
		return
	}

	claim := &model.ClaimEvent{
		PersonID:   req.PersonID,
		ConceptID:  req.ConceptID,
		Confidence: req.Confidence,
		Context:    req.Context,
		CreatedAt:  req.Timestamp,
	}
	gap, err := s.engine.RecordClaim(claim)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"event_id":        claim.ID,
		"calibration_gap": gap,
	})
}

func (s *Server) handleRetract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventID     string `json:"event_id"`
		Reason      string `json:"reason"`
		RetractedBy string `json:"retracted_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.EventID == "" {
		writeError(w, http.StatusBadRequest, "event_id required")
		return
	}

	result, err := s.engine.Retract(req.EventID, model.RetractionReason(req.Reason), req.RetractedBy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePropagate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PersonID  string `json:"person_id"`
		ConceptID string `json:"concept_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.PersonID == "" || req.ConceptID == "" {
		writeError(w, http.StatusBadRequest, "person_id and concept_id required")
		return
	}

	states, err := s.engine.Propagate(req.PersonID, req.ConceptID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	explanations := make([]any, 0, len(states))
	for i := range states {
		explanations = append(explanations,
			s.engine.ExplainPropagation(&states[i], req.ConceptID, states[i].Confidence))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"inferred":     states,
		"explanations": explanations,
	})
}

func (s *Server) handleGetConcept(w http.ResponseWriter, r *http.Request) {
	conceptID := chi.URLParam(r, "conceptID")

	concept, err := s.engine.Store.GetConcept(conceptID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if concept == nil {
		writeError(w, http.StatusNotFound, "concept not found")
		return
	}

	outgoing, err := s.engine.Store.OutgoingEdges(conceptID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"concept": concept,
		"edges":   outgoing,
	})
}

func (s *Server) handleConceptsByDomain(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")

	concepts, err := s.db.ConceptsByDomain(domain)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"domain":   domain,
		"concepts": concepts,
	})
}

func (s *Server) handleTrustOverview(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "personID")

	states, err := s.engine.TrustOverview(personID, asOfParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trust": states})
}

func (s *Server) handleGetTrust(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "personID")
	conceptID := chi.URLParam(r, "conceptID")

	state, err := s.engine.Trust(personID, conceptID, asOfParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleDecayReport(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "personID")

	report, err := s.engine.DecayReport(personID, asOfParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decayed": report})
}

func (s *Server) handleCalibration(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "personID")

	report, err := s.engine.Calibration(personID, asOfParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"report":      report,
		"explanation": s.engine.ExplainCalibration(report),
	})
}

func (s *Server) handleCheckBundle(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "personID")
	bundle := chi.URLParam(r, "bundle")

	checks, err := s.engine.CheckBundle(personID, bundle, asOfParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	met := true
	for _, c := range checks {
		if !c.Met {
			met = false
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bundle": bundle,
		"met":    met && len(checks) > 0,
		"checks": checks,
	})
}
