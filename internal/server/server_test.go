package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/credencelabs/credence/internal/engine"
	"github.com/credencelabs/credence/internal/store"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	eng := engine.New(db, engine.DefaultParams())
	return New(db, eng, "test-version")
}

func doJSON(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var decoded map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("%s %s: decode body %q: %v", method, path, w.Body.String(), err)
	}
	return w, decoded
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)

	w, body := doJSON(t, srv, "GET", "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test-version" {
		t.Errorf("version = %v, want test-version", body["version"])
	}
	if body["db"] != true {
		t.Errorf("db = %v, want true", body["db"])
	}
}

func TestLoadPackEndpoint(t *testing.T) {
	srv := testServer(t)

	w, body := doJSON(t, srv, "POST", "/api/pack", `
concepts:
  - id: goroutines
    name: Goroutines
  - id: channels
    name: Channels
edges:
  - from: goroutines
    to: channels
    type: prerequisite
    inference_strength: 0.8
`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %v", w.Code, body)
	}
	if body["loaded"] != float64(2) {
		t.Errorf("loaded = %v, want 2", body["loaded"])
	}
}

func TestLoadPackEndpointRejectsInvalid(t *testing.T) {
	srv := testServer(t)

	w, body := doJSON(t, srv, "POST", "/api/pack", `
concepts:
  - id: goroutines
    name: Goroutines
edges:
  - from: goroutines
    to: phantom
    type: prerequisite
`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	if body["errors"] == nil {
		t.Errorf("body = %v, want errors list", body)
	}
}

func TestVerificationFlow(t *testing.T) {
	srv := testServer(t)

	if w, body := doJSON(t, srv, "POST", "/api/pack",
		"concepts:\n  - id: goroutines\n    name: Goroutines\n"); w.Code != http.StatusOK {
		t.Fatalf("load pack: %d %v", w.Code, body)
	}

	w, body := doJSON(t, srv, "POST", "/api/verifications", `{
		"person_id": "ada",
		"concept_id": "goroutines",
		"modality": "external:application",
		"result": "demonstrated",
		"timestamp": 1000
	}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %v", w.Code, body)
	}
	eventID, _ := body["event_id"].(string)
	if eventID == "" {
		t.Fatal("no event_id in response")
	}
	trust, ok := body["trust"].(map[string]any)
	if !ok || trust["level"] != "verified" {
		t.Errorf("trust = %v", body["trust"])
	}
	if body["explanation"] == nil {
		t.Error("no explanation in response")
	}

	// Decayed read through the query endpoint.
	w, body = doJSON(t, srv, "GET", "/api/trust/ada/goroutines?as_of=1000", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["level"] != "verified" {
		t.Errorf("level = %v", body["level"])
	}
	if body["decayed_confidence"] != 0.9 {
		t.Errorf("decayed_confidence = %v, want 0.9", body["decayed_confidence"])
	}

	// Retract and confirm the state resets.
	w, body = doJSON(t, srv, "POST", "/api/retractions",
		`{"event_id": "`+eventID+`", "reason": "fraudulent", "retracted_by": "auditor"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("retract status = %d, body = %v", w.Code, body)
	}
	if body["retracted"] != true {
		t.Errorf("retracted = %v", body["retracted"])
	}

	_, body = doJSON(t, srv, "GET", "/api/trust/ada/goroutines?as_of=2000", "")
	if body["level"] != "untested" {
		t.Errorf("level after retraction = %v, want untested", body["level"])
	}
}

func TestVerificationEndpointValidation(t *testing.T) {
	srv := testServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", "{"},
		{"missing ids", `{"modality": "external:observed", "result": "demonstrated"}`},
		{"bad result", `{"person_id": "a", "concept_id": "c", "result": "aced"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/verifications", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestClaimAndCalibrationEndpoints(t *testing.T) {
	srv := testServer(t)

	doJSON(t, srv, "POST", "/api/pack", "concepts:\n  - id: goroutines\n    name: Goroutines\n")

	w, body := doJSON(t, srv, "POST", "/api/claims", `{
		"person_id": "ada",
		"concept_id": "goroutines",
		"confidence": 0.8,
		"timestamp": 1000
	}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %v", w.Code, body)
	}
	if body["calibration_gap"] != 0.8 {
		t.Errorf("calibration_gap = %v, want 0.8", body["calibration_gap"])
	}

	w, body = doJSON(t, srv, "GET", "/api/calibration/ada?as_of=1000", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	report, ok := body["report"].(map[string]any)
	if !ok || report["claim_count"] != float64(1) {
		t.Errorf("report = %v", body["report"])
	}
	if body["explanation"] == nil {
		t.Error("no explanation in calibration response")
	}
}

func TestTrustForUnknownConcept(t *testing.T) {
	srv := testServer(t)

	w, body := doJSON(t, srv, "GET", "/api/trust/nobody/nothing", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["level"] != "untested" {
		t.Errorf("level = %v, want untested", body["level"])
	}
}

func TestConceptsByDomainEndpoint(t *testing.T) {
	srv := testServer(t)

	doJSON(t, srv, "POST", "/api/pack", `
concepts:
  - id: goroutines
    name: Goroutines
    domain: concurrency
  - id: slices
    name: Slices
    domain: basics
`)

	w, body := doJSON(t, srv, "GET", "/api/domains/concurrency", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	concepts, ok := body["concepts"].([]any)
	if !ok || len(concepts) != 1 {
		t.Fatalf("concepts = %v", body["concepts"])
	}
	first := concepts[0].(map[string]any)
	if first["id"] != "goroutines" {
		t.Errorf("concept = %v", first)
	}
}

func TestConceptEndpointNotFound(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest("GET", "/api/concepts/phantom", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestPropagateEndpoint(t *testing.T) {
	srv := testServer(t)

	doJSON(t, srv, "POST", "/api/pack", `
concepts:
  - id: goroutines
    name: Goroutines
  - id: channels
    name: Channels
edges:
  - from: goroutines
    to: channels
    type: prerequisite
    inference_strength: 0.8
`)
	doJSON(t, srv, "POST", "/api/verifications", `{
		"person_id": "ada",
		"concept_id": "goroutines",
		"modality": "external:application",
		"result": "demonstrated",
		"timestamp": 1000
	}`)

	w, body := doJSON(t, srv, "POST", "/api/propagate",
		`{"person_id": "ada", "concept_id": "goroutines"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %v", w.Code, body)
	}
	inferred, ok := body["inferred"].([]any)
	if !ok || len(inferred) != 1 {
		t.Fatalf("inferred = %v", body["inferred"])
	}
	first := inferred[0].(map[string]any)
	if first["concept_id"] != "channels" || first["level"] != "inferred" {
		t.Errorf("inferred state = %v", first)
	}
	explanations, ok := body["explanations"].([]any)
	if !ok || len(explanations) != 1 {
		t.Errorf("explanations = %v", body["explanations"])
	}
}
