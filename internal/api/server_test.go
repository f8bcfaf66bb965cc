package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sentinelsoc/triage-engine/internal/engine"
	"github.com/sentinelsoc/triage-engine/internal/generator"
	"github.com/sentinelsoc/triage-engine/internal/models"
	"github.com/sentinelsoc/triage-engine/internal/patterns"
	"github.com/sentinelsoc/triage-engine/internal/repo"
	"github.com/sentinelsoc/triage-engine/internal/services"
	"github.com/sentinelsoc/triage-engine/internal/store"
)

var anchor = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	planner, err := engine.NewPlanner()
	if err != nil {
		t.Fatalf("NewPlanner: %v", err)
	}
	evidence := repo.NewMemoryEvidence(1, anchor)
	snap := repo.NewSnapshotter(evidence, nil, nil, time.Hour, 30*24*time.Hour)
	coord := engine.NewCoordinator(snap, planner, engine.CoordinatorConfig{}, nil)

	st := store.NewMemoryStore(50)
	t.Cleanup(func() { st.Close() })

	gen := generator.New(1, func() time.Time { return anchor })
	svc := services.NewTriageService(coord, st, gen, nil)
	return NewServer(":0", svc, nil)
}

func postSignal(t *testing.T, srv *Server, signal models.ThreatSignal) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(signal)
	if err != nil {
		t.Fatalf("marshal signal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func validSignal() models.ThreatSignal {
	return models.ThreatSignal{
		ID:           "sig-api-1",
		Category:     models.CategoryCredentialStuffing,
		Customer:     "acme-corp",
		SourceIP:     "203.0.113.50",
		RequestCount: 500,
		Window:       5 * time.Minute,
		DetectedAt:   anchor,
	}
}

func TestSubmitAndFetchAnalysis(t *testing.T) {
	srv := newTestServer(t)

	rec := postSignal(t, srv, validSignal())
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body)
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.ID == "" || len(result.Findings) != 5 {
		t.Fatalf("incomplete result: id=%q findings=%d", result.ID, len(result.Findings))
	}
	if result.Severity != models.SeverityHigh && result.Severity != models.SeverityCritical {
		t.Errorf("severity = %s", result.Severity)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+result.ID, nil)
	getRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(getRec, req)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status = %d", getRec.Code)
	}

	var fetched models.AnalysisResult
	if err := json.Unmarshal(getRec.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decode fetched: %v", err)
	}
	if fetched.ID != result.ID {
		t.Errorf("fetched %s, want %s", fetched.ID, result.ID)
	}
	if fetched.FalsePositive.Recommendation != result.FalsePositive.Recommendation {
		t.Error("recommendation did not round-trip")
	}
}

func TestSubmitRejectsInvalidSignal(t *testing.T) {
	srv := newTestServer(t)

	bad := validSignal()
	bad.Category = "nonsense"
	rec := postSignal(t, srv, bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSubmitRejectsMalformedJSON(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetUnknownAnalysisReturns404(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/an-missing", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGenerateScenarioEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses/generate?scenario="+generator.ScenarioBenignCrawler, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.FalsePositive.Recommendation != models.RecommendationLikelyFalsePositive {
		t.Errorf("benign crawler recommendation = %s", result.FalsePositive.Recommendation)
	}
	if result.Plan.Primary.Kind != models.ActionMonitor {
		t.Errorf("benign crawler primary = %s", result.Plan.Primary.Kind)
	}

	badReq := httptest.NewRequest(http.MethodPost, "/api/v1/analyses/generate?scenario=zero_day", nil)
	badRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(badRec, badReq)
	if badRec.Code != http.StatusBadRequest {
		t.Errorf("unknown scenario status = %d, want 400", badRec.Code)
	}
}

func TestListAndDashboard(t *testing.T) {
	srv := newTestServer(t)

	for i := 0; i < 3; i++ {
		signal := validSignal()
		signal.ID = fmt.Sprintf("sig-api-%d", i)
		if rec := postSignal(t, srv, signal); rec.Code != http.StatusCreated {
			t.Fatalf("submit %d status = %d", i, rec.Code)
		}
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/analyses?limit=2", nil)
	listRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(listRec, listReq)
	if listRec.Code != http.StatusOK {
		t.Fatalf("list status = %d", listRec.Code)
	}
	var listBody struct {
		Analyses []models.AnalysisResult `json:"analyses"`
		Count    int                     `json:"count"`
	}
	if err := json.Unmarshal(listRec.Body.Bytes(), &listBody); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if listBody.Count != 2 {
		t.Errorf("list count = %d, want 2", listBody.Count)
	}

	dashReq := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	dashRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(dashRec, dashReq)
	if dashRec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", dashRec.Code)
	}
	var stats patterns.DashboardStats
	if err := json.Unmarshal(dashRec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if stats.Retained != 3 {
		t.Errorf("retained = %d, want 3", stats.Retained)
	}
	if stats.ByCategory["credential_stuffing"] != 3 {
		t.Errorf("by category = %v", stats.ByCategory)
	}
}

func TestStreamDeliversAnalyses(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/stream", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stream status = %d", resp.StatusCode)
	}

	// Give the subscription a moment to register before triggering a save.
	time.Sleep(50 * time.Millisecond)
	if rec := postSignal(t, srv, validSignal()); rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d", rec.Code)
	}

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if !strings.HasPrefix(line, "data: ") {
		t.Fatalf("unexpected stream line %q", line)
	}
	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &result); err != nil {
		t.Fatalf("decode streamed analysis: %v", err)
	}
	if result.Signal.ID != "sig-api-1" {
		t.Errorf("streamed signal = %s", result.Signal.ID)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}
