package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"controltower/internal/backoff"
	"controltower/internal/database"
	"controltower/internal/events"
	"controltower/internal/health"
	"controltower/internal/index"
	"controltower/internal/jobs"
	"controltower/internal/knowledge"
	"controltower/internal/middleware"
	"controltower/internal/mode"
	"controltower/internal/models"
	"controltower/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
)

type testEnv struct {
	app   *fiber.App
	store *events.SQLStore
	audit *services.AuditService
	db    *database.DB
}

// setupTestApp wires the full route table over SQLite and the given live index
func setupTestApp(t *testing.T, liveIndex index.Backend) *testEnv {
	db, err := database.New("sqlite://:memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := events.NewSQLStore(db, backoff.Policy{Timeout: 2 * time.Second})
	selector := mode.NewDefaultSelector(liveIndex, store)

	healthSvc := health.NewService(3, time.Second)
	healthSvc.Register(health.ComponentIndex, nil)
	healthSvc.Register(health.ComponentEventStore, nil)
	metrics := services.NewMetrics(prometheus.NewRegistry(), healthSvc)

	registry := knowledge.NewRegistryHolder(knowledge.NewRegistry(knowledge.DefaultCustomers))
	knowledgeSvc := services.NewKnowledgeService(registry, index.FixedLimit(5), healthSvc, metrics)
	precedentSvc := services.NewPrecedentService(healthSvc, metrics)
	auditSvc := services.NewAuditService("test-agent", time.Second, nil, metrics)
	statsSvc := services.NewStatsService(time.Minute, healthSvc)

	app := fiber.New()
	app.Use(requestid.New())
	app.Use(middleware.SimulationMode())

	healthHandler := NewHealthHandler(healthSvc, nil)
	knowledgeHandler := NewKnowledgeHandler(selector, knowledgeSvc)
	historyHandler := NewHistoryHandler(selector, precedentSvc)
	actionHandler := NewActionHandler(selector, auditSvc)
	dashboardHandler := NewDashboardHandler(selector, statsSvc)

	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.Handle)
	app.Post("/search", knowledgeHandler.Search)
	app.Get("/list_docs", knowledgeHandler.ListDocs)
	app.Post("/import_documents", knowledgeHandler.Import)
	app.Post("/get_similar_events", historyHandler.SimilarEvents)
	app.Post("/update_eta", actionHandler.UpdateETA)
	app.Post("/request_reshipment", actionHandler.RequestReshipment)
	app.Post("/escalate_to_human", actionHandler.EscalateToHuman)
	app.Post("/resolve_human_task", actionHandler.ResolveHumanTask)
	app.Get("/dashboard/stats", dashboardHandler.Stats)

	return &testEnv{app: app, store: store, audit: auditSvc, db: db}
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string, simulate bool) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if simulate {
		req.Header.Set("X-Simulation-Mode", "true")
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("Failed to decode response %s: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

func decisionRows(t *testing.T, db *database.DB) []models.DecisionLogRecord {
	t.Helper()
	rows, err := db.Query(`SELECT log_id, event_id, agent_version, trigger_type, confidence_score, action_name, tool_parameters FROM agent_decisions`)
	if err != nil {
		t.Fatalf("Failed to query decisions: %v", err)
	}
	defer rows.Close()

	var recs []models.DecisionLogRecord
	for rows.Next() {
		var r models.DecisionLogRecord
		if err := rows.Scan(&r.LogID, &r.EventID, &r.AgentVersion, &r.TriggerType, &r.Confidence, &r.ActionName, &r.ToolParameters); err != nil {
			t.Fatalf("Failed to scan decision: %v", err)
		}
		recs = append(recs, r)
	}
	return recs
}

func TestRoot(t *testing.T) {
	env := setupTestApp(t, index.NewFixtureBackend(nil))

	status, body := doJSON(t, env.app, "GET", "/", "", false)
	if status != 200 || body["status"] != "serving" {
		t.Errorf("Expected serving, got %d %v", status, body)
	}
}

func TestHealthHandler(t *testing.T) {
	env := setupTestApp(t, index.NewFixtureBackend(nil))

	status, body := doJSON(t, env.app, "GET", "/health", "", false)
	if status != 200 {
		t.Fatalf("Expected 200, got %d", status)
	}
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy, got %v", body["status"])
	}
	if components, ok := body["components"].([]interface{}); !ok || len(components) != 2 {
		t.Errorf("Expected two components, got %v", body["components"])
	}
}

type fixedJobs map[string]jobs.JobStatus

func (f fixedJobs) GetStatus() map[string]jobs.JobStatus { return f }

func TestHealthHandler_ReportsJobs(t *testing.T) {
	healthSvc := health.NewService(3, time.Second)
	healthSvc.Register(health.ComponentIndex, nil)

	next := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	app := fiber.New()
	app.Get("/health", NewHealthHandler(healthSvc, fixedJobs{
		"backend-health": {Name: "backend-health", NextRunTime: next, Registered: true},
	}).Handle)

	status, body := doJSON(t, app, "GET", "/health", "", false)
	if status != 200 {
		t.Fatalf("Expected 200, got %d", status)
	}
	jobList, ok := body["jobs"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected jobs in body, got %v", body)
	}
	job, ok := jobList["backend-health"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected backend-health job, got %v", jobList)
	}
	if job["next_run_time"] != "2026-01-02T03:04:00Z" {
		t.Errorf("Expected next run time, got %v", job["next_run_time"])
	}
}

func TestHealthHandler_OmitsJobsWithoutScheduler(t *testing.T) {
	env := setupTestApp(t, index.NewFixtureBackend(nil))

	_, body := doJSON(t, env.app, "GET", "/health", "", false)
	if _, ok := body["jobs"]; ok {
		t.Errorf("Expected no jobs key, got %v", body["jobs"])
	}
}

func TestSearch_SimulationFiltersCompetitors(t *testing.T) {
	env := setupTestApp(t, index.NewUnavailableBackend("not configured"))

	status, body := doJSON(t, env.app, "POST", "/search", `{"query":"TechGiant late shipment inventory"}`, true)
	if status != 200 || body["status"] != "success" {
		t.Fatalf("Expected success, got %d %v", status, body)
	}

	results := body["results"].([]interface{})
	if len(results) == 0 {
		t.Fatal("Expected simulated results")
	}
	for _, r := range results {
		doc := r.(map[string]interface{})
		text := strings.ToLower(doc["title"].(string) + " " + doc["content"].(string))
		for _, other := range []string{"healthplus", "global retail"} {
			if strings.Contains(text, other) {
				t.Errorf("Document %v mentions competitor %s", doc["id"], other)
			}
		}
	}
}

func TestSearch_BackendFailureDegrades(t *testing.T) {
	env := setupTestApp(t, index.NewUnavailableBackend("not configured"))

	status, body := doJSON(t, env.app, "POST", "/search", `{"query":"late shipment"}`, false)
	if status != 200 {
		t.Fatalf("Expected 200 on backend failure, got %d", status)
	}
	if body["status"] != "error" || body["message"] == "" {
		t.Errorf("Expected error envelope, got %v", body)
	}
	if results, ok := body["results"].([]interface{}); !ok || len(results) != 0 {
		t.Errorf("Expected empty results, got %v", body["results"])
	}
}

func TestSearch_MissingQuery(t *testing.T) {
	env := setupTestApp(t, index.NewFixtureBackend(nil))

	status, body := doJSON(t, env.app, "POST", "/search", `{}`, false)
	if status != 400 || body["status"] != "error" {
		t.Errorf("Expected 400 error, got %d %v", status, body)
	}

	status, _ = doJSON(t, env.app, "POST", "/search", `{not json`, false)
	if status != 400 {
		t.Errorf("Expected 400 for malformed JSON, got %d", status)
	}
}

func TestSimilarEvents_Live(t *testing.T) {
	env := setupTestApp(t, index.NewFixtureBackend(nil))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	seed := []struct {
		id      string
		ev      models.HistoricalEvent
		offsetH int
	}{
		{"R1", models.HistoricalEvent{EventID: "E1", EventType: "LATE_SHIPMENT", Action: "update_eta", Reasoning: "minor delay", Outcome: models.OutcomeSuccess}, 0},
		{"R2", models.HistoricalEvent{EventID: "E2", EventType: "LATE_SHIPMENT", Action: "request_reshipment", Reasoning: "lost", Outcome: models.OutcomeFailure}, 1},
		{"R3", models.HistoricalEvent{EventID: "E3", EventType: "LATE_SHIPMENT_VIP", Action: "request_reshipment", Reasoning: "vip", Outcome: models.OutcomeSuccess}, 2},
	}
	for _, s := range seed {
		if err := env.store.RecordResolution(ctx, s.id, s.ev, base.Add(time.Duration(s.offsetH)*time.Hour)); err != nil {
			t.Fatalf("Failed to seed %s: %v", s.id, err)
		}
	}

	status, body := doJSON(t, env.app, "POST", "/get_similar_events", `{"event_type":"LATE_SHIPMENT"}`, false)
	if status != 200 || body["status"] != "success" {
		t.Fatalf("Expected success, got %d %v", status, body)
	}
	results := body["results"].([]interface{})
	if len(results) != 2 {
		t.Fatalf("Expected 2 successful precedents, got %d", len(results))
	}
	first := results[0].(map[string]interface{})
	if first["event_id"] != "E3" || first["outcome"] != "SUCCESS" || first["action"] != "request_reshipment" {
		t.Errorf("Unexpected first precedent %v", first)
	}
}

func TestSimilarEvents_Simulation(t *testing.T) {
	env := setupTestApp(t, index.NewFixtureBackend(nil))

	status, body := doJSON(t, env.app, "POST", "/get_similar_events", `{"event_type":"CUSTOMS_HOLD","limit":5}`, true)
	if status != 200 {
		t.Fatalf("Expected 200, got %d", status)
	}
	results := body["results"].([]interface{})
	if len(results) != 2 {
		t.Fatalf("Expected 2 simulated precedents, got %d", len(results))
	}
	if results[0].(map[string]interface{})["event_type"] != "CUSTOMS_HOLD" {
		t.Errorf("Expected event type substituted, got %v", results[0])
	}
}

func TestSimilarEvents_MissingEventType(t *testing.T) {
	env := setupTestApp(t, index.NewFixtureBackend(nil))

	status, body := doJSON(t, env.app, "POST", "/get_similar_events", `{"limit":3}`, false)
	if status != 400 || body["status"] != "error" {
		t.Errorf("Expected 400 error, got %d %v", status, body)
	}
}

func TestUpdateETA_AuditsDecision(t *testing.T) {
	env := setupTestApp(t, index.NewFixtureBackend(nil))

	status, body := doJSON(t, env.app, "POST", "/update_eta",
		`{"shipment_id":"SH-1","new_eta":"2026-03-02T10:00:00Z","reason":"weather","reasoning":"SLA allows update","metadata":{"event_id":"EVT-9","customer_tier":"GOLD"}}`, false)
	if status != 200 || body["status"] != "success" || body["updated_eta"] != "2026-03-02T10:00:00Z" {
		t.Fatalf("Unexpected response %d %v", status, body)
	}

	env.audit.Wait()
	recs := decisionRows(t, env.db)
	if len(recs) != 1 {
		t.Fatalf("Expected one decision row, got %d", len(recs))
	}
	rec := recs[0]
	if rec.EventID != "EVT-9" || rec.TriggerType != models.TriggerLateShipment || rec.Confidence != 0.95 || rec.AgentVersion != "test-agent" {
		t.Errorf("Unexpected decision %+v", rec)
	}
	if !strings.Contains(rec.ToolParameters, `"shipment_id":"SH-1"`) {
		t.Errorf("Expected request body in tool_parameters, got %s", rec.ToolParameters)
	}
}

func TestRequestReshipment(t *testing.T) {
	env := setupTestApp(t, index.NewFixtureBackend(nil))

	status, body := doJSON(t, env.app, "POST", "/request_reshipment",
		`{"original_shipment_id":"SH-2","metadata":{"confidence":0.7}}`, false)
	if status != 200 || body["status"] != "success" {
		t.Fatalf("Unexpected response %d %v", status, body)
	}
	if !strings.HasPrefix(body["new_order_id"].(string), "ORD-RESHIP-") || len(body["new_order_id"].(string)) != len("ORD-RESHIP-")+8 {
		t.Errorf("Unexpected order id %v", body["new_order_id"])
	}
	tracking := body["tracking_id"].(string)
	if !strings.HasPrefix(tracking, "TRK-") || tracking != strings.ToUpper(tracking) || len(tracking) != 14 {
		t.Errorf("Unexpected tracking id %s", tracking)
	}
	if body["carrier"] != "FedEx Priority" || body["priority"] != "STANDARD" {
		t.Errorf("Unexpected carrier/priority %v", body)
	}

	env.audit.Wait()
	recs := decisionRows(t, env.db)
	if len(recs) != 1 || recs[0].Confidence != 0.7 || recs[0].EventID != models.UnknownEventID {
		t.Errorf("Expected caller confidence and unknown event id, got %+v", recs)
	}
}

func TestEscalateToHuman(t *testing.T) {
	env := setupTestApp(t, index.NewFixtureBackend(nil))

	status, body := doJSON(t, env.app, "POST", "/escalate_to_human", `{"shipment_id":"SH-3","reason":"damaged pallets"}`, false)
	if status != 200 || body["status"] != "escalated" {
		t.Fatalf("Unexpected response %d %v", status, body)
	}
	if ticket := body["ticket_id"].(string); !strings.HasPrefix(ticket, "TKT-") || len(ticket) != 12 {
		t.Errorf("Unexpected ticket id %s", ticket)
	}

	env.audit.Wait()
	recs := decisionRows(t, env.db)
	if len(recs) != 1 || recs[0].TriggerType != models.TriggerEscalation || recs[0].Confidence != 1 {
		t.Errorf("Unexpected decision %+v", recs)
	}
}

func TestResolveHumanTask(t *testing.T) {
	env := setupTestApp(t, index.NewFixtureBackend(nil))

	status, body := doJSON(t, env.app, "POST", "/resolve_human_task", `{"event_id":"EVT-5","action":"approve_refund","reason":"customer goodwill"}`, false)
	if status != 200 || body["status"] != "resolved" {
		t.Fatalf("Unexpected response %d %v", status, body)
	}

	env.audit.Wait()
	recs := decisionRows(t, env.db)
	if len(recs) != 1 {
		t.Fatalf("Expected one decision, got %d", len(recs))
	}
	if recs[0].AgentVersion != models.HumanSupervisor || recs[0].ActionName != "approve_refund" || recs[0].TriggerType != models.TriggerHumanResolution {
		t.Errorf("Unexpected decision %+v", recs[0])
	}
}

func TestActions_MissingIdentifier(t *testing.T) {
	env := setupTestApp(t, index.NewFixtureBackend(nil))

	for _, path := range []string{"/update_eta", "/request_reshipment", "/escalate_to_human", "/resolve_human_task"} {
		status, body := doJSON(t, env.app, "POST", path, `{"reason":"x"}`, false)
		if status != 400 || body["status"] != "error" {
			t.Errorf("%s: expected 400 error, got %d %v", path, status, body)
		}
	}

	env.audit.Wait()
	if recs := decisionRows(t, env.db); len(recs) != 0 {
		t.Errorf("Expected no decisions for rejected calls, got %d", len(recs))
	}
}

func TestActions_SimulationSkipsAudit(t *testing.T) {
	env := setupTestApp(t, index.NewFixtureBackend(nil))

	status, _ := doJSON(t, env.app, "POST", "/update_eta", `{"shipment_id":"SH-1","new_eta":"tomorrow"}`, true)
	if status != 200 {
		t.Fatalf("Expected 200, got %d", status)
	}

	env.audit.Wait()
	if recs := decisionRows(t, env.db); len(recs) != 0 {
		t.Errorf("Expected no decisions in simulation, got %d", len(recs))
	}
}

func TestDashboardStats(t *testing.T) {
	env := setupTestApp(t, index.NewFixtureBackend(nil))

	for i := 0; i < 2; i++ {
		doJSON(t, env.app, "POST", "/update_eta", `{"shipment_id":"SH-1","new_eta":"tomorrow"}`, false)
	}
	env.audit.Wait()

	req := httptest.NewRequest("GET", "/dashboard/stats?days=abc", nil)
	resp, err := env.app.Test(req)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	var stats []models.DailyActionCount
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if len(stats) != 1 || stats[0].Action != "update_eta" || stats[0].Count != 2 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestListDocsAndImport_Simulation(t *testing.T) {
	env := setupTestApp(t, index.NewUnavailableBackend("not configured"))

	status, body := doJSON(t, env.app, "GET", "/list_docs", "", true)
	if status != 200 || body["count"].(float64) != 3 {
		t.Errorf("Expected three fixture documents, got %d %v", status, body)
	}

	status, body = doJSON(t, env.app, "POST", "/import_documents", "", true)
	if status != 200 || body["status"] != "started" {
		t.Errorf("Expected simulated import to start, got %d %v", status, body)
	}

	status, body = doJSON(t, env.app, "GET", "/list_docs", "", false)
	if status != 500 || body["status"] != "error" {
		t.Errorf("Expected 500 from unconfigured index, got %d %v", status, body)
	}
}
