package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"hourglass/internal/config"
	"hourglass/internal/db"
	"hourglass/internal/domain"
	"hourglass/internal/engine"
	"hourglass/internal/migrate"
)

const testSecret = "test-secret"

var testNow = time.Date(2024, time.May, 10, 9, 0, 0, 0, time.UTC)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, allowDev bool) (*testServer, func()) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := engine.New(conn, config.Default(), logger)
	e.Now = func() time.Time { return testNow }
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v1",
		Auth:     AuthConfig{JWTSecret: testSecret, AllowDevIdentity: allowDev},
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String() + "/v1",
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	reader := bytes.NewReader(nil)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func as(user string) map[string]string {
	return map[string]string{DevIdentityHeader: user}
}

func bearer(t *testing.T, subject string) map[string]string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + signed}
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode %s: %v", string(data), err)
	}
	return out
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestHealthIsOpenAndAPIRequiresIdentity(t *testing.T) {
	srv, cleanup := newTestServer(t, false)
	defer cleanup()
	client := srv.Client()

	res, body := doJSON(t, client, http.MethodGet, srv.URL+"/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(body))
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/objectives/2024", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", res.StatusCode, string(body))
	}
	if eb := decode[errorBody](t, body); eb.Code != "unauthorized" || eb.Error == "" {
		t.Fatalf("unexpected error body %s", string(body))
	}

	// dev identity is ignored unless enabled
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/objectives/2024", nil, as("u1"))
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("dev header accepted while disabled: %d", res.StatusCode)
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/objectives/2024", nil, map[string]string{"Authorization": "Bearer nope"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token accepted: %d %s", res.StatusCode, string(body))
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/objectives/2024", nil, bearer(t, "u1"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("jwt request status %d: %s", res.StatusCode, string(body))
	}
}

func TestObjectiveRollupsAndSummary(t *testing.T) {
	srv, cleanup := newTestServer(t, true)
	defer cleanup()
	client := srv.Client()

	create := func(user, level, date string) domain.Objective {
		t.Helper()
		res, body := doJSON(t, client, http.MethodPost, srv.URL+"/objectives", map[string]any{
			"level":          level,
			"objective_date": date,
		}, as(user))
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("create objective status %d: %s", res.StatusCode, string(body))
		}
		return decode[domain.Objective](t, body)
	}
	mine := create("u1", "day", "2024-05-10")
	done := create("u1", "day", "2024-05-10")
	create("u2", "day", "2024-05-10")
	create("u1", "month", "2024-05-01")
	create("u1", "year", "2024-01-01")

	res, body := doJSON(t, client, http.MethodPatch, srv.URL+"/objectives/"+done.ID, map[string]any{"progress": 1.0}, as("u1"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update objective status %d: %s", res.StatusCode, string(body))
	}
	if updated := decode[domain.Objective](t, body); updated.CompletedTS == nil {
		t.Fatalf("completed_ts not stamped: %s", string(body))
	}

	type rollupBody struct {
		Objectives struct {
			Day   []domain.Objective `json:"day"`
			Month []domain.Objective `json:"month"`
			Year  []domain.Objective `json:"year"`
		} `json:"objectives"`
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/objectives/2024/5/10", nil, as("u1"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("day rollup status %d: %s", res.StatusCode, string(body))
	}
	day := decode[rollupBody](t, body)
	if len(day.Objectives.Day) != 2 || len(day.Objectives.Month) != 0 || len(day.Objectives.Year) != 0 {
		t.Fatalf("unexpected day rollup: %s", string(body))
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/objectives/2024/5/10?everyone=true", nil, as("u1"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unscoped rollup status %d: %s", res.StatusCode, string(body))
	}
	if got := decode[rollupBody](t, body); len(got.Objectives.Day) != 3 {
		t.Fatalf("expected 3 day objectives for everyone, got %s", string(body))
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/objectives/2024/5", nil, as("u1"))
	if got := decode[rollupBody](t, body); res.StatusCode != http.StatusOK || len(got.Objectives.Month) != 1 {
		t.Fatalf("month rollup %d: %s", res.StatusCode, string(body))
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/objectives/2024/5/10/all", nil, as("u1"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("all levels status %d: %s", res.StatusCode, string(body))
	}
	all := decode[rollupBody](t, body)
	if len(all.Objectives.Day) != 2 || len(all.Objectives.Month) != 1 || len(all.Objectives.Year) != 1 {
		t.Fatalf("unexpected all levels rollup: %s", string(body))
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/objectives/2024/5/10/summary", nil, as("u1"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("summary status %d: %s", res.StatusCode, string(body))
	}
	var summary struct {
		Summary struct {
			User     struct{ Completed, Count int } `json:"user"`
			Everyone struct{ Completed, Count int } `json:"everyone"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(body, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Summary.User.Count != 2 || summary.Summary.User.Completed != 1 ||
		summary.Summary.Everyone.Count != 3 || summary.Summary.Everyone.Completed != 1 {
		t.Fatalf("unexpected summary: %s", string(body))
	}

	res, body = doJSON(t, client, http.MethodDelete, srv.URL+"/objectives/"+mine.ID, nil, as("u1"))
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d: %s", res.StatusCode, string(body))
	}
	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/objectives/2024/5/10", nil, as("u1"))
	if got := decode[rollupBody](t, body); res.StatusCode != http.StatusOK || len(got.Objectives.Day) != 1 {
		t.Fatalf("deleted objective still listed: %s", string(body))
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/events?entity_kind=objective&entity_id="+done.ID, nil, as("u1"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events status %d: %s", res.StatusCode, string(body))
	}
	var history struct {
		Events []struct {
			Type string `json:"type"`
		} `json:"events"`
	}
	if err := json.Unmarshal(body, &history); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(history.Events) != 2 || history.Events[0].Type != "objective.created" || history.Events[1].Type != "objective.updated" {
		t.Fatalf("unexpected history: %s", string(body))
	}
}

func TestInvalidRequestsAreClientErrors(t *testing.T) {
	srv, cleanup := newTestServer(t, true)
	defer cleanup()
	client := srv.Client()

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"february 30", http.MethodGet, "/objectives/2024/2/30", nil, http.StatusBadRequest, "invalid_date"},
		{"month 13", http.MethodGet, "/objectives/2024/13", nil, http.StatusBadRequest, "invalid_date"},
		{"month zero", http.MethodGet, "/objectives/2024/0", nil, http.StatusBadRequest, "invalid_date"},
		{"summary day zero", http.MethodGet, "/objectives/2024/5/0/summary", nil, http.StatusBadRequest, "invalid_date"},
		{"non numeric year", http.MethodGet, "/objectives/abc", nil, http.StatusBadRequest, "bad_request"},
		{"progress above one", http.MethodPatch, "/objectives/x", map[string]any{"progress": 2}, http.StatusBadRequest, "bad_request"},
		{"unknown objective", http.MethodPatch, "/objectives/missing", map[string]any{"progress": 0.5}, http.StatusNotFound, "not_found"},
		{"unknown project", http.MethodGet, "/projects/missing", nil, http.StatusNotFound, "not_found"},
		{"bad objective date", http.MethodPost, "/objectives", map[string]any{"level": "day", "objective_date": "2024-02-30"}, http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, body := doJSON(t, client, tc.method, srv.URL+tc.path, tc.body, as("u1"))
			if res.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d %s", tc.status, res.StatusCode, string(body))
			}
			eb := decode[errorBody](t, body)
			if eb.Error == "" {
				t.Fatalf("missing error message: %s", string(body))
			}
			if tc.code != "" && eb.Code != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, eb.Code)
			}
		})
	}
}

func TestBillingReportOverLedger(t *testing.T) {
	srv, cleanup := newTestServer(t, true)
	defer cleanup()
	client := srv.Client()

	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/projects", map[string]any{
		"id":              "acme",
		"name":            "Acme",
		"hours_sold":      100,
		"hours_sold_unit": "total",
		"hourly_rate":     55,
	}, as("u1"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create project status %d: %s", res.StatusCode, string(body))
	}

	for _, line := range []map[string]any{
		{"id": "may", "amount": 4400, "billed_hours": 80, "invoicing_date": "2024-05-02T00:00:00Z"},
		{"id": "april", "amount": 275, "billed_hours": 5, "invoicing_date": "2024-04-20T00:00:00Z"},
	} {
		res, body = doJSON(t, client, http.MethodPost, srv.URL+"/projects/acme/invoices", line, as("u1"))
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("add line status %d: %s", res.StatusCode, string(body))
		}
	}

	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/projects/acme/tasks", map[string]any{"id": "t1", "title": "Build"}, as("u1"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task status %d: %s", res.StatusCode, string(body))
	}
	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/objectives", map[string]any{
		"level": "day", "objective_date": "2024-05-10", "related_task": "t1",
	}, as("u1"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create objective status %d: %s", res.StatusCode, string(body))
	}
	objective := decode[domain.Objective](t, body)
	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/objectives/"+objective.ID+"/work-entries", map[string]any{"time": 5400}, as("u1"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("log work status %d: %s", res.StatusCode, string(body))
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/projects/billing", nil, as("u1"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("billing status %d: %s", res.StatusCode, string(body))
	}
	var report struct {
		Projects []struct {
			ID                 string               `json:"id"`
			Invoices           []domain.InvoiceLine `json:"invoices"`
			ExecutedHoursMonth float64              `json:"executed_hours_month"`
			ExecutedHoursTotal float64              `json:"executed_hours_total"`
			BilledHoursMonth   float64              `json:"billed_hours_month"`
			BilledAmountMonth  float64              `json:"billed_amount_month"`
			BilledHoursTotal   float64              `json:"billed_hours_total"`
			BilledAmountTotal  float64              `json:"billed_amount_total"`
		} `json:"projects"`
	}
	if err := json.Unmarshal(body, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(report.Projects) != 1 {
		t.Fatalf("expected one project, got %s", string(body))
	}
	row := report.Projects[0]
	if row.ID != "acme" || len(row.Invoices) != 2 {
		t.Fatalf("unexpected row: %s", string(body))
	}
	if row.ExecutedHoursMonth != 1.5 || row.ExecutedHoursTotal != 1.5 {
		t.Fatalf("unexpected executed hours: %+v", row)
	}
	if row.BilledHoursMonth != 80 || row.BilledAmountMonth != 4400 || row.BilledHoursTotal != 85 || row.BilledAmountTotal != 4675 {
		t.Fatalf("unexpected billed figures: %+v", row)
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/projects/acme/invoices/nope", nil, as("u1"))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected missing line 404, got %d %s", res.StatusCode, string(body))
	}
	res, body = doJSON(t, client, http.MethodDelete, srv.URL+"/projects/acme/invoices/april", nil, as("u1"))
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("remove line status %d: %s", res.StatusCode, string(body))
	}
	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/projects/acme", nil, as("u1"))
	if p := decode[domain.Project](t, body); res.StatusCode != http.StatusOK || len(p.Invoices) != 1 || p.Invoices[0].ID != "may" {
		t.Fatalf("unexpected ledger after removal: %s", string(body))
	}

	res, body = doJSON(t, client, http.MethodPatch, srv.URL+"/projects/acme", map[string]any{"active": false}, as("u1"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update project status %d: %s", res.StatusCode, string(body))
	}
	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/projects/billing", nil, as("u1"))
	if err := json.Unmarshal(body, &report); err != nil || res.StatusCode != http.StatusOK || len(report.Projects) != 0 {
		t.Fatalf("inactive project reported: %d %s", res.StatusCode, string(body))
	}
	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/projects/billing?all=true", nil, as("u1"))
	if err := json.Unmarshal(body, &report); err != nil || res.StatusCode != http.StatusOK || len(report.Projects) != 1 {
		t.Fatalf("all projects report: %d %s", res.StatusCode, string(body))
	}
}
