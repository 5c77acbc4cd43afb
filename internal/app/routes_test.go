// internal/app/routes_test.go

package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apppkg "github.com/Strikerin/SalesPerformanceDashboard/internal/app"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/middleware"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/observability"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/repositories/sqlite"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/repositories/sqlrepo"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/services"
	wh "github.com/Strikerin/SalesPerformanceDashboard/internal/workhistory"
)

const (
	adminUser = "admin"
	adminPass = "s3cret"
	jwtSecret = "test-secret"
)

const uploadBody = `[
 {"job_id":"J1","date":"2024-02-10","work_center":"WELD","company_name":"Acme","part_name":"Valve","planned_hours":"10","actual_hours":12},
 {"job_id":"J1","date":"2024-03-05","work_center":"WELD","company_name":"Acme","part_name":"Valve","planned_hours":5,"actual_hours":"5"},
 {"job_id":"J2","date":"2024-08-01","work_center":"PAINT","company_name":"Beta","part_name":"Shaft","planned_hours":8,"actual_hours":6},
 {"job_id":"J3","date":"2023-05-05","work_center":"QA","notes":"NCR rework","company_name":"Acme","part_name":"Valve","planned_hours":2,"actual_hours":4}
]`

func newTestApp(t *testing.T) (*apppkg.App, *observability.Metrics) {
	t.Helper()
	db, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPass), bcrypt.MinCost)
	require.NoError(t, err)

	m := observability.New()
	reports := services.NewReportService(&sqlrepo.WorkHistoryRepo{DB: db}, wh.Normalizer{}, wh.NewOptions(), zap.NewNop())
	reports.Metrics = m
	a := apppkg.New(apppkg.Deps{
		DB:          db,
		Reports:     reports,
		Insights:    &services.InsightService{},
		Metrics:     m,
		Logger:      zap.NewNop(),
		Auth:        middleware.AdminAuthConfig{User: adminUser, PassHash: string(hash), JWTSecret: jwtSecret},
		TokenTTL:    time.Hour,
		CORSOrigins: []string{"https://dash.example.com"},
		Version:     "test",
	})
	return a, m
}

func do(t *testing.T, h http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/login", `{"username":"admin","password":"s3cret"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tok, _ := decode(t, rec)["token"].(string)
	require.NotEmpty(t, tok)
	return tok
}

func upload(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/admin/workhistory/upload", uploadBody,
		map[string]string{"Authorization": "Bearer " + login(t, h)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode(t, rec)["result"].(map[string]any)
	return res["batch_id"].(string)
}

func TestPublicRoutesHealthy(t *testing.T) {
	a, _ := newTestApp(t)
	h := a.Handler()
	for _, p := range []string{"/healthz", "/api/healthz", "/readyz", "/api/readyz"} {
		rec := do(t, h, http.MethodGet, p, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, p)
	}
	assert.NotEmpty(t, do(t, h, http.MethodGet, "/healthz", "", nil).Header().Get("X-Request-ID"))
	rec := do(t, h, http.MethodGet, "/healthz", "", map[string]string{"X-Request-ID": "abc"})
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

// Pastikan /admin/* diproteksi (tanpa auth tidak boleh 200)
func TestAdminRoutesProtected(t *testing.T) {
	a, _ := newTestApp(t)
	h := a.Handler()

	rec := do(t, h, http.MethodGet, "/admin/workhistory/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/admin/workhistory/stats", "", map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/login", `{"username":"admin","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/workhistory/stats", nil)
	req.SetBasicAuth(adminUser, adminPass)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUploadAndReports(t *testing.T) {
	a, _ := newTestApp(t)
	h := a.Handler()
	batch := upload(t, h)

	rec := do(t, h, http.MethodGet, "/api/workhistory/summary/year/2024?top=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rep := decode(t, rec)
	sum := rep["summary"].(map[string]any)
	assert.EqualValues(t, 23, sum["total_actual_hours"])
	assert.EqualValues(t, 2, sum["total_jobs"])
	assert.Len(t, rep["quarterly_summary"], 4)
	assert.Len(t, rep["top_overruns"], 1)

	// no planned hours in an empty year
	rec = do(t, h, http.MethodGet, "/workhistory/summary/year/2010", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "N/A", decode(t, rec)["summary"].(map[string]any)["overrun_percent"])

	for _, p := range []string{
		"/api/workhistory/summary/full",
		"/api/workhistory/summary/yearly",
		"/api/workhistory/summary/customers?year=2024",
		"/api/workhistory/summary/parts?limit=5",
		"/api/workhistory/summary/workcenters?sort=actual_hours",
		"/api/workhistory/metric/actual_hours",
		"/api/workhistory/trends",
		"/api/workhistory/years",
		"/api/workhistory/breakdown/customer?sort=actual_hours",
		"/api/workhistory/ncr/details?year=2023&part=Valve",
		"/api/workhistory/insights/year/2024",
	} {
		rec := do(t, h, http.MethodGet, p, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, "%s: %s", p, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/workhistory/filter?customer=acme&year=2024", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["count"])

	rec = do(t, h, http.MethodPost, "/api/workhistory/filter", `{"part":"shaft"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = do(t, h, http.MethodGet, "/api/workhistory/insights/year/2024", "", nil)
	assert.Equal(t, services.SourceRules, decode(t, rec)["source"])

	tok := login(t, h)
	rec = do(t, h, http.MethodGet, "/admin/workhistory/stats", "", map[string]string{"Authorization": "Bearer " + tok})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 4, decode(t, rec)["total_rows"])

	rec = do(t, h, http.MethodDelete, "/admin/workhistory/batches/"+batch, "", map[string]string{"Authorization": "Bearer " + tok})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 4, decode(t, rec)["deleted"])
	rec = do(t, h, http.MethodDelete, "/admin/workhistory/batches/"+batch, "", map[string]string{"Authorization": "Bearer " + tok})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `workhistory_http_requests_total{code="200",method="GET",route="/api/workhistory/summary/year/{year:[0-9]+}"}`)
	assert.Contains(t, body, "workhistory_records_ingested_total 4")
}

func TestErrorStatuses(t *testing.T) {
	a, _ := newTestApp(t)
	h := a.Handler()
	tok := login(t, h)
	auth := map[string]string{"Authorization": "Bearer " + tok}

	rec := do(t, h, http.MethodPost, "/admin/workhistory/upload", `[{"date":"2024-01-01","work_center":"WELD"}]`, auth)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "validation", body["error"])
	require.Len(t, body["details"], 1)

	rec = do(t, h, http.MethodPost, "/admin/workhistory/upload", `[]`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPost, "/admin/workhistory/upload", `{not json`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPost, "/admin/workhistory/upload", `{"records":[{"job_number":"X1","date":"2024-01-01","work_center":"WELD"}]}`, auth)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/workhistory/summary/year/2024?sort=bogus", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/workhistory/summary/year/12", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/workhistory/summary/customers?year=soon", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/workhistory/metric/vibes", "", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	details := decode(t, rec)["details"].(map[string]any)
	assert.Contains(t, details["supported"], "overrun_cost")

	rec = do(t, h, http.MethodGet, "/api/workhistory/ncr/details?year=2024", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/workhistory/breakdown/planet", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	a, _ := newTestApp(t)
	h := a.Handler()
	hdr := map[string]string{
		"Origin":                        "https://dash.example.com",
		"Access-Control-Request-Method": "POST",
	}
	rec := do(t, h, http.MethodOptions, "/admin/workhistory/upload", "", hdr)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, h, http.MethodGet, "/healthz", "", map[string]string{"Origin": "https://evil.example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, h, http.MethodOptions, "/api/workhistory/years", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, POST, DELETE, OPTIONS", rec.Header().Get("Allow"))
}

func TestStream(t *testing.T) {
	a, _ := newTestApp(t)
	h := a.Handler()
	upload(t, h)

	rec := do(t, h, http.MethodGet, "/api/workhistory/stream", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event: year\n"))
	assert.Less(t, strings.Index(body, `"year":2023`), strings.Index(body, `"year":2024`))
	assert.True(t, strings.HasSuffix(body, "event: done\ndata: {\"years\":[2023,2024]}\n\n"))
}
