package controller

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ms-annotation-be/internal/config"
	"ms-annotation-be/internal/model"
	"ms-annotation-be/internal/pkg/logger"
	"ms-annotation-be/internal/pkg/serverutils"
	"ms-annotation-be/internal/repository/implementation"
	"ms-annotation-be/internal/service"
	"ms-annotation-be/pkg/database"
	"ms-annotation-be/pkg/launcher"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	app *fiber.App
	cfg config.JobFactoryConfig
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	root := t.TempDir()

	daemon := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://daemon.example/job/1")
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(daemon.Close)

	metaDB, err := database.NewMetaDB(filepath.Join(root, "jobmeta.db"))
	require.NoError(t, err)
	require.NoError(t, metaDB.AutoMigrate(&model.JobMeta{}))
	t.Cleanup(func() { database.Close(metaDB) })

	cfg := config.JobFactoryConfig{
		RootDir:        filepath.Join(root, "jobs"),
		DbFilename:     "results.db",
		ScriptFilename: "script.sh",
		LauncherURL:    daemon.URL,
	}

	sysLogger := logger.NewZapLogger(filepath.Join(root, "api.log"), false)
	metaRepo := implementation.NewJobMetaRepository(metaDB)
	factory := service.NewJobFactory(cfg, metaRepo, launcher.NewClient(cfg.LauncherURL, 5*time.Second), nil, sysLogger)
	callbackURL := func(jobID uuid.UUID) string {
		return "http://backend.example/api/job/v1/" + jobID.String() + "/state"
	}
	jobService := service.NewJobService(factory, metaRepo, nil, callbackURL, sysLogger)
	resultsService := service.NewResultsService(factory)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	NewJobController(jobService).RegisterRoutes(api)
	NewResultsController(resultsService).RegisterRoutes(api)

	return &apiFixture{app: app, cfg: cfg}
}

func (fx *apiFixture) request(t *testing.T, method, path, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User", "tester")

	resp, err := fx.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var decoded map[string]interface{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	} else {
		decoded = map[string]interface{}{"raw": string(raw)}
	}
	return resp, decoded
}

func (fx *apiFixture) createJob(t *testing.T) string {
	t.Helper()
	resp, body := fx.request(t, http.MethodPost, "/api/job/v1", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	return data["jobid"].(string)
}

// seedResults fills a created job's store with one scan, one molecule and
// one root fragment.
func (fx *apiFixture) seedResults(t *testing.T, jobID string) {
	t.Helper()
	conn, err := database.OpenResultStore(filepath.Join(fx.cfg.RootDir, jobID, fx.cfg.DbFilename))
	require.NoError(t, err)
	defer database.Close(conn)

	require.NoError(t, conn.Create(&model.Run{
		Description: "seeded", MsFilename: "seed.mzxml",
		MsIntensityCutoff: 1000, MsmsIntensityCutoff: 0.05, MzPrecision: 5,
	}).Error)
	require.NoError(t, conn.Create(&model.Molecule{
		MolID: 1, Mol: "molblock", Name: "adenine", Formula: "C5H5N5",
		RefScore: 1.0, Mim: 135.0545, NHits: 1,
	}).Error)
	require.NoError(t, conn.Create(&model.Scan{
		ScanID: 1, MsLevel: 1, Rt: 0.5, BasePeakIntensity: 5000,
	}).Error)
	require.NoError(t, conn.Create(&model.Peak{
		ScanID: 1, Mz: 136.0618, Intensity: 5000,
	}).Error)
	require.NoError(t, conn.Create(&model.Fragment{
		FragID: 1, ScanID: 1, MolID: 1, ParentFragID: 0,
		Mz: 136.0618, Mass: 135.0545, Score: 1, Formula: "C5H5N5",
	}).Error)
}

func TestJobLifecycleOverHTTP(t *testing.T) {
	fx := newAPIFixture(t)

	jobID := fx.createJob(t)

	// show
	resp, body := fx.request(t, http.MethodGet, "/api/job/v1/"+jobID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "STOPPED", data["state"])
	assert.Equal(t, "tester", data["owner"])

	// update
	resp, _ = fx.request(t, http.MethodPut, "/api/job/v1/"+jobID,
		`{"description":"via api","is_public":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = fx.request(t, http.MethodGet, "/api/job/v1/"+jobID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data = body["data"].(map[string]interface{})
	assert.Equal(t, "via api", data["description"])
	assert.Equal(t, true, data["is_public"])

	// submit flips the job to PENDING
	resp, _ = fx.request(t, http.MethodPost, "/api/job/v1/"+jobID+"/submit",
		`{"script":"annotate {db}"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = fx.request(t, http.MethodGet, "/api/job/v1/"+jobID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data = body["data"].(map[string]interface{})
	assert.Equal(t, "PENDING", data["state"])

	// daemon status callback
	resp, _ = fx.request(t, http.MethodPut, "/api/job/v1/"+jobID+"/state", "STOPPED")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = fx.request(t, http.MethodGet, "/api/job/v1/"+jobID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data = body["data"].(map[string]interface{})
	assert.Equal(t, "STOPPED", data["state"])

	// delete
	resp, _ = fx.request(t, http.MethodDelete, "/api/job/v1/"+jobID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = fx.request(t, http.MethodGet, "/api/job/v1/"+jobID, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestJobListOverHTTP(t *testing.T) {
	fx := newAPIFixture(t)
	first := fx.createJob(t)
	second := fx.createJob(t)

	resp, body := fx.request(t, http.MethodGet, "/api/job/v1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["total"])
	rows := data["rows"].([]interface{})
	require.Len(t, rows, 2)
	assert.Equal(t, second, rows[0].(map[string]interface{})["jobid"])

	// paging keeps the full count
	resp, body = fx.request(t, http.MethodGet, "/api/job/v1?start=1&limit=1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data = body["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["total"])
	rows = data["rows"].([]interface{})
	require.Len(t, rows, 1)
	assert.Equal(t, first, rows[0].(map[string]interface{})["jobid"])

	// nobody shared anything yet
	resp, body = fx.request(t, http.MethodGet, "/api/job/v1?public=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data = body["data"].(map[string]interface{})
	assert.Equal(t, float64(0), data["total"])
}

func TestJobNotFoundOverHTTP(t *testing.T) {
	fx := newAPIFixture(t)

	resp, _ := fx.request(t, http.MethodGet, "/api/job/v1/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = fx.request(t, http.MethodGet, "/api/job/v1/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCloneOverHTTP(t *testing.T) {
	fx := newAPIFixture(t)
	jobID := fx.createJob(t)

	resp, body := fx.request(t, http.MethodPost, "/api/job/v1/"+jobID+"/clone", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, jobID, data["parentjobid"])
	assert.NotEqual(t, jobID, data["jobid"])
}

func TestResultsInfoOverHTTP(t *testing.T) {
	fx := newAPIFixture(t)
	jobID := fx.createJob(t)
	fx.seedResults(t, jobID)

	resp, body := fx.request(t, http.MethodGet, "/api/results/v1/"+jobID+"/info", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "seed.mzxml", data["ms_filename"])
	assert.Equal(t, float64(5), data["mz_precision"])
	assert.Equal(t, float64(1), data["maxmslevel"])
}

func TestMoleculesOverHTTP(t *testing.T) {
	fx := newAPIFixture(t)
	jobID := fx.createJob(t)
	fx.seedResults(t, jobID)

	resp, body := fx.request(t, http.MethodGet, "/api/results/v1/"+jobID+"/molecules", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["total"])
	rows := data["rows"].([]interface{})
	require.Len(t, rows, 1)
	assert.Equal(t, "adenine", rows[0].(map[string]interface{})["name"])
}

func TestMoleculesFilterOverHTTP(t *testing.T) {
	fx := newAPIFixture(t)
	jobID := fx.createJob(t)
	fx.seedResults(t, jobID)

	filter := url.QueryEscape(`[{"field":"name","type":"string","value":"xanthine"}]`)
	resp, body := fx.request(t, http.MethodGet,
		"/api/results/v1/"+jobID+"/molecules?filter="+filter, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(0), data["total"])
}

func TestMoleculesBadFilterOverHTTP(t *testing.T) {
	fx := newAPIFixture(t)
	jobID := fx.createJob(t)
	fx.seedResults(t, jobID)

	for _, query := range []string{
		"filter=" + url.QueryEscape(`[{"field":"name","type":"telepathic","value":"x"}]`),
		"sort=" + url.QueryEscape(`[{"property":"score","direction":"DESC"}]`),
	} {
		resp, _ := fx.request(t, http.MethodGet,
			"/api/results/v1/"+jobID+"/molecules?"+query, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
	}
}

func TestMoleculesCSVOverHTTP(t *testing.T) {
	fx := newAPIFixture(t)
	jobID := fx.createJob(t)
	fx.seedResults(t, jobID)

	resp, body := fx.request(t, http.MethodGet, "/api/results/v1/"+jobID+"/molecules.csv", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, body["raw"].(string), "adenine")
}

func TestChromatogramOverHTTP(t *testing.T) {
	fx := newAPIFixture(t)
	jobID := fx.createJob(t)
	fx.seedResults(t, jobID)

	resp, body := fx.request(t, http.MethodGet, "/api/results/v1/"+jobID+"/chromatogram", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	scans := data["scans"].([]interface{})
	require.Len(t, scans, 1)
}

func TestMSpectraOverHTTP(t *testing.T) {
	fx := newAPIFixture(t)
	jobID := fx.createJob(t)
	fx.seedResults(t, jobID)

	resp, body := fx.request(t, http.MethodGet, "/api/results/v1/"+jobID+"/mspectra/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["mslevel"])

	resp, _ = fx.request(t, http.MethodGet, "/api/results/v1/"+jobID+"/mspectra/99", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFragmentsOverHTTP(t *testing.T) {
	fx := newAPIFixture(t)
	jobID := fx.createJob(t)
	fx.seedResults(t, jobID)

	resp, body := fx.request(t, http.MethodGet, "/api/results/v1/"+jobID+"/fragments/1/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	children := data["children"].([]interface{})
	require.Len(t, children, 1)

	resp, _ = fx.request(t, http.MethodGet, "/api/results/v1/"+jobID+"/fragments/1/999", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAssignPeakOverHTTP(t *testing.T) {
	fx := newAPIFixture(t)
	jobID := fx.createJob(t)
	fx.seedResults(t, jobID)

	payload := fmt.Sprintf(`{"scanid":1,"mz":%f,"molid":1}`, 136.0618)
	resp, _ := fx.request(t, http.MethodPost, "/api/results/v1/"+jobID+"/assign", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = fx.request(t, http.MethodPost, "/api/results/v1/"+jobID+"/unassign",
		fmt.Sprintf(`{"scanid":1,"mz":%f}`, 136.0618))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// peak far away from anything
	resp, _ = fx.request(t, http.MethodPost, "/api/results/v1/"+jobID+"/assign",
		`{"scanid":1,"mz":999.0,"molid":1}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
