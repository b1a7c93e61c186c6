package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbr-bioinformatics/cohort-cli/internal/model"
	"github.com/nbr-bioinformatics/cohort-cli/internal/monitoring"
	"github.com/nbr-bioinformatics/cohort-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func newTestMux(t *testing.T, st store.Store) *http.ServeMux {
	t.Helper()
	return buildMux(st, monitoring.NewCollector(st, 0))
}

func TestBuildMux_Health(t *testing.T) {
	st := newTestStore(t)
	mux := newTestMux(t, st)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestBuildMux_ListRuns(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	run1, err := st.CreateRun(ctx, "NBR030")
	require.NoError(t, err)
	require.NoError(t, st.UpdateRunStatus(ctx, run1.ID, model.RunStatusDone))
	_, err = st.CreateRun(ctx, "NBR031")
	require.NoError(t, err)

	mux := newTestMux(t, st)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/runs", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var runs []model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	assert.Len(t, runs, 2)

	// Status filter narrows the list.
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/runs?status=done", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, run1.ID, runs[0].ID)
}

func TestBuildMux_ListRunsBadLimit(t *testing.T) {
	st := newTestStore(t)
	mux := newTestMux(t, st)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/runs?limit=banana", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "limit")
}

func TestBuildMux_GetRun(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	run, err := st.CreateRun(ctx, "NBR030")
	require.NoError(t, err)
	stage, err := st.CreateStage(ctx, run.ID, "discover")
	require.NoError(t, err)
	stage.Status = model.StageStatusComplete
	stage.Detail = "2 batches"
	require.NoError(t, st.CompleteStage(ctx, stage.ID, stage))
	require.NoError(t, st.RecordConflicts(ctx, run.ID, []string{"rs123", "rs456"}))

	mux := newTestMux(t, st)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/runs/"+run.ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var detail runDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &detail))
	assert.Equal(t, run.ID, detail.Run.ID)
	assert.Equal(t, "NBR030", detail.Run.Project)
	require.Len(t, detail.Stages, 1)
	assert.Equal(t, "discover", detail.Stages[0].Name)
	assert.Equal(t, []string{"rs123", "rs456"}, detail.Conflicts)
}

func TestBuildMux_GetRunNotFound(t *testing.T) {
	st := newTestStore(t)
	mux := newTestMux(t, st)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/runs/no-such-run", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "not found")
}

func TestBuildMux_Metrics(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	run, err := st.CreateRun(ctx, "NBR030")
	require.NoError(t, err)
	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusDone))
	_, err = st.CreateRun(ctx, "NBR031")
	require.NoError(t, err)

	mux := newTestMux(t, st)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var snap monitoring.MetricsSnapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, 2, snap.RunsTotal)
	assert.Equal(t, 1, snap.RunsDone)
	assert.Equal(t, 1, snap.RunsInFlight)
	assert.Equal(t, 24, snap.LookbackHours)
}

func TestBuildMux_MetricsBadHours(t *testing.T) {
	st := newTestStore(t)
	mux := newTestMux(t, st)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics?hours=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "hours")
}

func TestBuildMux_MethodNotAllowed(t *testing.T) {
	st := newTestStore(t)
	mux := newTestMux(t, st)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/runs", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
