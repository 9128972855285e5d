package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/manyvis/internal/dispatcher"
	"git.home.luguber.info/inful/manyvis/internal/metrics"
	"git.home.luguber.info/inful/manyvis/internal/state"
)

const systemFile = "testdata/system_2x2.xml"

type testResult struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Payload json.RawMessage `json:"payload"`
}

func newTestServer(t *testing.T, events *EventSubscriber) *Server {
	t.Helper()
	store, err := state.NewStore()
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	d := dispatcher.New(store,
		dispatcher.WithEmitter(events),
		dispatcher.WithRecorder(metrics.NewPrometheusRecorder(reg)),
	)
	srv := NewServer("127.0.0.1:0", d, events, Options{Metrics: metrics.HTTPHandler(reg)})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func call(t *testing.T, srv *Server, method, path, body string) (int, testResult) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var res testResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res), "path %s", path)
	return w.Code, res
}

func parseBody(path string) string {
	b, _ := json.Marshal(map[string]string{"path": path})
	return string(b)
}

func TestRejectedCommandIsLogged(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(previous) })

	srv := newTestServer(t, NewEventSubscriber())
	status, _ := call(t, srv, http.MethodGet, "/diagram", "")
	require.Equal(t, http.StatusPreconditionFailed, status)

	logs := buf.String()
	assert.Contains(t, logs, `"msg":"Command rejected","method":"GET","path":"/diagram","status":412`)
	assert.Contains(t, logs, `"request_id":"`)
	assert.Contains(t, logs, `"category":"not_loaded"`)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, NewEventSubscriber())
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"status":"healthy"}`, w.Body.String())
}

func TestNotLoadedIsPreconditionFailed(t *testing.T) {
	srv := newTestServer(t, NewEventSubscriber())
	code, res := call(t, srv, http.MethodGet, "/diagram", "")
	assert.Equal(t, http.StatusPreconditionFailed, code)
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, "Load a system before generating a render.", res.Message)
}

func TestParseDiagramAndQueries(t *testing.T) {
	srv := newTestServer(t, NewEventSubscriber())

	code, res := call(t, srv, http.MethodPost, "/parse", parseBody(systemFile))
	require.Equal(t, http.StatusOK, code, res.Message)
	assert.Equal(t, "Successfully parsed file", res.Message)

	code, res = call(t, srv, http.MethodGet, "/diagram", "")
	require.Equal(t, http.StatusOK, code)
	var payload dispatcher.DiagramPayload
	require.NoError(t, json.Unmarshal(res.Payload, &payload))
	assert.True(t, strings.HasPrefix(payload.Content, "<svg"))

	code, res = call(t, srv, http.MethodGet, "/info/r3", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"@age":"10","@temperature":"33","@status":"Faulty"}`, string(res.Payload))

	code, _ = call(t, srv, http.MethodGet, "/info/q3", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = call(t, srv, http.MethodPost, "/diagram/update", `{"configuration":{"coreConfig":{"@age":{"type":"Text"}}},"baseConfiguration":{"fontSize":12}}`)
	require.Equal(t, http.StatusOK, code, res.Message)
	assert.Contains(t, string(res.Payload), `"added":["information-core-age"]`)

	code, _ = call(t, srv, http.MethodPost, "/diagram/update", `{"baseConfiguration":{"fontSize":4}}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = call(t, srv, http.MethodGet, "/system", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(res.Payload), "ManycoreSystem")

	code, res = call(t, srv, http.MethodGet, "/attributes", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Ok", res.Message)

	code, _ = call(t, srv, http.MethodGet, "/base-configuration", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestExportEndpoint(t *testing.T) {
	srv := newTestServer(t, NewEventSubscriber())
	call(t, srv, http.MethodPost, "/parse", parseBody(systemFile))
	call(t, srv, http.MethodGet, "/diagram", "")

	code, res := call(t, srv, http.MethodPost, "/export", `{"mode":"png","scale":0.25}`)
	require.Equal(t, http.StatusOK, code, res.Message)
	assert.Equal(t, "Successfully exported PNG", res.Message)
	var artifact struct {
		Extension string `json:"extension"`
		Data      []byte `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Payload, &artifact))
	assert.Equal(t, "png", artifact.Extension)
	assert.Equal(t, []byte("\x89PNG"), artifact.Data[:4])

	code, _ = call(t, srv, http.MethodPost, "/export", `{"mode":"svg","scale":-1,"clipRegion":{"clipPath":"0,0 10,0 10,10","x":0,"y":0,"width":-5,"height":10}}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, srv, http.MethodPost, "/export", `{"mode":"png","scale":0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestBadBody(t *testing.T) {
	srv := newTestServer(t, NewEventSubscriber())
	code, res := call(t, srv, http.MethodPost, "/parse", `{"path":`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid request body", res.Message)
}

func TestRejectsNonJSONBody(t *testing.T) {
	srv := newTestServer(t, NewEventSubscriber())
	req := httptest.NewRequest(http.MethodPost, "/parse", strings.NewReader("path=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestConfigurationStoreAndLoad(t *testing.T) {
	srv := newTestServer(t, NewEventSubscriber())
	call(t, srv, http.MethodPost, "/parse", parseBody(systemFile))
	call(t, srv, http.MethodGet, "/diagram", "")

	target := filepath.Join(t.TempDir(), "layout.json")
	document := `{"baseConfiguration": {"fontSize": 20}, "configuration": {"routerConfig": {"@status": {"type": "Text"}}}}`
	body := `{"path":` + mustJSON(t, target) + `,"document":` + document + `}`

	code, res := call(t, srv, http.MethodPost, "/configuration/store", body)
	require.Equal(t, http.StatusOK, code, res.Message)
	stored, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, document, string(stored))

	code, res = call(t, srv, http.MethodPost, "/configuration/load", parseBody(target))
	require.Equal(t, http.StatusOK, code, res.Message)
	assert.JSONEq(t, document, string(res.Payload))
}

func TestTriggerReportsThroughEvents(t *testing.T) {
	events := NewEventSubscriber()
	srv := newTestServer(t, events)
	ch, unsub := events.Subscribe()
	defer unsub()

	code, res := call(t, srv, http.MethodPost, "/triggers/export_configuration", "")
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "Accepted", res.Message)

	select {
	case ev := <-ch:
		assert.Equal(t, dispatcher.EventError, ev.Type)
		assert.Equal(t, "You must load a system first.", ev.Message)
	case <-time.After(5 * time.Second):
		t.Fatal("no event")
	}
}

func TestTriggerExportDiagramWritesFile(t *testing.T) {
	events := NewEventSubscriber()
	srv := newTestServer(t, events)
	call(t, srv, http.MethodPost, "/parse", parseBody(systemFile))
	call(t, srv, http.MethodGet, "/diagram", "")
	ch, unsub := events.Subscribe()
	defer unsub()

	out := filepath.Join(t.TempDir(), "mesh")
	code, _ := call(t, srv, http.MethodPost, "/triggers/export_diagram", `{"path":`+mustJSON(t, out)+`,"mode":"SVG"}`)
	require.Equal(t, http.StatusAccepted, code)

	select {
	case ev := <-ch:
		assert.Equal(t, "Successfully exported SVG", ev.Message)
	case <-time.After(5 * time.Second):
		t.Fatal("no event")
	}
	assert.FileExists(t, out+".svg")
}

func TestUnknownTrigger(t *testing.T) {
	srv := newTestServer(t, NewEventSubscriber())
	code, res := call(t, srv, http.MethodPost, "/triggers/explode", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Unknown trigger", res.Message)
}

func TestEditWithoutEditor(t *testing.T) {
	srv := newTestServer(t, NewEventSubscriber())
	code, _ := call(t, srv, http.MethodPost, "/edit", "")
	assert.Equal(t, http.StatusFailedDependency, code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, NewEventSubscriber())
	call(t, srv, http.MethodGet, "/diagram", "")

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `manyvis_command_results_total{command="get_diagram",result="error"} 1`)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
