package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaebee/agents-list-sub002/internal/adapter/taskstore"
	"github.com/zaebee/agents-list-sub002/internal/domain"
	"github.com/zaebee/agents-list-sub002/internal/usecase/analysis"
	"github.com/zaebee/agents-list-sub002/internal/usecase/eventbus"
	"github.com/zaebee/agents-list-sub002/internal/usecase/routing"
	"github.com/zaebee/agents-list-sub002/internal/usecase/tasks"
)

const testToken = "test-token"

// newTestAPI wires a real engine and SQLite store behind the HTTP handlers
// and serves them from an httptest server.
func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := taskstore.New(filepath.Join(t.TempDir(), "tasks.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	catalog, err := routing.NewCatalog([]domain.AgentProfile{
		{
			ID:              "backend-architect",
			DisplayName:     "Backend Architect",
			Keywords:        []string{"api", "microservices", "database design"},
			Specializations: []string{"backend"},
		},
		{
			ID:              "frontend-developer",
			DisplayName:     "Frontend Developer",
			Keywords:        []string{"react", "css", "ui"},
			Specializations: []string{"frontend"},
		},
	}, log)
	require.NoError(t, err)

	engine := routing.NewEngine(catalog, nil, nil,
		routing.NewWorkloadBalancer(store, routing.PolicySoft, log), routing.Options{}, log)

	bus := eventbus.New(log)
	t.Cleanup(bus.Close)

	svc := tasks.NewService(store, nil, engine, analysis.NewGateway(), bus, log)

	auth := NewStaticTokenAuth([]TokenEntry{{Token: testToken, Name: "tests"}})
	srv := NewServer(bus, auth, Options{Addr: "127.0.0.1:0"}, log)
	RegisterRoutes(srv, HandlerDeps{
		Tasks:    svc,
		Router:   engine,
		Analyzer: analysis.NewGateway(),
		Catalog:  catalog,
		Logger:   log,
	}, NewMetrics())

	mux := http.NewServeMux()
	for _, route := range srv.httpRoutes {
		mux.HandleFunc(route.pattern, route.handler)
	}
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, data
}

func TestSuggestEndpoint(t *testing.T) {
	ts := newTestAPI(t)

	resp, body := doRequest(t, ts, http.MethodPost, "/api/v1/suggest", SuggestRequest{
		Text: "design a rest api for microservices",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result domain.SuggestResult
	require.NoError(t, json.Unmarshal(body, &result))
	require.NotEmpty(t, result.Suggestions)
	assert.Equal(t, "backend-architect", result.Suggestions[0].AgentID)
	assert.Equal(t, 1, result.Suggestions[0].Rank)
}

func TestSuggestUnknownCategory(t *testing.T) {
	ts := newTestAPI(t)

	resp, body := doRequest(t, ts, http.MethodPost, "/api/v1/suggest", SuggestRequest{
		Text:     "anything",
		Category: "mobile",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var er errorResponse
	require.NoError(t, json.Unmarshal(body, &er))
	assert.Equal(t, string(domain.CodeNoAgentsInCategory), er.Code)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestAPI(t)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/suggest",
		bytes.NewReader([]byte(`{"text":"x"}`)))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAnalyzeEndpoint(t *testing.T) {
	ts := newTestAPI(t)

	resp, body := doRequest(t, ts, http.MethodPost, "/api/v1/analyze", AnalyzeRequest{
		Title: "Urgent: production down after migration",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var a domain.TaskAnalysis
	require.NoError(t, json.Unmarshal(body, &a))
	assert.Equal(t, domain.PriorityUrgent, a.Priority)
	assert.Equal(t, domain.ComplexityComplex, a.Complexity)
	assert.NotEmpty(t, a.RiskNotes)
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	ts := newTestAPI(t)

	resp, body := doRequest(t, ts, http.MethodPost, "/api/v1/tasks", CreateTaskRequest{
		Title: "Tune the database design",
		Body:  "slow api queries",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created tasks.CreateResult
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotEmpty(t, created.Task.ID)
	assert.NotEmpty(t, created.Routing.Suggestions)

	resp, body = doRequest(t, ts, http.MethodPost,
		"/api/v1/tasks/"+created.Task.ID+"/assign", AssignRequest{AgentID: "backend-architect"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var task domain.Task
	require.NoError(t, json.Unmarshal(body, &task))
	assert.Equal(t, domain.TaskStatusAssigned, task.Status)

	resp, body = doRequest(t, ts, http.MethodPost,
		"/api/v1/tasks/"+created.Task.ID+"/complete", CompleteRequest{Success: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &task))
	assert.Equal(t, domain.TaskStatusCompleted, task.Status)

	resp, body = doRequest(t, ts, http.MethodGet, "/api/v1/tasks/"+created.Task.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &task))
	assert.Equal(t, domain.TaskStatusCompleted, task.Status)
}

func TestAssignUnknownAgent(t *testing.T) {
	ts := newTestAPI(t)

	resp, body := doRequest(t, ts, http.MethodPost, "/api/v1/tasks", CreateTaskRequest{Title: "a task"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created tasks.CreateResult
	require.NoError(t, json.Unmarshal(body, &created))

	resp, body = doRequest(t, ts, http.MethodPost,
		"/api/v1/tasks/"+created.Task.ID+"/assign", AssignRequest{AgentID: "nobody"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var er errorResponse
	require.NoError(t, json.Unmarshal(body, &er))
	assert.Equal(t, string(domain.CodeAgentNotFound), er.Code)
}

func TestGetMissingTask(t *testing.T) {
	ts := newTestAPI(t)

	resp, body := doRequest(t, ts, http.MethodGet, "/api/v1/tasks/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var er errorResponse
	require.NoError(t, json.Unmarshal(body, &er))
	assert.Equal(t, string(domain.CodeTaskNotFound), er.Code)
}

func TestStatusEndpoint(t *testing.T) {
	ts := newTestAPI(t)

	resp, body := doRequest(t, ts, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, 2, status.Catalog.Agents)
	assert.False(t, status.Catalog.SemanticReady)
	assert.Equal(t, Version, status.Service.Version)
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrGatewayAuthFailed, http.StatusUnauthorized},
		{domain.ErrTaskNotFound, http.StatusNotFound},
		{domain.ErrAgentNotFound, http.StatusNotFound},
		{domain.ErrTaskCompleted, http.StatusConflict},
		{domain.ErrCatalogUnavailable, http.StatusServiceUnavailable},
		{domain.ErrTimeout, http.StatusGatewayTimeout},
		{domain.ErrTaskStore, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, httpStatusOf(tc.err), "error %v", tc.err)
	}
}
