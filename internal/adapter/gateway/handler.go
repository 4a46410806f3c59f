package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zaebee/agents-list-sub002/internal/domain"
	"github.com/zaebee/agents-list-sub002/internal/usecase/analysis"
	"github.com/zaebee/agents-list-sub002/internal/usecase/routing"
	"github.com/zaebee/agents-list-sub002/internal/usecase/tasks"
)

// HandlerDeps bundles the use-case dependencies the API handlers need.
type HandlerDeps struct {
	Tasks    *tasks.Service
	Router   tasks.Suggester
	Analyzer *analysis.Gateway
	Catalog  *routing.Catalog
	Embedder string // provider name for the status endpoint, "" = disabled
	Logger   *slog.Logger
}

// SuggestRequest is the body of POST /api/v1/suggest.
type SuggestRequest struct {
	Text          string  `json:"text"`
	Category      string  `json:"category,omitempty"`
	MaxResults    int     `json:"max_results,omitempty"`
	MinConfidence float64 `json:"min_confidence,omitempty"`
}

// AnalyzeRequest is the body of POST /api/v1/analyze.
type AnalyzeRequest struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

// CreateTaskRequest is the body of POST /api/v1/tasks.
type CreateTaskRequest struct {
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
	Category string `json:"category,omitempty"`
}

// AssignRequest is the body of POST /api/v1/tasks/{id}/assign.
type AssignRequest struct {
	AgentID string `json:"agent_id"`
}

// CompleteRequest is the body of POST /api/v1/tasks/{id}/complete.
type CompleteRequest struct {
	Success bool `json:"success"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RegisterRoutes wires the HTTP API onto the server, guarded by auth.
// Must be called before Start().
func RegisterRoutes(s *Server, deps HandlerDeps, metrics *Metrics) {
	requireAuth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if _, err := s.auth.Authenticate(token); err != nil {
				writeError(w, err)
				return
			}
			next(w, r)
		}
	}

	s.RegisterHTTPRoute("POST /api/v1/suggest", requireAuth(suggestHandler(deps, metrics)))
	s.RegisterHTTPRoute("POST /api/v1/analyze", requireAuth(analyzeHandler(deps)))
	s.RegisterHTTPRoute("POST /api/v1/tasks", requireAuth(createTaskHandler(deps, metrics)))
	s.RegisterHTTPRoute("GET /api/v1/tasks", requireAuth(listTasksHandler(deps)))
	s.RegisterHTTPRoute("GET /api/v1/tasks/{id}", requireAuth(getTaskHandler(deps)))
	s.RegisterHTTPRoute("POST /api/v1/tasks/{id}/assign", requireAuth(assignTaskHandler(deps)))
	s.RegisterHTTPRoute("POST /api/v1/tasks/{id}/complete", requireAuth(completeTaskHandler(deps)))
	s.RegisterHTTPRoute("GET /api/v1/status", requireAuth(statusHandler(deps, metrics)))

	registerRPCHandlers(s, deps, metrics)
}

func suggestHandler(deps HandlerDeps, metrics *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SuggestRequest
		if !decodeBody(w, r, &req) {
			return
		}
		result, err := doSuggest(r.Context(), deps, metrics, req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func analyzeHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnalyzeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, deps.Analyzer.Analyze(req.Title, req.Body))
	}
}

func createTaskHandler(deps HandlerDeps, metrics *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateTaskRequest
		if !decodeBody(w, r, &req) {
			return
		}
		result, err := deps.Tasks.Create(r.Context(), req.Title, req.Body, req.Category)
		if err != nil {
			writeError(w, err)
			return
		}
		metrics.TasksCreated.Add(1)
		writeJSON(w, http.StatusCreated, result)
	}
}

func listTasksHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := domain.TaskStatus(r.URL.Query().Get("status"))
		list, err := deps.Tasks.List(r.Context(), status, 0)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tasks": list})
	}
}

func getTaskHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, err := deps.Tasks.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, task)
	}
}

func assignTaskHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AssignRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.AgentID == "" {
			writeError(w, domain.NewDomainError("Gateway.Assign", domain.ErrInvalidInput, "agent_id is required"))
			return
		}
		if _, err := deps.Catalog.Get(req.AgentID); err != nil {
			writeError(w, err)
			return
		}
		task, err := deps.Tasks.Assign(r.Context(), r.PathValue("id"), req.AgentID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, task)
	}
}

func completeTaskHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CompleteRequest
		if !decodeBody(w, r, &req) {
			return
		}
		task, err := deps.Tasks.Complete(r.Context(), r.PathValue("id"), req.Success)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, task)
	}
}

// doSuggest is shared by the HTTP and RPC suggest entry points.
func doSuggest(ctx context.Context, deps HandlerDeps, metrics *Metrics, req SuggestRequest) (domain.SuggestResult, error) {
	metrics.RoutingRequests.Add(1)
	result, err := deps.Router.Suggest(ctx, domain.TaskQuery{
		Text:             req.Text,
		RequiredCategory: req.Category,
		MaxResults:       req.MaxResults,
		MinConfidence:    req.MinConfidence,
	})
	if err != nil {
		metrics.RoutingErrors.Add(1)
		return domain.SuggestResult{}, err
	}
	if result.Degraded {
		metrics.RoutingDegraded.Add(1)
	}
	return result, nil
}

// registerRPCHandlers mirrors the HTTP API over the WebSocket RPC channel.
func registerRPCHandlers(s *Server, deps HandlerDeps, metrics *Metrics) {
	s.RegisterHandler("route.suggest", func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req SuggestRequest
		if err := unmarshalPayload(payload, &req); err != nil {
			return nil, err
		}
		result, err := doSuggest(ctx, deps, metrics, req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	})

	s.RegisterHandler("task.analyze", func(_ context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req AnalyzeRequest
		if err := unmarshalPayload(payload, &req); err != nil {
			return nil, err
		}
		return json.Marshal(deps.Analyzer.Analyze(req.Title, req.Body))
	})

	s.RegisterHandler("task.create", func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req CreateTaskRequest
		if err := unmarshalPayload(payload, &req); err != nil {
			return nil, err
		}
		result, err := deps.Tasks.Create(ctx, req.Title, req.Body, req.Category)
		if err != nil {
			return nil, err
		}
		metrics.TasksCreated.Add(1)
		return json.Marshal(result)
	})

	s.RegisterHandler("task.get", func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req struct {
			ID string `json:"id"`
		}
		if err := unmarshalPayload(payload, &req); err != nil {
			return nil, err
		}
		task, err := deps.Tasks.Get(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(task)
	})

	s.RegisterHandler("task.assign", func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req struct {
			ID      string `json:"id"`
			AgentID string `json:"agent_id"`
		}
		if err := unmarshalPayload(payload, &req); err != nil {
			return nil, err
		}
		task, err := deps.Tasks.Assign(ctx, req.ID, req.AgentID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(task)
	})

	s.RegisterHandler("task.complete", func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req struct {
			ID      string `json:"id"`
			Success bool   `json:"success"`
		}
		if err := unmarshalPayload(payload, &req); err != nil {
			return nil, err
		}
		task, err := deps.Tasks.Complete(ctx, req.ID, req.Success)
		if err != nil {
			return nil, err
		}
		return json.Marshal(task)
	})
}

func unmarshalPayload(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return domain.NewDomainError("Gateway.RPC", domain.ErrRPCInvalidPayload, "empty payload")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return domain.NewDomainError("Gateway.RPC", domain.ErrRPCInvalidPayload, err.Error())
	}
	return nil
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		writeError(w, domain.NewDomainError("Gateway.Decode", domain.ErrInvalidInput, err.Error()))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := domain.ErrorCodeOf(err)
	writeJSON(w, httpStatusOf(err), errorResponse{Error: err.Error(), Code: string(code)})
}

// httpStatusOf maps domain errors to HTTP status codes.
func httpStatusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrRPCInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrGatewayAuthFailed):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrAgentNotFound),
		errors.Is(err, domain.ErrNoAgentsInCategory),
		errors.Is(err, domain.ErrRPCMethodNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTaskCompleted),
		errors.Is(err, domain.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
