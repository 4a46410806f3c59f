package gateway

import (
	"net/http"
	"sync/atomic"
	"time"
)

// Version is the service version reported by the status endpoint.
const Version = "0.3.0"

// Metrics tracks counters for the status API.
type Metrics struct {
	startTime       time.Time
	RoutingRequests atomic.Int64
	RoutingErrors   atomic.Int64
	RoutingDegraded atomic.Int64
	TasksCreated    atomic.Int64
}

// NewMetrics creates a metrics holder with the uptime clock started.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// StatusResponse is the JSON body returned by GET /api/v1/status.
type StatusResponse struct {
	Service ServiceStatus `json:"service"`
	Catalog CatalogStatus `json:"catalog"`
	Routing RoutingStatus `json:"routing"`
}

// ServiceStatus holds service overview info.
type ServiceStatus struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// CatalogStatus holds agent catalog info.
type CatalogStatus struct {
	Agents        int    `json:"agents"`
	SemanticReady bool   `json:"semantic_ready"`
	Embedder      string `json:"embedder,omitempty"`
}

// RoutingStatus holds routing counters since process start.
type RoutingStatus struct {
	Requests     int64 `json:"requests"`
	Errors       int64 `json:"errors"`
	Degraded     int64 `json:"degraded"`
	TasksCreated int64 `json:"tasks_created"`
}

func statusHandler(deps HandlerDeps, metrics *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := deps.Catalog.Snapshot()

		resp := StatusResponse{
			Service: ServiceStatus{
				Name:          "agents-list",
				Version:       Version,
				UptimeSeconds: int64(time.Since(metrics.startTime).Seconds()),
			},
			Routing: RoutingStatus{
				Requests:     metrics.RoutingRequests.Load(),
				Errors:       metrics.RoutingErrors.Load(),
				Degraded:     metrics.RoutingDegraded.Load(),
				TasksCreated: metrics.TasksCreated.Load(),
			},
		}
		if snap != nil {
			resp.Catalog = CatalogStatus{
				Agents:        snap.Len(),
				SemanticReady: snap.HasEmbeddings(),
				Embedder:      deps.Embedder,
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
