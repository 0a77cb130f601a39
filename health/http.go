package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Response is the JSON body of the detailed health endpoints.
type Response struct {
	Status    Status                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Checks    map[string]CheckResponse `json:"checks,omitempty"`
}

// CheckResponse is the JSON form of one Result.
type CheckResponse struct {
	Status   Status         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func newCheckResponse(r Result) CheckResponse {
	out := CheckResponse{
		Status:   r.Status,
		Message:  r.Message,
		Duration: r.Duration.String(),
		Details:  r.Details,
	}
	if r.Error != nil {
		out.Error = r.Error.Error()
	}
	return out
}

// httpStatus maps a health status to an HTTP status. Degraded components
// still serve traffic.
func httpStatus(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// LivenessHandler answers 200 OK while the process is serving.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "OK")
	}
}

// ReadinessHandler runs every check and answers OK, DEGRADED or UNHEALTHY.
func ReadinessHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := agg.CheckAll(r.Context())
		body := "OK"
		switch report.Status {
		case StatusDegraded:
			body = "DEGRADED"
		case StatusUnhealthy:
			body = "UNHEALTHY"
		}
		writeText(w, httpStatus(report.Status), body)
	}
}

// DetailedHandler runs every check and answers with a Response.
func DetailedHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := agg.CheckAll(r.Context())
		resp := Response{
			Status:    report.Status,
			Timestamp: report.CheckedAt.UTC().Format(time.RFC3339),
			Checks:    make(map[string]CheckResponse, len(report.Results)),
		}
		for name, res := range report.Results {
			resp.Checks[name] = newCheckResponse(res)
		}
		writeJSON(w, httpStatus(report.Status), resp)
	}
}

// CheckHandler runs the checker named by the {name} route variable.
func CheckHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := agg.Check(r.Context(), mux.Vars(r)["name"])
		if errors.Is(err, ErrCheckerNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, httpStatus(res.Status), newCheckResponse(res))
	}
}

// RegisterRoutes mounts /healthz, /readyz, /health and /health/{name} on r.
func RegisterRoutes(r *mux.Router, agg *Aggregator) {
	r.HandleFunc("/healthz", LivenessHandler()).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", ReadinessHandler(agg)).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/health", DetailedHandler(agg)).Methods(http.MethodGet)
	r.HandleFunc("/health/{name}", CheckHandler(agg)).Methods(http.MethodGet)
}
