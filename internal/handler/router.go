package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"metargb/transfusion-service/pkg/logger"
	"metargb/transfusion-service/pkg/metrics"
)

// NewRouter wires the HTTP API. m and gatherer may be nil, in which case
// requests are not instrumented and /metrics is not served.
func NewRouter(h *ScheduleHandler, log *logger.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/schedule", h.Schedule)
	mux.HandleFunc("/api/presets", h.Presets)
	mux.HandleFunc("/api/today", h.Today)
	mux.HandleFunc("/api/holidays", h.Holidays)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	var api http.Handler = mux
	if m != nil {
		api = metrics.HTTPMiddleware(m, api)
	}

	root := http.NewServeMux()
	if gatherer != nil {
		root.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	root.Handle("/", api)

	return CORSMiddleware(RequestIDMiddleware(LoggingMiddleware(log, root)))
}
