// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package policy

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/graph"
	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/plugin"
)

// GraphHandler serves GET <prefix>/v1/graph: query parameters become the pipeline's Params, and the
// Accept header selects the response content type.
func (e *Engine) GraphHandler(metrics *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		params := graph.NewMetadata()
		for k := range r.URL.Query() {
			params.Set(k, r.URL.Query().Get(k))
		}
		if accept := r.Header.Get("Accept"); accept != "" {
			params.Set(plugin.ParamContentType, accept)
		}

		g, outParams, err := e.Serve(r.Context(), params)
		status := http.StatusOK
		if err != nil {
			status = StatusFor(err)
			level.Warn(e.logger).Log("msg", "policy request failed", "err", err, "status", status)
			http.Error(w, err.Error(), status)
		} else {
			contentType, _ := outParams.Get(plugin.ParamContentType)
			if contentType == "" {
				contentType = "application/json"
			}
			vg := graph.NewVersionedGraph(g, contentType)
			w.Header().Set("Content-Type", contentType)
			if encErr := json.NewEncoder(w).Encode(vg); encErr != nil {
				level.Error(e.logger).Log("msg", "encode response graph", "err", encErr)
			}
		}

		if metrics != nil {
			metrics.Requests.WithLabelValues(statusLabel(status)).Inc()
			metrics.Latency.WithLabelValues(statusLabel(status)).Observe(time.Since(start).Seconds())
		}
	}
}

// StatusFor maps an Engine.Serve error onto the HTTP status code a
// client should see.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrMissingParam):
		return http.StatusBadRequest
	case errors.Is(err, plugin.ErrMissingParam):
		return http.StatusBadRequest
	case errors.Is(err, ErrDoesNotExist):
		return http.StatusNotFound
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Metrics is the policy engine's request counter/latency pair, labeled
// by response status.
type Metrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

// NewMetrics constructs and registers a Metrics set on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "update_graph_policy_requests_total",
			Help: "Count of policy-engine graph requests by response status.",
		}, []string{"status"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "update_graph_policy_request_latency_seconds",
			Help:    "Histogram of policy-engine request latency by response status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
	}
	reg.MustRegister(m.Requests, m.Latency)
	return m
}

func statusLabel(status int) string {
	switch status {
	case http.StatusOK:
		return "200"
	case http.StatusBadRequest:
		return "400"
	case http.StatusNotFound:
		return "404"
	case http.StatusServiceUnavailable:
		return "503"
	default:
		return "500"
	}
}
