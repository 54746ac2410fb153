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

package builder

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the builder loop's instrumentation: a handful of
// domain-meaningful gauges/counters registered directly on a
// *prometheus.Registry, no framework around it.
type Metrics struct {
	ScrapeDuration    prometheus.Histogram
	ScrapeErrorsTotal prometheus.Counter
	PublishedNodes    prometheus.Gauge
	PublishedEdges    prometheus.Gauge
}

// NewMetrics constructs and registers a Metrics set on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScrapeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "update_graph_builder_scrape_duration_seconds",
			Help:    "Time taken by one scrape-assemble-transform loop iteration.",
			Buckets: prometheus.DefBuckets,
		}),
		ScrapeErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "update_graph_builder_scrape_errors_total",
			Help: "Count of loop iterations that failed before publishing a graph.",
		}),
		PublishedNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "update_graph_builder_published_nodes",
			Help: "Number of releases in the most recently published graph.",
		}),
		PublishedEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "update_graph_builder_published_edges",
			Help: "Number of edges in the most recently published graph.",
		}),
	}
	reg.MustRegister(
		m.ScrapeDuration,
		m.ScrapeErrorsTotal,
		m.PublishedNodes,
		m.PublishedEdges,
	)
	return m
}
