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

import (
	"encoding/json"
	"net/http"
)

// GraphHandler serves GET /v1/graph: the full, unfiltered current
// graph. It ignores query parameters;
// filtering is the policy engine's job.
func (b *Builder) GraphHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vg, ok := b.Current()
		if !ok {
			http.Error(w, "no graph has been published yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(vg); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// LivenessHandler serves GET /liveness.
func (b *Builder) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !b.Live() {
			http.Error(w, "not live", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// ReadinessHandler serves GET /readiness.
func (b *Builder) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !b.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
