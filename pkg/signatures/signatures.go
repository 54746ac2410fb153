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

// Package signatures serves the policy engine's optional signatures
// endpoint: GET /signatures/<algo>/<digest>/<signature>,
// reading a file out of a configured directory. It is implemented
// with the same minimalism the rest of this service gives its own
// `/metrics` handler: no router library, just `net/http` and
// `http.ServeFile`.
package signatures

import (
	"net/http"
	"path/filepath"
	"strings"
)

// supportedAlgorithms is the closed set of digest algorithms accepted
// in a signature path (algo ∈ {"sha"}).
var supportedAlgorithms = map[string]struct{}{
	"sha": {},
}

// Handler serves files from Dir at /<algo>/<digest>/<signature>.
type Handler struct {
	Dir string
}

// NewHandler returns a Handler rooted at dir.
func NewHandler(dir string) *Handler {
	return &Handler{Dir: dir}
}

// ServeHTTP implements the routing and path-traversal defenses: a
// missing file is 404, an algorithm outside the closed set is 400, and
// any path segment escaping Dir is rejected before it ever reaches the
// filesystem.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		http.Error(w, "signatures: path must be /<algo>/<digest>/<signature>", http.StatusBadRequest)
		return
	}
	algo, digest, signature := parts[0], parts[1], parts[2]
	if _, ok := supportedAlgorithms[algo]; !ok {
		http.Error(w, "signatures: unknown algorithm "+algo, http.StatusBadRequest)
		return
	}
	for _, seg := range []string{algo, digest, signature} {
		if seg == "." || seg == ".." || strings.ContainsRune(seg, '/') {
			http.Error(w, "signatures: invalid path segment", http.StatusBadRequest)
			return
		}
	}

	path := filepath.Join(h.Dir, algo, digest, signature)
	http.ServeFile(w, r, path)
}
