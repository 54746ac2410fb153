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

// Package scraper walks a registry repository's tags and turns each
// one that carries recognizable release metadata into a
// graph.Release, with bounded concurrency and a per-scrape
// content-addressed blob cache.
package scraper

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-version"
)

// recognizedKind is the only release-metadata kind this scraper
// understands.
const recognizedKind = "cincinnati-metadata-v0"

// releaseMetadata is the blob format produced by a release image's
// config (schema-2) or embedded in its v1-compat history (schema-1).
type releaseMetadata struct {
	Kind     string            `json:"kind"`
	Version  string            `json:"version"`
	Previous []string          `json:"previous"`
	Next     []string          `json:"next"`
	Metadata map[string]string `json:"metadata"`
}

func parseReleaseMetadata(raw []byte) (*releaseMetadata, error) {
	var m releaseMetadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("scraper: parse release metadata: %w", err)
	}
	if m.Kind != recognizedKind {
		return nil, fmt.Errorf("scraper: unrecognized release-metadata kind %q", m.Kind)
	}
	if _, err := version.NewVersion(m.Version); err != nil {
		return nil, fmt.Errorf("scraper: invalid version %q: %w", m.Version, err)
	}
	return &m, nil
}
