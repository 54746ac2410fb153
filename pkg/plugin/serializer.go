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

package plugin

import (
	"context"

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/graph"
)

// ParamContentType is the parameter key the serializer reads to
// choose a wire version.
const ParamContentType = "content_type"

// VersionedGraphSerializer is the terminal stage of a pipeline: it
// normalizes the content_type parameter to the wire version it
// resolves to, defaulting to the minimum supported version when the
// requested type is missing or unrecognized. Callers
// wrap the returned graph with graph.NewVersionedGraph using this
// normalized content type to actually produce the wire
// representation; the plugin's job ends at validating/normalizing the
// parameter, keeping its signature identical to every other stage's.
type VersionedGraphSerializer struct{}

func (VersionedGraphSerializer) Name() string { return "VersionedGraphSerializer" }

func (VersionedGraphSerializer) Run(ctx context.Context, g *graph.Graph, params Params) (*graph.Graph, Params, error) {
	contentType, _ := params.Get(ParamContentType)
	vg := graph.NewVersionedGraph(g, contentType)
	normalized := params.Clone()
	normalized.Set(ParamContentType, contentTypeForVersion(vg.Version))
	return g, normalized, nil
}

func contentTypeForVersion(version int) string {
	if version >= 1 {
		return "application/vnd.redhat.cincinnati.v1+json"
	}
	return "application/json"
}
