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

// ParamArch is the required parameter key for ArchFilter.
const ParamArch = "arch"

// ArchFilter retains only releases whose architecture metadata
// matches the requested arch, defaulting a release's arch to
// graph.DefaultArch when it carries no explicit value.
type ArchFilter struct{}

func (ArchFilter) Name() string { return "ArchFilter" }

func (ArchFilter) Run(ctx context.Context, g *graph.Graph, params Params) (*graph.Graph, Params, error) {
	arch, ok := params.Get(ParamArch)
	if !ok || arch == "" {
		return nil, params, missingParam(ParamArch)
	}

	var drop []graph.ReleaseID
	g.IterReleases(func(id graph.ReleaseID, rel *graph.Release) {
		if rel.Metadata.Arch() != arch {
			drop = append(drop, id)
		}
	})
	g.RemoveReleases(drop)
	return g, params, nil
}
