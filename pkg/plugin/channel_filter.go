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

// ParamChannel is the required parameter key for ChannelFilter.
const ParamChannel = "channel"

// ChannelFilter retains only releases whose channel-membership
// metadata contains the requested channel.
type ChannelFilter struct{}

func (ChannelFilter) Name() string { return "ChannelFilter" }

func (ChannelFilter) Run(ctx context.Context, g *graph.Graph, params Params) (*graph.Graph, Params, error) {
	channel, ok := params.Get(ParamChannel)
	if !ok || channel == "" {
		return nil, params, missingParam(ParamChannel)
	}

	var drop []graph.ReleaseID
	g.IterReleases(func(id graph.ReleaseID, rel *graph.Release) {
		if !rel.Metadata.HasChannel(channel) {
			drop = append(drop, id)
		}
	})
	g.RemoveReleases(drop)
	return g, params, nil
}
