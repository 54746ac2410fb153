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
	"testing"

	"github.com/hashicorp/go-version"
	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/graph"
)

func mustVersion(t *testing.T, s string) *version.Version {
	t.Helper()
	v, err := version.NewVersion(s)
	require.NoError(t, err)
	return v
}

func addRelease(t *testing.T, g *graph.Graph, v string, md graph.Metadata) graph.ReleaseID {
	t.Helper()
	id, err := g.AddRelease(graph.Release{Version: mustVersion(t, v), Payload: "repo:" + v, Metadata: md})
	require.NoError(t, err)
	return id
}

func TestChannelFilterRetainsOnlyMatchingChannel(t *testing.T) {
	g := graph.New()
	inChannel := graph.NewMetadata()
	inChannel.Set(graph.KeyChannels, "fast,stable")
	addRelease(t, g, "4.1.0", inChannel)

	outChannel := graph.NewMetadata()
	outChannel.Set(graph.KeyChannels, "candidate")
	addRelease(t, g, "4.2.0", outChannel)

	params := graph.NewMetadata()
	params.Set(ParamChannel, "stable")

	out, _, err := ChannelFilter{}.Run(context.Background(), g, params)
	require.NoError(t, err)
	require.Equal(t, 1, out.NodeCount())
	_, ok := out.FindByVersion("4.1.0")
	require.True(t, ok)
}

func TestChannelFilterIsIdempotent(t *testing.T) {
	build := func() *graph.Graph {
		g := graph.New()
		stable := graph.NewMetadata()
		stable.Set(graph.KeyChannels, "stable")
		a := addRelease(t, g, "4.1.0", stable)
		b := addRelease(t, g, "4.1.1", stable.Clone())
		require.NoError(t, g.AddEdge(a, b))
		addRelease(t, g, "4.2.0", graph.NewMetadata())
		return g
	}

	params := graph.NewMetadata()
	params.Set(ParamChannel, "stable")

	once, _, err := ChannelFilter{}.Run(context.Background(), build(), params)
	require.NoError(t, err)

	twice, _, err := ChannelFilter{}.Run(context.Background(), build(), params)
	require.NoError(t, err)
	twice, _, err = ChannelFilter{}.Run(context.Background(), twice, params)
	require.NoError(t, err)

	require.True(t, once.Equal(twice))
}

func TestChannelFilterMissingParamFails(t *testing.T) {
	g := graph.New()
	_, _, err := ChannelFilter{}.Run(context.Background(), g, graph.NewMetadata())
	require.ErrorIs(t, err, ErrMissingParam)
}

func TestChannelFilterDropsReleaseWithNoChannels(t *testing.T) {
	g := graph.New()
	addRelease(t, g, "4.1.0", graph.NewMetadata())

	params := graph.NewMetadata()
	params.Set(ParamChannel, "stable")

	out, _, err := ChannelFilter{}.Run(context.Background(), g, params)
	require.NoError(t, err)
	require.Equal(t, 0, out.NodeCount())
}
