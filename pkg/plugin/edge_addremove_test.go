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

	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/graph"
)

func TestEdgeAddRemoveAppliesAddition(t *testing.T) {
	g := graph.New()
	addRelease(t, g, "4.1.0", graph.NewMetadata())
	md := graph.NewMetadata()
	md.Set(graph.KeyPreviousAdd, "4.1.0")
	toID := addRelease(t, g, "4.2.0", md)

	out, _, err := EdgeAddRemove{}.Run(context.Background(), g, graph.NewMetadata())
	require.NoError(t, err)
	fromID, ok := out.FindByVersion("4.1.0")
	require.True(t, ok)
	require.True(t, out.HasEdge(fromID, toID))
}

func TestEdgeAddRemoveSkipsUnresolvableAddition(t *testing.T) {
	g := graph.New()
	md := graph.NewMetadata()
	md.Set(graph.KeyPreviousAdd, "9.9.9")
	addRelease(t, g, "4.2.0", md)

	out, _, err := EdgeAddRemove{}.Run(context.Background(), g, graph.NewMetadata())
	require.NoError(t, err)
	require.Equal(t, 0, out.EdgeCount())
}

func TestEdgeAddRemoveAppliesRemoval(t *testing.T) {
	g := graph.New()
	fromID := addRelease(t, g, "4.1.0", graph.NewMetadata())
	md := graph.NewMetadata()
	md.Set(graph.KeyPreviousRemove, "4.1.0")
	toID := addRelease(t, g, "4.2.0", md)
	require.NoError(t, g.AddEdge(fromID, toID))

	out, _, err := EdgeAddRemove{}.Run(context.Background(), g, graph.NewMetadata())
	require.NoError(t, err)
	require.False(t, out.HasEdge(fromID, toID))
}

func TestEdgeAddRemoveRegexRemovesMatchingPredecessors(t *testing.T) {
	g := graph.New()
	oldID := addRelease(t, g, "4.0.0", graph.NewMetadata())
	keepID := addRelease(t, g, "4.1.5", graph.NewMetadata())
	md := graph.NewMetadata()
	md.Set(graph.KeyPreviousRemoveRegex, "^4\\.0\\..*")
	toID := addRelease(t, g, "4.2.0", md)
	require.NoError(t, g.AddEdge(oldID, toID))
	require.NoError(t, g.AddEdge(keepID, toID))

	out, _, err := EdgeAddRemove{}.Run(context.Background(), g, graph.NewMetadata())
	require.NoError(t, err)
	require.False(t, out.HasEdge(oldID, toID))
	require.True(t, out.HasEdge(keepID, toID))
}
