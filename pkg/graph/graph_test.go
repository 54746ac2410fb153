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

package graph

import (
	"testing"

	"github.com/hashicorp/go-version"
	"github.com/stretchr/testify/require"
)

func mustVersion(t *testing.T, s string) *version.Version {
	t.Helper()
	v, err := version.NewVersion(s)
	require.NoError(t, err)
	return v
}

func addRelease(t *testing.T, g *Graph, v string) ReleaseID {
	t.Helper()
	id, err := g.AddRelease(Release{Version: mustVersion(t, v), Payload: "quay.io/x/y:" + v, Metadata: NewMetadata()})
	require.NoError(t, err)
	return id
}

func TestAddReleaseDuplicateVersion(t *testing.T) {
	g := New()
	addRelease(t, g, "4.1.0")
	_, err := g.AddRelease(Release{Version: mustVersion(t, "4.1.0"), Metadata: NewMetadata()})
	require.ErrorIs(t, err, ErrDuplicateVersion)
}

func TestAddEdgeUnknownRelease(t *testing.T) {
	g := New()
	a := addRelease(t, g, "4.1.0")
	err := g.AddEdge(a, ReleaseID(999))
	require.ErrorIs(t, err, ErrUnknownRelease)
}

func TestAddEdgeSelfLoopRejected(t *testing.T) {
	g := New()
	a := addRelease(t, g, "4.1.0")
	require.ErrorIs(t, g.AddEdge(a, a), ErrSelfLoop)
}

func TestAddEdgeDuplicateCollapses(t *testing.T) {
	g := New()
	a := addRelease(t, g, "4.1.0")
	b := addRelease(t, g, "4.1.1")
	require.NoError(t, g.AddEdge(a, b))
	require.NoError(t, g.AddEdge(a, b))
	require.Equal(t, 1, g.EdgeCount())
}

func TestSimpleChain(t *testing.T) {
	g := New()
	a := addRelease(t, g, "4.1.0")
	b := addRelease(t, g, "4.1.1")
	c := addRelease(t, g, "4.1.2")
	require.NoError(t, g.AddEdge(a, b))
	require.NoError(t, g.AddEdge(b, c))

	require.Equal(t, 3, g.NodeCount())
	require.Equal(t, 2, g.EdgeCount())
	require.False(t, g.HasCycle())
}

func TestNodeRemoveOrthogonality(t *testing.T) {
	// Removing {S} then {T} must equal removing {S ∪ T} in one pass.
	build := func() (*Graph, []ReleaseID) {
		g := New()
		ids := make([]ReleaseID, 5)
		for i, v := range []string{"4.1.0", "4.1.1", "4.1.2", "4.1.3", "4.1.4"} {
			ids[i] = addRelease(t, g, v)
		}
		for i := 0; i < len(ids)-1; i++ {
			require.NoError(t, g.AddEdge(ids[i], ids[i+1]))
		}
		return g, ids
	}

	g1, ids1 := build()
	g1.RemoveReleases([]ReleaseID{ids1[1]})
	g1.RemoveReleases([]ReleaseID{ids1[3]})

	g2, ids2 := build()
	g2.RemoveReleases([]ReleaseID{ids2[1], ids2[3]})

	require.True(t, g1.Equal(g2))
}

func TestRemoveReleasesDropsIncidentEdgesAndRisks(t *testing.T) {
	g := New()
	a := addRelease(t, g, "4.1.0")
	b := addRelease(t, g, "4.1.1")
	c := addRelease(t, g, "4.1.2")
	require.NoError(t, g.AddEdge(a, b))
	require.NoError(t, g.AddEdge(b, c))
	require.NoError(t, g.AddEdge(a, c))
	g.AddRisk(a, c, Risk{Name: "SomeRisk"})

	n := g.RemoveReleases([]ReleaseID{b})
	require.Equal(t, 1, n)
	require.Equal(t, 2, g.NodeCount())
	// a->c must not spontaneously appear as a fresh edge beyond what existed.
	require.True(t, g.HasEdge(a, c))
	require.False(t, g.HasEdge(a, b))
	require.False(t, g.HasEdge(b, c))
	require.Len(t, g.Risks(a, c), 1)
}

func TestHasCycleDetectsCycle(t *testing.T) {
	g := New()
	a := addRelease(t, g, "4.1.0")
	b := addRelease(t, g, "4.1.1")
	c := addRelease(t, g, "4.1.2")
	require.NoError(t, g.AddEdge(a, b))
	require.NoError(t, g.AddEdge(b, c))
	require.NoError(t, g.AddEdge(c, a))
	require.True(t, g.HasCycle())
}

func TestCloneIsIndependent(t *testing.T) {
	g := New()
	a := addRelease(t, g, "4.1.0")
	b := addRelease(t, g, "4.1.1")
	require.NoError(t, g.AddEdge(a, b))

	clone := g.Clone()
	clone.RemoveReleases([]ReleaseID{a})

	require.Equal(t, 2, g.NodeCount())
	require.Equal(t, 1, clone.NodeCount())
	require.True(t, g.Equal(g.Clone()))
}

func TestMetadataChannelsDedup(t *testing.T) {
	md := NewMetadata()
	md.Set(KeyChannels, "stable-4.1, stable-4.1,fast-4.1")
	require.ElementsMatch(t, []string{"stable-4.1", "fast-4.1"}, md.Channels())
}

func TestMetadataArchDefault(t *testing.T) {
	md := NewMetadata()
	require.Equal(t, DefaultArch, md.Arch())
	md.Set(KeyArch, "arm64")
	require.Equal(t, "arm64", md.Arch())
}
