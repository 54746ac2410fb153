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

// Package assembler builds an initial graph.Graph from scraped
// release metadata and extracted secondary metadata.
package assembler

import (
	"strings"

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/graph"
	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/scraper"
)

// ChannelDefinition is one channel's ordered version list, as read
// from a secondary-metadata channel file.
type ChannelDefinition struct {
	Name     string
	Versions []string
}

// RiskDefinition is one conditional-edge overlay, keyed by an exact
// from/to version pair.
type RiskDefinition struct {
	From string
	To   string
	Risk graph.Risk
}

// Assemble derives edges in two phases and returns the resulting graph. Ties between an explicit
// previous/next edge and a channel-derived edge collapse to a single
// edge (graph.AddEdge is idempotent); a risk annotation from the
// secondary source always attaches regardless of which phase produced
// the edge.
func Assemble(releases []scraper.Release, channels []ChannelDefinition, risks []RiskDefinition) (*graph.Graph, error) {
	g := graph.New()
	byVersion := make(map[string]graph.ReleaseID, len(releases))

	for _, r := range releases {
		id, err := g.AddRelease(graph.Release{
			Version:  r.Version,
			Payload:  r.Payload,
			Metadata: r.Metadata,
		})
		if err != nil {
			// A duplicate version across tags is a data problem in the
			// upstream repository, not something the assembler can
			// resolve; surfacing it lets the builder loop keep serving
			// the last good graph.
			return nil, err
		}
		byVersion[r.Version.Original()] = id
	}

	applyExplicitAdjacency(g, releases, byVersion)
	applyChannelStructure(g, channels, byVersion)
	applyRisks(g, risks, byVersion)

	return g, nil
}

// applyExplicitAdjacency turns each release's previous/next lists into
// incoming/outgoing edges, dropping unresolvable endpoints silently.
func applyExplicitAdjacency(g *graph.Graph, releases []scraper.Release, byVersion map[string]graph.ReleaseID) {
	for _, r := range releases {
		id, ok := byVersion[r.Version.Original()]
		if !ok {
			continue
		}
		for _, p := range r.Previous {
			if pid, ok := byVersion[p]; ok {
				_ = g.AddEdge(pid, id)
			}
		}
		for _, n := range r.Next {
			if nid, ok := byVersion[n]; ok {
				_ = g.AddEdge(id, nid)
			}
		}
	}
}

// applyChannelStructure turns consecutive versions in a channel
// definition into candidate edges, and every
// release present in a channel gets that channel recorded in its
// membership metadata.
func applyChannelStructure(g *graph.Graph, channels []ChannelDefinition, byVersion map[string]graph.ReleaseID) {
	for _, ch := range channels {
		var (
			prevID graph.ReleaseID
			havePrev bool
		)
		for _, v := range ch.Versions {
			id, ok := byVersion[v]
			if !ok {
				havePrev = false
				continue
			}
			recordChannelMembership(g, id, ch.Name)
			if havePrev {
				_ = g.AddEdge(prevID, id)
			}
			prevID, havePrev = id, true
		}
	}
}

func recordChannelMembership(g *graph.Graph, id graph.ReleaseID, channel string) {
	rel, ok := g.Release(id)
	if !ok {
		return
	}
	if rel.Metadata.HasChannel(channel) {
		return
	}
	existing, _ := rel.Metadata.Get(graph.KeyChannels)
	if existing == "" {
		rel.Metadata.Set(graph.KeyChannels, channel)
		return
	}
	rel.Metadata.Set(graph.KeyChannels, strings.Join([]string{existing, channel}, ","))
}

// applyRisks attaches each risk definition to the edge its from/to
// version pair resolves to, if that edge exists.
func applyRisks(g *graph.Graph, risks []RiskDefinition, byVersion map[string]graph.ReleaseID) {
	for _, rd := range risks {
		fromID, ok1 := byVersion[rd.From]
		toID, ok2 := byVersion[rd.To]
		if !ok1 || !ok2 {
			continue
		}
		g.AddRisk(fromID, toID, rd.Risk)
	}
}
