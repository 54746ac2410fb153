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
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-version"
)

// Wire-protocol version tags understood by the service. MinWireVersion is served whenever a client's requested
// content-type is unrecognized.
const (
	MinWireVersion = 1
	MaxWireVersion = 1
)

// VersionedGraph pairs a Graph with the wire-protocol version tag
// selected for serialization.
type VersionedGraph struct {
	Version int
	Graph   *Graph
}

// NewVersionedGraph chooses a supported wire version for contentType,
// defaulting to MinWireVersion when contentType does not name a
// recognized version.
func NewVersionedGraph(g *Graph, contentType string) VersionedGraph {
	v := MinWireVersion
	if parsed, ok := wireVersionFor(contentType); ok {
		v = parsed
	}
	return VersionedGraph{Version: v, Graph: g}
}

func wireVersionFor(contentType string) (int, bool) {
	switch contentType {
	case "application/json", "application/vnd.redhat.cincinnati.v1+json":
		return 1, true
	default:
		return 0, false
	}
}

// wireNode / wireRisk / wireConditionalEdges mirror the update-graph
// JSON shape, matching the exact field names consumed by a standard
// cluster update agent client.
type wireNode struct {
	Version  string            `json:"version"`
	Payload  string            `json:"payload"`
	Metadata map[string]string `json:"metadata"`
}

type wireMatchingRule struct {
	Type   string `json:"type"`
	PromQL struct {
		PromQL string `json:"promql"`
	} `json:"promql"`
}

type wireRisk struct {
	URL           string             `json:"url"`
	Name          string             `json:"name"`
	Message       string             `json:"message"`
	MatchingRules []wireMatchingRule `json:"matchingRules"`
}

type wireConditionalEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type wireConditionalEdges struct {
	Edges []wireConditionalEdge `json:"edges"`
	Risks []wireRisk            `json:"risks"`
}

type wireGraph struct {
	Nodes            []wireNode             `json:"nodes"`
	Edges            [][2]int               `json:"edges"`
	ConditionalEdges []wireConditionalEdges `json:"conditionalEdges"`
}

// MarshalJSON serializes vg into the graph wire format. Edge indices
// reference positions in the Nodes array.
func (vg VersionedGraph) MarshalJSON() ([]byte, error) {
	g := vg.Graph
	index := make(map[ReleaseID]int, g.NodeCount())
	w := wireGraph{
		Nodes: make([]wireNode, 0, g.NodeCount()),
	}

	ids := make([]ReleaseID, 0, g.NodeCount())
	g.IterReleases(func(id ReleaseID, r *Release) { ids = append(ids, id) })
	// Deterministic ordering: by version string, so wire output is stable
	// for a given logical graph regardless of internal id assignment.
	sortReleaseIDsByVersion(g, ids)

	for _, id := range ids {
		r, _ := g.Release(id)
		index[id] = len(w.Nodes)
		md := make(map[string]string, r.Metadata.Len())
		for _, k := range r.Metadata.Keys() {
			v, _ := r.Metadata.Get(k)
			md[k] = v
		}
		w.Nodes = append(w.Nodes, wireNode{
			Version:  r.Version.Original(),
			Payload:  r.Payload,
			Metadata: md,
		})
	}

	var edges []plainEdge
	g.IterEdges(func(from, to ReleaseID) { edges = append(edges, plainEdge{from, to}) })
	sortEdges(g, edges)

	for _, e := range edges {
		w.Edges = append(w.Edges, [2]int{index[e.from], index[e.to]})

		risks := g.Risks(e.from, e.to)
		if len(risks) == 0 {
			continue
		}
		fromR, _ := g.Release(e.from)
		toR, _ := g.Release(e.to)
		var wrisks []wireRisk
		for _, rk := range risks {
			wr := wireRisk{URL: rk.URL, Name: rk.Name, Message: rk.Message}
			for _, mr := range rk.MatchingRules {
				wmr := wireMatchingRule{Type: mr.Type}
				wmr.PromQL.PromQL = mr.PromQL
				wr.MatchingRules = append(wr.MatchingRules, wmr)
			}
			wrisks = append(wrisks, wr)
		}
		w.ConditionalEdges = append(w.ConditionalEdges, wireConditionalEdges{
			Edges: []wireConditionalEdge{{From: fromR.Version.Original(), To: toR.Version.Original()}},
			Risks: wrisks,
		})
	}

	return json.Marshal(w)
}

// UnmarshalJSON parses the wire format into vg, reconstructing a fresh
// Graph with freshly-assigned internal identifiers.
func (vg *VersionedGraph) UnmarshalJSON(data []byte) error {
	var w wireGraph
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("graph: decode wire format: %w", err)
	}

	g := New()
	ids := make([]ReleaseID, len(w.Nodes))
	for i, n := range w.Nodes {
		v, err := version.NewVersion(n.Version)
		if err != nil {
			return fmt.Errorf("graph: node %d: invalid version %q: %w", i, n.Version, err)
		}
		md := NewMetadata()
		for k, val := range n.Metadata {
			md.Set(k, val)
		}
		id, err := g.AddRelease(Release{Version: v, Payload: n.Payload, Metadata: md})
		if err != nil {
			return fmt.Errorf("graph: node %d: %w", i, err)
		}
		ids[i] = id
	}

	for _, e := range w.Edges {
		if e[0] < 0 || e[0] >= len(ids) || e[1] < 0 || e[1] >= len(ids) {
			return fmt.Errorf("graph: edge index out of range: %v", e)
		}
		if err := g.AddEdge(ids[e[0]], ids[e[1]]); err != nil {
			return fmt.Errorf("graph: edge %v: %w", e, err)
		}
	}

	for _, ce := range w.ConditionalEdges {
		var risks []Risk
		for _, wr := range ce.Risks {
			risks = append(risks, Risk{
				URL:     wr.URL,
				Name:    wr.Name,
				Message: wr.Message,
				MatchingRules: func() []MatchingRule {
					var out []MatchingRule
					for _, mr := range wr.MatchingRules {
						out = append(out, MatchingRule{Type: mr.Type, PromQL: mr.PromQL.PromQL})
					}
					return out
				}(),
			})
		}
		for _, e := range ce.Edges {
			fromID, ok := g.FindByVersion(e.From)
			if !ok {
				continue
			}
			toID, ok := g.FindByVersion(e.To)
			if !ok {
				continue
			}
			for _, rk := range risks {
				g.AddRisk(fromID, toID, rk)
			}
		}
	}

	vg.Version = MinWireVersion
	vg.Graph = g
	return nil
}

type plainEdge struct{ from, to ReleaseID }

func sortReleaseIDsByVersion(g *Graph, ids []ReleaseID) {
	simpleSort(ids, func(a, b ReleaseID) bool {
		ra, _ := g.Release(a)
		rb, _ := g.Release(b)
		return ra.Version.LessThan(rb.Version)
	})
}

func sortEdges(g *Graph, edges []plainEdge) {
	simpleSort(edges, func(a, b plainEdge) bool {
		ra, _ := g.Release(a.from)
		rb, _ := g.Release(b.from)
		if !ra.Version.Equal(rb.Version) {
			return ra.Version.LessThan(rb.Version)
		}
		ta, _ := g.Release(a.to)
		tb, _ := g.Release(b.to)
		return ta.Version.LessThan(tb.Version)
	})
}

// simpleSort is a tiny insertion sort to avoid pulling in sort.Slice's
// reflection-based comparator for these small, hot release lists.
func simpleSort[T any](s []T, less func(a, b T) bool) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && less(s[j], s[j-1]); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
