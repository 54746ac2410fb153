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

// Package graph implements the update-graph data model: releases as
// nodes, upgrade assertions as edges, and conditional-edge risk
// overlays. Nodes and edges are stored in flat, index-addressed
// vectors rather than as in-node pointers, so that mass removals and
// edge rewrites are O(edges) instead of O(edges × version compares),
// and so per-request clones are a cheap slice copy.
package graph

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-version"
)

// ReleaseID is an opaque, graph-local handle to a Release. It is never
// stable across builds and must not be serialized or compared across
// Graph instances.
type ReleaseID int

const invalidID ReleaseID = -1

// Sentinel errors returned by Graph operations.
var (
	ErrUnknownRelease   = errors.New("graph: unknown release")
	ErrDuplicateVersion = errors.New("graph: duplicate version")
	ErrSelfLoop         = errors.New("graph: self-loop edge rejected")
)

// Release is a single graph node: a semantic version, the image
// reference it resolves to, and a freeform ordered metadata map.
type Release struct {
	Version  *version.Version
	Payload  string
	Metadata Metadata
}

// Risk is one conditional-edge risk: operator-facing context plus a set
// of matching rules that determine whether a client must treat the edge
// as blocked.
type Risk struct {
	URL           string
	Name          string
	Message       string
	MatchingRules []MatchingRule
}

// MatchingRule is a single condition under a Risk. Only the PromQL type
// is currently defined.
type MatchingRule struct {
	Type   string
	PromQL string
}

type edge [2]ReleaseID

func edgeKey(from, to ReleaseID) [2]ReleaseID { return edge{from, to} }

// Graph is the pair (releases, edges) with conditional-edge
// annotations.
type Graph struct {
	releases  []*Release // compacted by RemoveReleases; no nil slots.
	byID      map[ReleaseID]int
	nextID    ReleaseID
	byVersion map[string]ReleaseID

	edges   []edge
	edgeSet map[edge]struct{}
	risks   map[edge][]Risk
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		byID:      make(map[ReleaseID]int),
		byVersion: make(map[string]ReleaseID),
		edgeSet:   make(map[edge]struct{}),
		risks:     make(map[edge][]Risk),
	}
}

// AddRelease inserts r and returns its graph-local id. It fails with
// ErrDuplicateVersion if a release with the same version string is
// already present.
func (g *Graph) AddRelease(r Release) (ReleaseID, error) {
	if r.Version == nil {
		return invalidID, fmt.Errorf("graph: release has nil version")
	}
	key := r.Version.Original()
	if _, exists := g.byVersion[key]; exists {
		return invalidID, fmt.Errorf("%w: %s", ErrDuplicateVersion, key)
	}
	id := g.nextID
	g.nextID++

	cp := r
	cp.Metadata = r.Metadata.Clone()
	g.releases = append(g.releases, &cp)
	g.byID[id] = len(g.releases) - 1
	g.byVersion[key] = id
	return id, nil
}

// FindByVersion returns the id of the release whose version matches v
// exactly (by original string form), if any.
func (g *Graph) FindByVersion(v string) (ReleaseID, bool) {
	id, ok := g.byVersion[v]
	return id, ok
}

// FindByMetadataPair returns the ids of every release whose metadata
// contains key=value.
func (g *Graph) FindByMetadataPair(key, value string) []ReleaseID {
	var out []ReleaseID
	for id, idx := range g.byID {
		r := g.releases[idx]
		if v, ok := r.Metadata.Get(key); ok && v == value {
			out = append(out, id)
		}
	}
	return out
}

// MetadataHit pairs a release id with the value found under a queried key.
type MetadataHit struct {
	ID    ReleaseID
	Value string
}

// FindByMetadataKey returns every (id, value) pair for releases carrying key.
func (g *Graph) FindByMetadataKey(key string) []MetadataHit {
	var out []MetadataHit
	for id, idx := range g.byID {
		r := g.releases[idx]
		if v, ok := r.Metadata.Get(key); ok {
			out = append(out, MetadataHit{ID: id, Value: v})
		}
	}
	return out
}

// Release returns the release stored under id.
func (g *Graph) Release(id ReleaseID) (*Release, bool) {
	idx, ok := g.byID[id]
	if !ok {
		return nil, false
	}
	return g.releases[idx], true
}

// AddEdge asserts that a cluster on the release named by `from` may
// upgrade to the release named by `to`. Both endpoints must already
// exist; self-loops are rejected; duplicate edges collapse silently.
func (g *Graph) AddEdge(from, to ReleaseID) error {
	if _, ok := g.byID[from]; !ok {
		return fmt.Errorf("%w: edge source %d", ErrUnknownRelease, from)
	}
	if _, ok := g.byID[to]; !ok {
		return fmt.Errorf("%w: edge target %d", ErrUnknownRelease, to)
	}
	if from == to {
		return ErrSelfLoop
	}
	k := edgeKey(from, to)
	if _, exists := g.edgeSet[k]; exists {
		return nil
	}
	g.edges = append(g.edges, k)
	g.edgeSet[k] = struct{}{}
	return nil
}

// HasEdge reports whether an edge from -> to exists.
func (g *Graph) HasEdge(from, to ReleaseID) bool {
	_, ok := g.edgeSet[edgeKey(from, to)]
	return ok
}

// RemoveEdge deletes the edge from -> to, if present. Its conditional
// risks, if any, are discarded along with it.
func (g *Graph) RemoveEdge(from, to ReleaseID) {
	k := edgeKey(from, to)
	if _, ok := g.edgeSet[k]; !ok {
		return
	}
	delete(g.edgeSet, k)
	delete(g.risks, k)
	for i, e := range g.edges {
		if e == k {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			break
		}
	}
}

// AddRisk attaches a conditional-edge risk to an existing edge. It is a
// silent no-op if the edge does not exist.
func (g *Graph) AddRisk(from, to ReleaseID, r Risk) {
	k := edgeKey(from, to)
	if _, ok := g.edgeSet[k]; !ok {
		return
	}
	g.risks[k] = append(g.risks[k], r)
}

// Risks returns the conditional risks attached to edge from->to, or nil
// if the edge is unconditional or does not exist.
func (g *Graph) Risks(from, to ReleaseID) []Risk {
	return g.risks[edgeKey(from, to)]
}

// RemoveReleases deletes every release named in ids along with every
// incident edge (and any risks attached to those edges), rewriting the
// index/edge vectors in a single O(edges) pass. It returns the number
// of releases actually removed.
func (g *Graph) RemoveReleases(ids []ReleaseID) int {
	doomed := make(map[ReleaseID]struct{}, len(ids))
	count := 0
	for _, id := range ids {
		if _, ok := g.byID[id]; !ok {
			continue
		}
		if _, already := doomed[id]; !already {
			doomed[id] = struct{}{}
			count++
		}
	}
	if count == 0 {
		return 0
	}

	newReleases := make([]*Release, 0, len(g.releases))
	newByID := make(map[ReleaseID]int, len(g.byID))
	newByVersion := make(map[string]ReleaseID, len(g.byVersion))
	for id, idx := range g.byID {
		if _, dead := doomed[id]; dead {
			delete(g.byVersion, g.releases[idx].Version.Original())
			continue
		}
		r := g.releases[idx]
		newReleases = append(newReleases, r)
		newByID[id] = len(newReleases) - 1
		newByVersion[r.Version.Original()] = id
	}
	g.releases = newReleases
	g.byID = newByID
	g.byVersion = newByVersion

	newEdges := make([]edge, 0, len(g.edges))
	newEdgeSet := make(map[edge]struct{}, len(g.edgeSet))
	newRisks := make(map[edge][]Risk, len(g.risks))
	for _, e := range g.edges {
		_, fromDead := doomed[e[0]]
		_, toDead := doomed[e[1]]
		if fromDead || toDead {
			continue
		}
		newEdges = append(newEdges, e)
		newEdgeSet[e] = struct{}{}
		if rs, ok := g.risks[e]; ok {
			newRisks[e] = rs
		}
	}
	g.edges = newEdges
	g.edgeSet = newEdgeSet
	g.risks = newRisks

	return count
}

// IterReleases calls fn for every release currently in the graph. The
// iteration order is the graph's internal storage order and is not
// meaningful beyond this process.
func (g *Graph) IterReleases(fn func(id ReleaseID, r *Release)) {
	for id, idx := range g.byID {
		fn(id, g.releases[idx])
	}
}

// IterEdges calls fn for every edge currently in the graph.
func (g *Graph) IterEdges(fn func(from, to ReleaseID)) {
	for _, e := range g.edges {
		fn(e[0], e[1])
	}
}

// NodeCount returns the number of releases in the graph.
func (g *Graph) NodeCount() int { return len(g.byID) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Clone returns a deep copy of g, safe to mutate independently. Per-
// request filtering always operates on a clone.
func (g *Graph) Clone() *Graph {
	out := New()
	out.nextID = g.nextID

	out.releases = make([]*Release, len(g.releases))
	for i, r := range g.releases {
		if r == nil {
			continue
		}
		cp := *r
		cp.Metadata = r.Metadata.Clone()
		out.releases[i] = &cp
	}
	for id, idx := range g.byID {
		out.byID[id] = idx
	}
	for v, id := range g.byVersion {
		out.byVersion[v] = id
	}

	out.edges = append([]edge(nil), g.edges...)
	for k := range g.edgeSet {
		out.edgeSet[k] = struct{}{}
	}
	for k, rs := range g.risks {
		out.risks[k] = append([]Risk(nil), rs...)
	}
	return out
}

// Equal reports whether g and other contain the same releases and the
// same edges (including conditional-risk annotations), ignoring
// internal identifier assignment.
func (g *Graph) Equal(other *Graph) bool {
	if g.NodeCount() != other.NodeCount() || g.EdgeCount() != other.EdgeCount() {
		return false
	}
	// Map g's ids to other's ids by version string.
	translate := make(map[ReleaseID]ReleaseID, g.NodeCount())
	match := true
	g.IterReleases(func(id ReleaseID, r *Release) {
		if !match {
			return
		}
		oid, ok := other.FindByVersion(r.Version.Original())
		if !ok {
			match = false
			return
		}
		or, _ := other.Release(oid)
		if or.Payload != r.Payload || !r.Metadata.Equal(or.Metadata) {
			match = false
			return
		}
		translate[id] = oid
	})
	if !match {
		return false
	}

	ok := true
	g.IterEdges(func(from, to ReleaseID) {
		if !ok {
			return
		}
		of, ot := translate[from], translate[to]
		if !other.HasEdge(of, ot) {
			ok = false
			return
		}
		if !equalRisks(g.Risks(from, to), other.Risks(of, ot)) {
			ok = false
		}
	})
	return ok
}

func equalRisks(a, b []Risk) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ra, rb := a[i], b[i]
		if ra.URL != rb.URL || ra.Name != rb.Name || ra.Message != rb.Message {
			return false
		}
		if len(ra.MatchingRules) != len(rb.MatchingRules) {
			return false
		}
		for j := range ra.MatchingRules {
			if ra.MatchingRules[j] != rb.MatchingRules[j] {
				return false
			}
		}
	}
	return true
}

// HasCycle reports whether the graph contains a directed cycle, using
// DFS with three-colour node marking.
func (g *Graph) HasCycle() bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[ReleaseID]int, len(g.byID))
	adj := g.adjacency()

	var dfs func(ReleaseID) bool
	dfs = func(id ReleaseID) bool {
		color[id] = gray
		for _, next := range adj[id] {
			switch color[next] {
			case gray:
				return true
			case white:
				if dfs(next) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for id := range g.byID {
		if color[id] == white {
			if dfs(id) {
				return true
			}
		}
	}
	return false
}

func (g *Graph) adjacency() map[ReleaseID][]ReleaseID {
	adj := make(map[ReleaseID][]ReleaseID, len(g.byID))
	for _, e := range g.edges {
		adj[e[0]] = append(adj[e[0]], e[1])
	}
	return adj
}
