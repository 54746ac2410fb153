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
	"regexp"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/graph"
)

// EdgeAddRemove applies the per-release previous.add/previous.remove/
// previous.remove_regex metadata keys. It runs after
// scraper output, so its additions/removals see the assembled graph's
// existing edges.
type EdgeAddRemove struct {
	Logger log.Logger
}

func (EdgeAddRemove) Name() string { return "EdgeAddRemove" }

func (p EdgeAddRemove) Run(ctx context.Context, g *graph.Graph, params Params) (*graph.Graph, Params, error) {
	logger := p.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	type pending struct {
		id       graph.ReleaseID
		add      []string
		remove   []string
		removeRe string
	}
	var work []pending
	g.IterReleases(func(id graph.ReleaseID, rel *graph.Release) {
		add, _ := rel.Metadata.Get(graph.KeyPreviousAdd)
		remove, _ := rel.Metadata.Get(graph.KeyPreviousRemove)
		removeRe, _ := rel.Metadata.Get(graph.KeyPreviousRemoveRegex)
		if add == "" && remove == "" && removeRe == "" {
			return
		}
		work = append(work, pending{
			id:       id,
			add:      graph.CommaList(add),
			remove:   graph.CommaList(remove),
			removeRe: removeRe,
		})
	})

	for _, w := range work {
		for _, v := range w.add {
			fromID, ok := g.FindByVersion(v)
			if !ok {
				level.Warn(logger).Log("msg", "previous.add references unknown release", "version", v)
				continue
			}
			_ = g.AddEdge(fromID, w.id)
		}
		for _, v := range w.remove {
			fromID, ok := g.FindByVersion(v)
			if !ok {
				continue
			}
			g.RemoveEdge(fromID, w.id)
		}
		if w.removeRe != "" {
			re, err := regexp.Compile(w.removeRe)
			if err != nil {
				level.Warn(logger).Log("msg", "previous.remove_regex invalid", "pattern", w.removeRe, "err", err)
				continue
			}
			p.removeMatchingPredecessors(g, w.id, re)
		}
	}

	return g, params, nil
}

func (EdgeAddRemove) removeMatchingPredecessors(g *graph.Graph, id graph.ReleaseID, re *regexp.Regexp) {
	var predecessors []graph.ReleaseID
	g.IterEdges(func(from, to graph.ReleaseID) {
		if to != id {
			return
		}
		predecessors = append(predecessors, from)
	})
	for _, from := range predecessors {
		rel, ok := g.Release(from)
		if !ok {
			continue
		}
		if re.MatchString(rel.Version.Original()) {
			g.RemoveEdge(from, id)
		}
	}
}
