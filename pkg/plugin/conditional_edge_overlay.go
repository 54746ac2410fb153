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

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/graph"
)

// RiskRule is one risk definition the overlay matches against the
// assembled graph's edges.
type RiskRule struct {
	FromPattern string
	ToPattern   string
	Risk        graph.Risk
}

// ConditionalEdgeOverlay matches edges already present in the graph
// against each rule's from/to regex pair, attaching the rule's risk to
// every edge that matches both.
type ConditionalEdgeOverlay struct {
	Rules []RiskRule
}

func (ConditionalEdgeOverlay) Name() string { return "ConditionalEdgeOverlay" }

func (p ConditionalEdgeOverlay) Run(ctx context.Context, g *graph.Graph, params Params) (*graph.Graph, Params, error) {
	compiled := make([]struct {
		from, to *regexp.Regexp
		risk     graph.Risk
	}, 0, len(p.Rules))
	for _, rule := range p.Rules {
		from, err := regexp.Compile(rule.FromPattern)
		if err != nil {
			return nil, params, err
		}
		to, err := regexp.Compile(rule.ToPattern)
		if err != nil {
			return nil, params, err
		}
		compiled = append(compiled, struct {
			from, to *regexp.Regexp
			risk     graph.Risk
		}{from, to, rule.Risk})
	}

	g.IterEdges(func(fromID, toID graph.ReleaseID) {
		fromRel, ok := g.Release(fromID)
		if !ok {
			return
		}
		toRel, ok := g.Release(toID)
		if !ok {
			return
		}
		for _, c := range compiled {
			if c.from.MatchString(fromRel.Version.Original()) && c.to.MatchString(toRel.Version.Original()) {
				g.AddRisk(fromID, toID, c.risk)
			}
		}
	})

	return g, params, nil
}
