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

// Package plugin implements the graph-transformation pipeline: an
// ordered sequence of stages, each a
// (graph, parameters) -> (graph, parameters) | error transform, run
// strictly in sequence with the first error short-circuiting the
// rest.
package plugin

import (
	"context"
	"fmt"

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/graph"
)

// Params is the ordered string-to-string parameter set a pipeline
// invocation carries (channel name, architecture, current version,
// content type). It reuses graph.Metadata's order-preserving map
// rather than introducing a second implementation of the same thing.
type Params = graph.Metadata

// Plugin is one pipeline stage.
type Plugin interface {
	Name() string
	Run(ctx context.Context, g *graph.Graph, params Params) (*graph.Graph, Params, error)
}

// Pipeline runs Plugins strictly in sequence, each receiving the
// previous stage's output. There is no parallel-stage concept: stages
// run in declared order, and the first error stops the run.
type Pipeline struct {
	stages []Plugin
}

// NewPipeline returns a Pipeline that runs stages in the given order.
func NewPipeline(stages ...Plugin) *Pipeline {
	return &Pipeline{stages: stages}
}

// Run executes every stage in order, stopping at the first error.
func (p *Pipeline) Run(ctx context.Context, g *graph.Graph, params Params) (*graph.Graph, Params, error) {
	currentGraph := g
	currentParams := params

	for _, stage := range p.stages {
		select {
		case <-ctx.Done():
			return currentGraph, currentParams, ctx.Err()
		default:
		}

		next, nextParams, err := stage.Run(ctx, currentGraph, currentParams)
		if err != nil {
			return currentGraph, currentParams, fmt.Errorf("plugin %s: %w", stage.Name(), err)
		}
		currentGraph, currentParams = next, nextParams
	}
	return currentGraph, currentParams, nil
}

// Stages returns the pipeline's stages in execution order.
func (p *Pipeline) Stages() []Plugin {
	out := make([]Plugin, len(p.stages))
	copy(out, p.stages)
	return out
}
