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

// Package policy implements the policy engine's per-request pipeline:
// fetch-and-cache the upstream graph, clone it, run a
// per-request plugin pipeline over the clone, and serialize the
// result. Unlike the builder's single long-lived loop, every request
// here is independent: the only state carried between requests is the
// short-TTL upstream-graph cache.
package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log"

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/graph"
	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/plugin"
)

// Options configures an Engine.
type Options struct {
	// MandatoryParams are the client parameters every request must
	// supply.
	MandatoryParams []string
	UpstreamTTL     time.Duration
	Logger          log.Logger
}

// Engine serves the per-request policy pipeline over a cached
// upstream graph.
type Engine struct {
	upstream  Fetcher
	pipeline  *plugin.Pipeline
	mandatory []string
	logger    log.Logger
}

// New returns an Engine that fetches the upstream graph via fetcher
// (normally an HTTPFetcher pointed at a graph-builder, wrapped with a
// short-TTL cache keyed by its URL) and runs pipeline over a clone of
// it for every request.
func New(fetcher Fetcher, cacheKey string, pipeline *plugin.Pipeline, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	return &Engine{
		upstream:  newCachingFetcher(fetcher, cacheKey, opts.UpstreamTTL),
		pipeline:  pipeline,
		mandatory: opts.MandatoryParams,
		logger:    opts.Logger,
	}
}

// Serve runs one request through the pipeline and returns the
// resulting graph plus the (possibly plugin-normalized) parameters,
// e.g. the content type the VersionedGraphSerializer stage resolved.
// Callers translate the returned error into an HTTP status using
// StatusFor.
func (e *Engine) Serve(ctx context.Context, params plugin.Params) (*graph.Graph, plugin.Params, error) {
	for _, name := range e.mandatory {
		if v, ok := params.Get(name); !ok || v == "" {
			return nil, params, fmt.Errorf("%w: %s", ErrMissingParam, name)
		}
	}

	upstream, err := e.upstream.FetchGraph(ctx)
	if err != nil {
		return nil, params, err
	}

	if channel, ok := params.Get(plugin.ParamChannel); ok && channel != "" {
		if !channelExists(upstream, channel) {
			return nil, params, fmt.Errorf("%w: %s", ErrDoesNotExist, channel)
		}
	}

	clone := upstream.Clone()

	g, outParams, err := e.pipeline.Run(ctx, clone, params)
	if err != nil {
		return nil, params, err
	}
	return g, outParams, nil
}

// channelExists reports whether any release in g carries channel
// membership. A request for a channel the upstream graph has never
// heard of is treated as DoesNotExist, distinct from a
// channel that exists but filters down to zero releases.
func channelExists(g *graph.Graph, channel string) bool {
	found := false
	g.IterReleases(func(_ graph.ReleaseID, rel *graph.Release) {
		if rel.Metadata.HasChannel(channel) {
			found = true
		}
	})
	return found
}
