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

// Package builder implements the graph-builder's control loop: sleep
// for the configured period, scrape the registry, fetch secondary
// metadata, assemble an initial graph, run the builder-side plugin
// pipeline, then publish. The published-graph slot is a lock-free
// atomic.Pointer rather than a mutex-guarded struct, since the read
// path is pure publish/read of an immutable value.
package builder

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/assembler"
	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/graph"
	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/plugin"
	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/scraper"
	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/secondary"
)

// DefaultPeriod is the builder loop's default tick interval.
const DefaultPeriod = 30 * time.Second

// Secondary bundles the optional secondary-metadata collaborators. A
// nil Syncer means the builder assembles from scraped releases alone
// (useful for registries with no secondary metadata source, or in
// tests).
type Secondary struct {
	Syncer *secondary.Syncer
	// Dir is where the synced tree (and its channels/blocked-edges
	// subdirectories) lives; Syncer.OutDir if unset.
	Dir string
}

// Options configures a Builder.
type Options struct {
	Period    time.Duration
	Logger    log.Logger
	Secondary *Secondary
}

// Builder owns the single "current published graph" cell: one writer
// (the loop goroutine started by Run), many readers via Current.
type Builder struct {
	scraper   *scraper.Scraper
	secondary *Secondary
	pipeline  *plugin.Pipeline
	period    time.Duration
	logger    log.Logger
	metrics   *Metrics

	current atomic.Pointer[graph.VersionedGraph]
	started atomic.Bool
	ready   atomic.Bool
}

// New returns a Builder that scrapes via sc, optionally folds in
// secondary metadata, and runs pipeline once per iteration before
// publishing.
func New(sc *scraper.Scraper, pipeline *plugin.Pipeline, metrics *Metrics, opts Options) *Builder {
	if opts.Period <= 0 {
		opts.Period = DefaultPeriod
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry())
	}
	return &Builder{
		scraper:   sc,
		secondary: opts.Secondary,
		pipeline:  pipeline,
		period:    opts.Period,
		logger:    opts.Logger,
		metrics:   metrics,
	}
}

// Run executes the loop until ctx is canceled. Liveness becomes true as soon as Run starts,
// before the first tick; readiness becomes true only after the first
// successful build.
func (b *Builder) Run(ctx context.Context) error {
	b.started.Store(true)

	if err := b.tick(ctx); err != nil {
		level.Warn(b.logger).Log("msg", "initial build failed, retaining no graph yet", "err", err)
	}

	ticker := time.NewTicker(b.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := b.tick(ctx); err != nil {
				level.Warn(b.logger).Log("msg", "build iteration failed, serving last good graph", "err", err)
			}
		}
	}
}

// tick runs exactly one scrape-assemble-transform-publish cycle. A
// failure at any stage leaves the previously published graph (if any)
// untouched.
func (b *Builder) tick(ctx context.Context) error {
	start := time.Now()
	err := b.build(ctx)
	b.metrics.ScrapeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		b.metrics.ScrapeErrorsTotal.Inc()
	}
	return err
}

func (b *Builder) build(ctx context.Context) error {
	releases, err := b.scraper.Scrape(ctx)
	if err != nil {
		return err
	}

	var channels []assembler.ChannelDefinition
	var risks []assembler.RiskDefinition
	if b.secondary != nil && b.secondary.Syncer != nil {
		if _, _, err := b.secondary.Syncer.Sync(ctx); err != nil {
			return err
		}
		dir := b.secondary.Dir
		if dir == "" {
			dir = b.secondary.Syncer.OutDir
		}
		channels, err = assembler.LoadChannels(dir)
		if err != nil {
			return err
		}
		risks, err = assembler.LoadRisks(dir)
		if err != nil {
			return err
		}
	}

	g, err := assembler.Assemble(releases, channels, risks)
	if err != nil {
		return err
	}

	if b.pipeline != nil {
		g, _, err = b.pipeline.Run(ctx, g, plugin.Params{})
		if err != nil {
			return err
		}
	}

	vg := graph.NewVersionedGraph(g, "application/json")
	b.current.Store(&vg)
	b.ready.Store(true)
	b.metrics.PublishedNodes.Set(float64(g.NodeCount()))
	b.metrics.PublishedEdges.Set(float64(g.EdgeCount()))
	level.Info(b.logger).Log("msg", "published graph", "nodes", g.NodeCount(), "edges", g.EdgeCount())
	return nil
}

// Current returns the most recently published graph, and whether one
// has ever been published.
func (b *Builder) Current() (*graph.VersionedGraph, bool) {
	vg := b.current.Load()
	if vg == nil {
		return nil, false
	}
	return vg, true
}

// Live reports whether the loop has started.
func (b *Builder) Live() bool { return b.started.Load() }

// Ready reports whether at least one build has published a graph.
func (b *Builder) Ready() bool { return b.ready.Load() }
