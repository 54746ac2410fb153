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

// Command graph-builder runs the builder loop: scrape a
// registry repository on a fixed period, fold in optional secondary
// metadata, assemble and transform the result, and serve it over
// GET /v1/graph. Process wiring is one oklog/run.Group actor for the
// builder loop, one for SIGTERM, one each for the service and status
// HTTP servers.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log/level"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"

	"github.com/GoogleCloudPlatform/update-graph-engine/internal/config"
	"github.com/GoogleCloudPlatform/update-graph-engine/internal/logging"
	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/builder"
	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/plugin"
	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/registry"
	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/scraper"
	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/secondary"
	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/signatures"
)

func main() {
	settings, verbosity, err := config.Load("graph-builder", "Builds the canonical update graph from a registry's release images.", os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.NewLogfmtLogger(verbosity)
	level.Info(logger).Log("msg", "starting graph-builder", "version", version.Version)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := builder.NewMetrics(reg)

	client, err := registry.NewClient(settings.UpstreamRegistryURL+"/"+settings.UpstreamRegistryRepository,
		registry.WithLogger(logger))
	if err != nil {
		level.Error(logger).Log("msg", "configure registry client", "err", err)
		os.Exit(1)
	}
	sc := scraper.New(scraper.WrapClient(client), settings.UpstreamRegistryRepository, scraper.Options{
		Concurrency: settings.UpstreamRegistryConcurrency,
		Logger:      logger,
	})

	pluginConfigs, err := toPluginConfigs(settings.BuilderPlugins)
	if err != nil {
		level.Error(logger).Log("msg", "decode builder plugin configuration", "err", err)
		os.Exit(1)
	}
	pipeline, err := plugin.NewPipelineFromConfig(pluginConfigs, logger)
	if err != nil {
		level.Error(logger).Log("msg", "configure builder plugin pipeline", "err", err)
		os.Exit(1)
	}

	src, err := secondarySource(settings)
	if err != nil {
		level.Error(logger).Log("msg", "configure secondary metadata source", "err", err)
		os.Exit(1)
	}
	var sec *builder.Secondary
	if src != nil {
		sec = &builder.Secondary{
			Syncer: &secondary.Syncer{
				Source: src,
				OutDir: settings.SecondaryOutputDir,
				Logger: logger,
			},
			Dir: settings.SecondaryOutputDir,
		}
	}

	b := builder.New(sc, pipeline, metrics, builder.Options{
		Period:    settings.BuilderPeriod,
		Logger:    logger,
		Secondary: sec,
	})

	var g run.Group
	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			return b.Run(ctx)
		}, func(error) {
			cancel()
		})
	}
	{
		term := make(chan os.Signal, 1)
		cancel := make(chan struct{})
		signal.Notify(term, os.Interrupt, syscall.SIGTERM)
		g.Add(func() error {
			select {
			case <-term:
				level.Info(logger).Log("msg", "received SIGTERM, exiting gracefully...")
			case <-cancel:
			}
			return nil
		}, func(error) {
			close(cancel)
		})
	}
	{
		mux := http.NewServeMux()
		mux.HandleFunc("/v1/graph", b.GraphHandler())
		if settings.SignaturesDir != "" {
			mux.Handle("/signatures/", http.StripPrefix("/signatures", signatures.NewHandler(settings.SignaturesDir)))
		}
		addr := fmt.Sprintf("%s:%d", settings.ServiceAddress, settings.ServicePort)
		server := &http.Server{Addr: addr, Handler: mux}

		g.Add(func() error {
			level.Info(logger).Log("msg", "starting graph-builder HTTP service", "addr", addr)
			return server.ListenAndServe()
		}, func(error) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			server.Shutdown(ctx)
		})
	}
	{
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		mux.HandleFunc("/liveness", b.LivenessHandler())
		mux.HandleFunc("/readiness", b.ReadinessHandler())
		addr := fmt.Sprintf("%s:%d", settings.StatusAddress, settings.StatusPort)
		server := &http.Server{Addr: addr, Handler: mux}

		g.Add(func() error {
			level.Info(logger).Log("msg", "starting graph-builder status service", "addr", addr)
			return server.ListenAndServe()
		}, func(error) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			server.Shutdown(ctx)
		})
	}

	if err := g.Run(); err != nil {
		level.Error(logger).Log("msg", "graph-builder exited", "err", err)
		os.Exit(1)
	}
}

// secondarySource picks the configured secondary metadata source: a
// container image when secondary.image is set, else the GitHub branch
// pair, else none. A configured secondary.tls.certs_dir is folded into
// the GitHub source's HTTP client.
func secondarySource(settings *config.Settings) (secondary.Source, error) {
	if settings.SecondaryImage != "" {
		return &secondary.ImageSource{Reference: settings.SecondaryImage}, nil
	}
	if settings.SecondaryGitHubOrg != "" && settings.SecondaryGitHubRepo != "" {
		src := &secondary.GitHubSource{
			Org:    settings.SecondaryGitHubOrg,
			Repo:   settings.SecondaryGitHubRepo,
			Branch: settings.SecondaryGitHubBranch,
		}
		if settings.SecondaryTLSCertsDir != "" {
			tlsCfg, err := secondary.TLSConfig(settings.SecondaryTLSCertsDir)
			if err != nil {
				return nil, err
			}
			src.HTTPClient = &http.Client{Transport: &http.Transport{TLSClientConfig: tlsCfg}}
		}
		return src, nil
	}
	return nil, nil
}

func toPluginConfigs(specs []config.PluginSpec) ([]plugin.Config, error) {
	out := make([]plugin.Config, 0, len(specs))
	for _, s := range specs {
		cfg, err := s.ToPluginConfig()
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}
