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

// Command policy-engine serves the per-request policy pipeline
// over a graph fetched from a configured graph-builder.
// Process wiring mirrors cmd/graph-builder: one run.Group actor for
// the HTTP server, one for SIGTERM, one for the metrics listener.
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
	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/plugin"
	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/policy"
	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/signatures"
)

func main() {
	settings, verbosity, err := config.Load("policy-engine", "Serves a filtered update graph fetched from a graph-builder.", os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.NewJSONLogger(verbosity)
	level.Info(logger).Log("msg", "starting policy-engine", "version", version.Version)

	if settings.UpstreamCincinnatiURL == "" {
		level.Error(logger).Log("msg", "upstream.cincinnati.url is required")
		os.Exit(2)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := policy.NewMetrics(reg)

	pluginConfigs, err := toPluginConfigs(settings.PolicyPlugins)
	if err != nil {
		level.Error(logger).Log("msg", "decode policy plugin configuration", "err", err)
		os.Exit(1)
	}
	if len(pluginConfigs) == 0 {
		pluginConfigs = defaultPolicyPlugins()
	}
	pipeline, err := plugin.NewPipelineFromConfig(pluginConfigs, logger)
	if err != nil {
		level.Error(logger).Log("msg", "configure policy plugin pipeline", "err", err)
		os.Exit(1)
	}

	fetcher := policy.NewHTTPFetcher(settings.UpstreamCincinnatiURL)
	engine := policy.New(fetcher, settings.UpstreamCincinnatiURL, pipeline, policy.Options{
		MandatoryParams: settings.MandatoryClientParameters,
		Logger:          logger,
	})

	var g run.Group
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
		mux.HandleFunc(settings.PathPrefix+"/v1/graph", engine.GraphHandler(metrics))
		if settings.SignaturesDir != "" {
			mux.Handle("/signatures/", http.StripPrefix("/signatures", signatures.NewHandler(settings.SignaturesDir)))
		}
		addr := fmt.Sprintf("%s:%d", settings.ServiceAddress, settings.ServicePort)
		server := &http.Server{Addr: addr, Handler: mux}

		g.Add(func() error {
			level.Info(logger).Log("msg", "starting policy-engine HTTP service", "addr", addr)
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
		addr := fmt.Sprintf("%s:%d", settings.StatusAddress, settings.StatusPort)
		server := &http.Server{Addr: addr, Handler: mux}

		g.Add(func() error {
			level.Info(logger).Log("msg", "starting policy-engine status service", "addr", addr)
			return server.ListenAndServe()
		}, func(error) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			server.Shutdown(ctx)
		})
	}

	if err := g.Run(); err != nil {
		level.Error(logger).Log("msg", "policy-engine exited", "err", err)
		os.Exit(1)
	}
}

// defaultPolicyPlugins is the pipeline run when no service.plugins are
// configured: channel filter, arch filter, then the serializer stage
// that resolves the response content type.
func defaultPolicyPlugins() []plugin.Config {
	return []plugin.Config{
		{Kind: "ChannelFilter"},
		{Kind: "ArchFilter"},
		{Kind: "VersionedGraphSerializer"},
	}
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
