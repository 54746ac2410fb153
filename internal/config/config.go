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

// Package config implements the TOML-file-plus-flag configuration
// merge: a settings struct whose fields are
// populated, in priority order, from built-in defaults, then a TOML
// file named by -c, then command-line flags (each layer overriding
// the one before it). github.com/alecthomas/kingpin/v2 provides the
// flag surface, github.com/pelletier/go-toml/v2 the file layer.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/plugin"
)

// PluginSpec is the on-disk TOML shape of one pipeline stage. Params
// is decoded as a generic map and re-encoded to JSON when building the
// actual plugin.Config, since go-toml/v2 has no notion of
// encoding/json.RawMessage and plugin.New's factories already expect
// JSON-shaped parameters.
type PluginSpec struct {
	Kind   string                 `toml:"kind"`
	Params map[string]interface{} `toml:"params"`
}

// ToPluginConfig converts the TOML representation into the
// plugin.Config shape the registry consumes.
func (p PluginSpec) ToPluginConfig() (plugin.Config, error) {
	var raw json.RawMessage
	if len(p.Params) > 0 {
		b, err := json.Marshal(p.Params)
		if err != nil {
			return plugin.Config{}, fmt.Errorf("config: encode params for plugin %s: %w", p.Kind, err)
		}
		raw = b
	}
	return plugin.Config{Kind: p.Kind, Params: raw}, nil
}

// Settings is the fully merged configuration for either binary. Not
// every field applies to every binary; each cmd/ package reads only
// what it needs.
type Settings struct {
	ServiceAddress string `toml:"service.address"`
	ServicePort    int    `toml:"service.port"`
	StatusAddress  string `toml:"status.address"`
	StatusPort     int    `toml:"status.port"`

	PathPrefix                string   `toml:"service.path_prefix"`
	TracingEndpoint           string   `toml:"service.tracing_endpoint"`
	MandatoryClientParameters []string `toml:"service.mandatory_client_parameters"`

	UpstreamRegistryURL         string        `toml:"upstream.registry.url"`
	UpstreamRegistryRepository  string        `toml:"upstream.registry.repository"`
	UpstreamRegistryConcurrency int           `toml:"upstream.registry.concurrency"`
	UpstreamCincinnatiURL       string        `toml:"upstream.cincinnati.url"`
	BuilderPeriod               time.Duration `toml:"builder.period"`

	SecondaryGitHubOrg    string        `toml:"secondary.github.org"`
	SecondaryGitHubRepo   string        `toml:"secondary.github.repo"`
	SecondaryGitHubBranch string        `toml:"secondary.github.branch"`
	SecondaryImage        string        `toml:"secondary.image"`
	SecondaryOutputDir    string        `toml:"secondary.output_dir"`
	SecondaryTLSCertsDir  string        `toml:"secondary.tls.certs_dir"`
	SecondaryPeriod       time.Duration `toml:"secondary.period"`

	SignaturesDir string `toml:"service.signatures_dir"`

	BuilderPlugins []PluginSpec `toml:"builder.plugins"`
	PolicyPlugins  []PluginSpec `toml:"service.plugins"`
}

// Defaults returns the built-in baseline every other layer overrides.
func Defaults() Settings {
	return Settings{
		ServiceAddress:              "0.0.0.0",
		ServicePort:                 8080,
		StatusAddress:               "0.0.0.0",
		StatusPort:                  9080,
		MandatoryClientParameters:   []string{"channel"},
		UpstreamRegistryConcurrency: 16,
		BuilderPeriod:               30 * time.Second,
		SecondaryGitHubBranch:       "main",
		SecondaryPeriod:             5 * time.Minute,
	}
}

// configFileFlag scans args for -c/--config-file without invoking the
// full kingpin parser, so the file layer can be loaded before flags
// are bound to their (file-derived) defaults.
func configFileFlag(args []string) string {
	for i, a := range args {
		switch {
		case a == "-c" || a == "--config-file":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(a, "--config-file="):
			return strings.TrimPrefix(a, "--config-file=")
		case strings.HasPrefix(a, "-c="):
			return strings.TrimPrefix(a, "-c=")
		}
	}
	return ""
}

// applyFile decodes the TOML file at path over base, returning the
// merged result. Only fields present in the file are overridden; a
// zero-value field is indistinguishable from "absent" for scalars, so
// the file is decoded directly onto base rather than onto a separate
// zero-value struct first — go-toml/v2 leaves fields it doesn't see
// untouched.
func applyFile(base Settings, path string) (Settings, error) {
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &base); err != nil {
		return base, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return base, nil
}

// Load implements the full "defaults -> file -> flags" merge for the flag surface registered by Bind. args is normally
// os.Args[1:]; name/help identify the binary in --help output.
func Load(name, help string, args []string) (*Settings, int, error) {
	merged, err := applyFile(Defaults(), configFileFlag(args))
	if err != nil {
		return nil, 0, err
	}

	app := kingpin.New(name, help)
	app.HelpFlag.Short('h')
	var verbosity int
	app.Flag("verbose", "Increase logging verbosity; repeatable up to 3 times.").
		Short('v').SetValue(newCounterValue(&verbosity))
	app.Flag("config-file", "TOML configuration file.").Short('c').String()

	Bind(app, &merged)

	if _, err := app.Parse(args); err != nil {
		return nil, 0, fmt.Errorf("config: parse flags: %w", err)
	}
	return &merged, verbosity, nil
}

// Bind registers every settings field as a kingpin flag, defaulted to
// whatever Load already resolved from defaults+file, so that flags
// supplied on the command line are the only thing left to override
//.
func Bind(app *kingpin.Application, s *Settings) {
	app.Flag("service.address", "Address the policy-engine/graph-builder HTTP service listens on.").
		Default(s.ServiceAddress).StringVar(&s.ServiceAddress)
	app.Flag("service.port", "Port the HTTP service listens on.").
		Default(itoa(s.ServicePort)).IntVar(&s.ServicePort)
	app.Flag("status.address", "Address the liveness/readiness/metrics server listens on.").
		Default(s.StatusAddress).StringVar(&s.StatusAddress)
	app.Flag("status.port", "Port the liveness/readiness/metrics server listens on.").
		Default(itoa(s.StatusPort)).IntVar(&s.StatusPort)

	app.Flag("service.path_prefix", "URL path prefix for the policy engine's routes.").
		Default(s.PathPrefix).StringVar(&s.PathPrefix)
	app.Flag("service.tracing_endpoint", "Endpoint to export request traces to.").
		Default(s.TracingEndpoint).StringVar(&s.TracingEndpoint)
	app.Flag("service.mandatory_client_parameters", "Comma-separated list of query parameters clients must supply.").
		Default(strings.Join(s.MandatoryClientParameters, ",")).SetValue(newCSVValue(&s.MandatoryClientParameters))

	app.Flag("upstream.registry.url", "Docker Registry v2 host to scrape.").
		Default(s.UpstreamRegistryURL).StringVar(&s.UpstreamRegistryURL)
	app.Flag("upstream.registry.repository", "Repository within the registry to scrape.").
		Default(s.UpstreamRegistryRepository).StringVar(&s.UpstreamRegistryRepository)
	app.Flag("upstream.registry.concurrency", "Bounded concurrency for blob/manifest fetches during a scrape.").
		Default(itoa(s.UpstreamRegistryConcurrency)).IntVar(&s.UpstreamRegistryConcurrency)
	app.Flag("upstream.cincinnati.url", "Graph-builder URL the policy engine fetches the canonical graph from.").
		Default(s.UpstreamCincinnatiURL).StringVar(&s.UpstreamCincinnatiURL)
	app.Flag("builder.period", "Interval between builder loop iterations.").
		Default(s.BuilderPeriod.String()).DurationVar(&s.BuilderPeriod)

	app.Flag("secondary.github.org", "GitHub organization hosting the secondary metadata repository.").
		Default(s.SecondaryGitHubOrg).StringVar(&s.SecondaryGitHubOrg)
	app.Flag("secondary.github.repo", "GitHub repository hosting the secondary metadata archive.").
		Default(s.SecondaryGitHubRepo).StringVar(&s.SecondaryGitHubRepo)
	app.Flag("secondary.github.branch", "Branch whose tip is periodically synced.").
		Default(s.SecondaryGitHubBranch).StringVar(&s.SecondaryGitHubBranch)
	app.Flag("secondary.image", "Container image carrying the secondary metadata archive; takes precedence over the GitHub source.").
		Default(s.SecondaryImage).StringVar(&s.SecondaryImage)
	app.Flag("secondary.output_dir", "Directory the secondary metadata archive is extracted into.").
		Default(s.SecondaryOutputDir).StringVar(&s.SecondaryOutputDir)
	app.Flag("secondary.tls.certs_dir", "Directory of additional trusted CA certificates, scanned to depth 2.").
		Default(s.SecondaryTLSCertsDir).StringVar(&s.SecondaryTLSCertsDir)
	app.Flag("secondary.period", "Interval between secondary metadata sync attempts.").
		Default(s.SecondaryPeriod.String()).DurationVar(&s.SecondaryPeriod)

	app.Flag("service.signatures_dir", "Directory the signatures endpoint serves files from.").
		Default(s.SignaturesDir).StringVar(&s.SignaturesDir)
}

func itoa(v int) string {
	return fmt.Sprintf("%d", v)
}
