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
	"encoding/json"
	"fmt"

	"github.com/go-kit/log"

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/graph"
)

// Config is the on-disk shape of one plugin entry in a pipeline
// definition: a kind name plus kind-specific JSON configuration.
type Config struct {
	Kind   string          `json:"kind"`
	Params json.RawMessage `json:"params"`
}

// Factory builds a configured Plugin from raw, kind-specific JSON
// configuration.
type Factory func(raw json.RawMessage, logger log.Logger) (Plugin, error)

// registry is the closed set of plugin kinds a pipeline configuration
// may name. There is no dynamic loading: adding a kind means
// adding an entry here.
var registry = map[string]Factory{
	"ChannelFilter":            func(json.RawMessage, log.Logger) (Plugin, error) { return ChannelFilter{}, nil },
	"ArchFilter":               func(json.RawMessage, log.Logger) (Plugin, error) { return ArchFilter{}, nil },
	"NodeRemove":               func(json.RawMessage, log.Logger) (Plugin, error) { return NodeRemove{}, nil },
	"EdgeAddRemove":            newEdgeAddRemove,
	"QuayMetadataFetch":        newQuayMetadataFetch,
	"ConditionalEdgeOverlay":   newConditionalEdgeOverlay,
	"VersionedGraphSerializer": func(json.RawMessage, log.Logger) (Plugin, error) { return VersionedGraphSerializer{}, nil },
}

// New builds the plugin named by cfg.Kind. It fails with
// ErrUnknownPlugin for any kind outside the closed registry above.
func New(cfg Config, logger log.Logger) (Plugin, error) {
	factory, ok := registry[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, cfg.Kind)
	}
	return factory(cfg.Params, logger)
}

// NewPipelineFromConfig builds an ordered Pipeline from a list of
// plugin configurations, in declared order.
func NewPipelineFromConfig(cfgs []Config, logger log.Logger) (*Pipeline, error) {
	stages := make([]Plugin, 0, len(cfgs))
	for _, cfg := range cfgs {
		p, err := New(cfg, logger)
		if err != nil {
			return nil, err
		}
		stages = append(stages, p)
	}
	return NewPipeline(stages...), nil
}

func newEdgeAddRemove(raw json.RawMessage, logger log.Logger) (Plugin, error) {
	return EdgeAddRemove{Logger: logger}, nil
}

type quayMetadataFetchConfig struct {
	BaseURL    string `json:"baseUrl"`
	Repository string `json:"repository"`
}

func newQuayMetadataFetch(raw json.RawMessage, logger log.Logger) (Plugin, error) {
	var cfg quayMetadataFetchConfig
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("plugin QuayMetadataFetch: %w", err)
		}
	}
	if cfg.Repository == "" {
		return nil, fmt.Errorf("plugin QuayMetadataFetch: repository is required")
	}
	return QuayMetadataFetch{Fetcher: &QuayClient{BaseURL: cfg.BaseURL, Repository: cfg.Repository}}, nil
}

type conditionalEdgeOverlayConfig struct {
	Rules []struct {
		From string `json:"from"`
		To   string `json:"to"`
		Risk struct {
			URL     string `json:"url"`
			Name    string `json:"name"`
			Message string `json:"message"`
		} `json:"risk"`
	} `json:"rules"`
}

func newConditionalEdgeOverlay(raw json.RawMessage, logger log.Logger) (Plugin, error) {
	var cfg conditionalEdgeOverlayConfig
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("plugin ConditionalEdgeOverlay: %w", err)
		}
	}
	rules := make([]RiskRule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		rules = append(rules, RiskRule{
			FromPattern: r.From,
			ToPattern:   r.To,
			Risk: graph.Risk{
				URL:     r.Risk.URL,
				Name:    r.Risk.Name,
				Message: r.Risk.Message,
			},
		})
	}
	return ConditionalEdgeOverlay{Rules: rules}, nil
}
