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

package assembler

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/graph"
)

// channelFile is the on-disk shape of one channels/*.yaml file in the
// secondary metadata tree.
type channelFile struct {
	Name     string   `yaml:"name"`
	Versions []string `yaml:"versions"`
}

// riskFile is the on-disk shape of one risk definition file.
type riskFile struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Message string `yaml:"message"`
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	MatchingRules []struct {
		Type   string `yaml:"type"`
		PromQL string `yaml:"promql"`
	} `yaml:"matchingRules"`
}

// LoadChannels reads every *.yaml file under dir/channels into
// ChannelDefinitions.
func LoadChannels(dir string) ([]ChannelDefinition, error) {
	var out []ChannelDefinition
	err := forEachYAML(filepath.Join(dir, "channels"), func(data []byte, path string) error {
		var cf channelFile
		if err := yaml.Unmarshal(data, &cf); err != nil {
			return fmt.Errorf("assembler: parse channel file %s: %w", path, err)
		}
		if cf.Name == "" {
			return fmt.Errorf("assembler: channel file %s has no name", path)
		}
		out = append(out, ChannelDefinition{Name: cf.Name, Versions: cf.Versions})
		return nil
	})
	return out, err
}

// LoadRisks reads every *.yaml file under dir/blocked-edges into
// RiskDefinitions.
func LoadRisks(dir string) ([]RiskDefinition, error) {
	var out []RiskDefinition
	err := forEachYAML(filepath.Join(dir, "blocked-edges"), func(data []byte, path string) error {
		var rf riskFile
		if err := yaml.Unmarshal(data, &rf); err != nil {
			return fmt.Errorf("assembler: parse risk file %s: %w", path, err)
		}
		if rf.From == "" || rf.To == "" {
			return fmt.Errorf("assembler: risk file %s missing from/to", path)
		}
		rules := make([]graph.MatchingRule, 0, len(rf.MatchingRules))
		for _, mr := range rf.MatchingRules {
			rules = append(rules, graph.MatchingRule{Type: mr.Type, PromQL: mr.PromQL})
		}
		out = append(out, RiskDefinition{
			From: rf.From,
			To:   rf.To,
			Risk: graph.Risk{
				URL:           rf.URL,
				Name:          rf.Name,
				Message:       rf.Message,
				MatchingRules: rules,
			},
		})
		return nil
	})
	return out, err
}

func forEachYAML(dir string, fn func(data []byte, path string) error) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := fn(data, path); err != nil {
			return err
		}
	}
	return nil
}
