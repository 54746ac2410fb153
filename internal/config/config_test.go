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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	s, verbosity, err := Load("test", "", nil)
	require.NoError(t, err)
	require.Equal(t, 0, verbosity)
	require.Equal(t, 8080, s.ServicePort)
	require.Equal(t, 9080, s.StatusPort)
	require.Equal(t, []string{"channel"}, s.MandatoryClientParameters)
	require.Equal(t, 16, s.UpstreamRegistryConcurrency)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
"service.port" = 9000
"upstream.registry.url" = "registry.example.com"
`)
	s, _, err := Load("test", "", []string{"-c", path})
	require.NoError(t, err)
	require.Equal(t, 9000, s.ServicePort)
	require.Equal(t, "registry.example.com", s.UpstreamRegistryURL)
	// Untouched fields keep their defaults.
	require.Equal(t, 9080, s.StatusPort)
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	path := writeConfigFile(t, `
"service.port" = 9000
`)
	s, _, err := Load("test", "", []string{"-c", path, "--service.port=9001"})
	require.NoError(t, err)
	require.Equal(t, 9001, s.ServicePort)
}

func TestLoadMandatoryClientParametersCSV(t *testing.T) {
	s, _, err := Load("test", "", []string{"--service.mandatory_client_parameters=channel,arch"})
	require.NoError(t, err)
	require.Equal(t, []string{"channel", "arch"}, s.MandatoryClientParameters)
}

func TestLoadVerbosityRepeatsAndCaps(t *testing.T) {
	_, verbosity, err := Load("test", "", []string{"-v", "-v"})
	require.NoError(t, err)
	require.Equal(t, 2, verbosity)

	_, verbosity, err = Load("test", "", []string{"-v", "-v", "-v", "-v"})
	require.NoError(t, err)
	require.Equal(t, 3, verbosity)
}

func TestLoadRejectsMissingConfigFile(t *testing.T) {
	_, _, err := Load("test", "", []string{"-c", "/does/not/exist.toml"})
	require.Error(t, err)
}

func TestPluginSpecToPluginConfig(t *testing.T) {
	spec := PluginSpec{
		Kind:   "ConditionalEdgeOverlay",
		Params: map[string]interface{}{"rules": []interface{}{}},
	}
	cfg, err := spec.ToPluginConfig()
	require.NoError(t, err)
	require.Equal(t, "ConditionalEdgeOverlay", cfg.Kind)
	require.JSONEq(t, `{"rules":[]}`, string(cfg.Params))
}
