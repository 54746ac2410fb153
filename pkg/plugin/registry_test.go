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
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
)

func TestNewBuildsKnownPluginKinds(t *testing.T) {
	for _, kind := range []string{
		"ChannelFilter", "ArchFilter", "NodeRemove", "VersionedGraphSerializer",
	} {
		p, err := New(Config{Kind: kind}, log.NewNopLogger())
		require.NoError(t, err, kind)
		require.Equal(t, kind, p.Name())
	}
}

func TestNewUnknownKindFails(t *testing.T) {
	_, err := New(Config{Kind: "DoesNotExist"}, log.NewNopLogger())
	require.ErrorIs(t, err, ErrUnknownPlugin)
}

func TestNewQuayMetadataFetchRequiresRepository(t *testing.T) {
	_, err := New(Config{Kind: "QuayMetadataFetch"}, log.NewNopLogger())
	require.Error(t, err)
}

func TestNewQuayMetadataFetchBuildsWithRepository(t *testing.T) {
	raw, err := json.Marshal(map[string]string{"repository": "openshift-release-dev/ocp-release"})
	require.NoError(t, err)
	p, err := New(Config{Kind: "QuayMetadataFetch", Params: raw}, log.NewNopLogger())
	require.NoError(t, err)
	require.Equal(t, "QuayMetadataFetch", p.Name())
}

func TestNewConditionalEdgeOverlayParsesRules(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"rules": []map[string]any{
			{"from": "^4\\.1\\..*", "to": "^4\\.2\\..*", "risk": map[string]string{"name": "known-issue"}},
		},
	})
	require.NoError(t, err)
	p, err := New(Config{Kind: "ConditionalEdgeOverlay", Params: raw}, log.NewNopLogger())
	require.NoError(t, err)
	overlay, ok := p.(ConditionalEdgeOverlay)
	require.True(t, ok)
	require.Len(t, overlay.Rules, 1)
	require.Equal(t, "known-issue", overlay.Rules[0].Risk.Name)
}

func TestNewPipelineFromConfigStopsAtFirstInvalidKind(t *testing.T) {
	_, err := NewPipelineFromConfig([]Config{
		{Kind: "ChannelFilter"},
		{Kind: "NotAPlugin"},
	}, log.NewNopLogger())
	require.ErrorIs(t, err, ErrUnknownPlugin)
}

func TestNewPipelineFromConfigBuildsOrderedPipeline(t *testing.T) {
	p, err := NewPipelineFromConfig([]Config{
		{Kind: "ChannelFilter"},
		{Kind: "ArchFilter"},
	}, log.NewNopLogger())
	require.NoError(t, err)
	require.Len(t, p.Stages(), 2)
	require.Equal(t, "ChannelFilter", p.Stages()[0].Name())
	require.Equal(t, "ArchFilter", p.Stages()[1].Name())
}
