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
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/graph"
)

func TestVersionedGraphSerializerNormalizesKnownContentType(t *testing.T) {
	g := graph.New()
	params := graph.NewMetadata()
	params.Set(ParamContentType, "application/vnd.redhat.cincinnati.v1+json")

	_, out, err := VersionedGraphSerializer{}.Run(context.Background(), g, params)
	require.NoError(t, err)
	ct, ok := out.Get(ParamContentType)
	require.True(t, ok)
	require.Equal(t, "application/vnd.redhat.cincinnati.v1+json", ct)
}

func TestVersionedGraphSerializerDefaultsUnrecognizedContentType(t *testing.T) {
	g := graph.New()
	params := graph.NewMetadata()
	params.Set(ParamContentType, "text/plain")

	_, out, err := VersionedGraphSerializer{}.Run(context.Background(), g, params)
	require.NoError(t, err)
	ct, ok := out.Get(ParamContentType)
	require.True(t, ok)
	require.Equal(t, "application/vnd.redhat.cincinnati.v1+json", ct)
}

func TestVersionedGraphSerializerLeavesGraphUnchanged(t *testing.T) {
	g := graph.New()
	addRelease(t, g, "4.1.0", graph.NewMetadata())

	out, _, err := VersionedGraphSerializer{}.Run(context.Background(), g, graph.NewMetadata())
	require.NoError(t, err)
	require.Same(t, g, out)
}
