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
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/graph"
)

type fakeLabelFetcher struct {
	labels map[string]map[string]string
	err    error
}

func (f *fakeLabelFetcher) FetchLabels(ctx context.Context, manifestRef string) (map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.labels[manifestRef], nil
}

func TestQuayMetadataFetchMergesLabelsIntoMetadata(t *testing.T) {
	g := graph.New()
	md := graph.NewMetadata()
	md.Set(graph.KeyManifestRef, "sha256:abc")
	id := addRelease(t, g, "4.1.0", md)

	fetcher := &fakeLabelFetcher{labels: map[string]map[string]string{
		"sha256:abc": {"release.openshift.io/from-release": "4.0.0"},
	}}

	out, _, err := QuayMetadataFetch{Fetcher: fetcher}.Run(context.Background(), g, graph.NewMetadata())
	require.NoError(t, err)
	rel, ok := out.Release(id)
	require.True(t, ok)
	v, ok := rel.Metadata.Get("release.openshift.io/from-release")
	require.True(t, ok)
	require.Equal(t, "4.0.0", v)
}

func TestQuayMetadataFetchSkipsReleaseWithoutManifestRef(t *testing.T) {
	g := graph.New()
	addRelease(t, g, "4.1.0", graph.NewMetadata())

	fetcher := &fakeLabelFetcher{err: errors.New("should not be called")}
	_, _, err := QuayMetadataFetch{Fetcher: fetcher}.Run(context.Background(), g, graph.NewMetadata())
	require.NoError(t, err)
}

func TestQuayMetadataFetchFailsPipelineOnFetchError(t *testing.T) {
	g := graph.New()
	md := graph.NewMetadata()
	md.Set(graph.KeyManifestRef, "sha256:abc")
	addRelease(t, g, "4.1.0", md)

	fetcher := &fakeLabelFetcher{err: errors.New("quay unavailable")}
	_, _, err := QuayMetadataFetch{Fetcher: fetcher}.Run(context.Background(), g, graph.NewMetadata())
	require.Error(t, err)
}
