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

package policy

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/hashicorp/go-version"
	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/graph"
	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/plugin"
)

type fakeFetcher struct {
	g     *graph.Graph
	err   error
	calls int
}

func (f *fakeFetcher) FetchGraph(ctx context.Context) (*graph.Graph, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.g, nil
}

func buildTestGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	v1, err := version.NewVersion("4.1.0")
	require.NoError(t, err)
	md := graph.NewMetadata()
	md.Set(graph.KeyChannels, "stable")
	_, err = g.AddRelease(graph.Release{Version: v1, Payload: "repo:4.1.0", Metadata: md})
	require.NoError(t, err)
	return g
}

func TestEngineServeAppliesChannelFilter(t *testing.T) {
	fetcher := &fakeFetcher{g: buildTestGraph(t)}
	pipeline := plugin.NewPipeline(plugin.ChannelFilter{}, plugin.ArchFilter{})
	e := New(fetcher, "builder", pipeline, Options{MandatoryParams: []string{"channel"}})

	params := graph.NewMetadata()
	params.Set(plugin.ParamChannel, "stable")
	params.Set(plugin.ParamArch, graph.DefaultArch)

	g, _, err := e.Serve(context.Background(), params)
	require.NoError(t, err)
	require.Equal(t, 1, g.NodeCount())
}

func TestEngineServeMissingMandatoryParam(t *testing.T) {
	fetcher := &fakeFetcher{g: buildTestGraph(t)}
	pipeline := plugin.NewPipeline(plugin.ChannelFilter{})
	e := New(fetcher, "builder", pipeline, Options{MandatoryParams: []string{"channel"}})

	_, _, err := e.Serve(context.Background(), graph.NewMetadata())
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMissingParam))
	require.Equal(t, http.StatusBadRequest, StatusFor(err))
}

func TestEngineServeDoesNotExistChannel(t *testing.T) {
	fetcher := &fakeFetcher{g: buildTestGraph(t)}
	pipeline := plugin.NewPipeline(plugin.ChannelFilter{})
	e := New(fetcher, "builder", pipeline, Options{MandatoryParams: []string{"channel"}})

	params := graph.NewMetadata()
	params.Set(plugin.ParamChannel, "nonexistent")

	_, _, err := e.Serve(context.Background(), params)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrDoesNotExist))
	require.Equal(t, http.StatusNotFound, StatusFor(err))
}

func TestEngineServeUpstreamUnavailable(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("dial tcp: connection refused")}
	pipeline := plugin.NewPipeline(plugin.ChannelFilter{})
	e := New(fetcher, "builder", pipeline, Options{})

	_, _, err := e.Serve(context.Background(), graph.NewMetadata())
	require.Error(t, err)
}

func TestCachingFetcherSharesUpstreamFetch(t *testing.T) {
	fetcher := &fakeFetcher{g: buildTestGraph(t)}
	cached := newCachingFetcher(fetcher, "key", 0)

	_, err := cached.FetchGraph(context.Background())
	require.NoError(t, err)
	_, err = cached.FetchGraph(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, fetcher.calls)
}
