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
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/graph"
)

// DefaultUpstreamTTL is how long a fetched upstream graph is reused
// before the next request triggers a fresh fetch.
const DefaultUpstreamTTL = 15 * time.Second

// Fetcher retrieves the canonical graph published by a graph-builder.
// Declared as an interface so tests can stand in a fake without
// spinning up an HTTP server.
type Fetcher interface {
	FetchGraph(ctx context.Context) (*graph.Graph, error)
}

// HTTPFetcher fetches the upstream graph over HTTP from a configured
// graph-builder's GET /v1/graph endpoint.
type HTTPFetcher struct {
	URL    string
	Client *http.Client
}

// NewHTTPFetcher returns an HTTPFetcher with the default per-operation
// request timeout of 30s.
func NewHTTPFetcher(url string) *HTTPFetcher {
	return &HTTPFetcher{URL: url, Client: &http.Client{Timeout: 30 * time.Second}}
}

func (f *HTTPFetcher) FetchGraph(ctx context.Context) (*graph.Graph, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("policy: build upstream request: %w", err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: upstream returned status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var vg graph.VersionedGraph
	if err := json.NewDecoder(resp.Body).Decode(&vg); err != nil {
		return nil, fmt.Errorf("%w: decode upstream graph: %v", ErrUpstreamUnavailable, err)
	}
	return vg.Graph, nil
}

// cachingFetcher wraps a Fetcher with a short-TTL cache keyed by the
// fetcher's URL, so that requests arriving within the TTL after a
// successful fetch reuse its graph. Requests that miss the cache at the
// same time each make their own upstream round trip.
type cachingFetcher struct {
	inner Fetcher
	key   string
	cache *lru.LRU[string, *graph.Graph]
}

func newCachingFetcher(inner Fetcher, key string, ttl time.Duration) *cachingFetcher {
	if ttl <= 0 {
		ttl = DefaultUpstreamTTL
	}
	return &cachingFetcher{
		inner: inner,
		key:   key,
		cache: lru.NewLRU[string, *graph.Graph](1, nil, ttl),
	}
}

func (c *cachingFetcher) FetchGraph(ctx context.Context) (*graph.Graph, error) {
	if g, ok := c.cache.Get(c.key); ok {
		return g, nil
	}
	g, err := c.inner.FetchGraph(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Add(c.key, g)
	return g, nil
}
