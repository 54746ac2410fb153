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

package scraper

import (
	"context"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/go-version"
	"golang.org/x/sync/errgroup"

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/graph"
	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/registry"
)

// DefaultConcurrency is the default worker-pool size.
const DefaultConcurrency = 16

// Release is one tag's worth of scraped release data, carrying the
// explicit adjacency the assembler needs in addition to what
// graph.Release stores.
type Release struct {
	Version  *version.Version
	Payload  string
	Previous []string
	Next     []string
	Metadata graph.Metadata
}

// ManifestInfo is the subset of *registry.Manifest the scraper reads.
// Declaring it here (rather than depending on the concrete type)
// keeps this package's tests free of go-containerregistry's image
// types.
type ManifestInfo interface {
	IsSchema1() bool
	ConfigDigest() (string, error)
	V1CompatibilityHistory() []string
}

// Client is the subset of *registry.Client the scraper depends on,
// narrowed for testability. Production callers wrap a *registry.Client
// in a tiny adapter so its GetManifest/Labels methods return
// ManifestInfo instead of *registry.Manifest.
type Client interface {
	Tags(ctx context.Context) <-chan registry.TagResult
	GetManifest(ctx context.Context, ref string) (ManifestInfo, error)
	GetBlob(ctx context.Context, digest string) ([]byte, error)
	Labels(ctx context.Context, m ManifestInfo, prefix string) (map[string]string, error)
}

// Options configures a Scraper.
type Options struct {
	Concurrency  int
	LabelPrefix  string
	EnrichLabels bool
	Logger       log.Logger
}

// Scraper turns a repository's tags into Releases.
type Scraper struct {
	client Client
	repo   string
	opts   Options
}

// New returns a Scraper over client, scoped to repo (used only for
// building tag pull references passed back to the client).
func New(client Client, repo string, opts Options) *Scraper {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.LabelPrefix == "" {
		opts.LabelPrefix = graph.MetadataNamespace + "."
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	return &Scraper{client: client, repo: repo, opts: opts}
}

// Scrape streams active tags, fetches and parses each one's release
// metadata with bounded concurrency, and returns every tag that
// produced valid metadata. Output ordering is not guaranteed.
func (s *Scraper) Scrape(ctx context.Context) ([]Release, error) {
	cache, err := lru.New[string, []byte](4096)
	if err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		out []Release
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	var listErr error
	for tr := range s.client.Tags(ctx) {
		tr := tr
		if tr.Err != nil {
			// A listing error aborts the whole scrape: without tags
			// there is nothing partial to salvage.
			listErr = tr.Err
			break
		}
		g.Go(func() error {
			rel, ok, err := s.scrapeTag(gctx, tr.Tag, cache)
			if err != nil {
				level.Warn(s.opts.Logger).Log("msg", "dropping tag", "tag", tr.Tag, "err", err)
				return nil
			}
			if !ok {
				return nil
			}
			mu.Lock()
			out = append(out, rel)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if listErr != nil {
		return nil, listErr
	}
	return out, nil
}

// scrapeTag turns one tag into a Release. ok is false
// when the tag was validly skipped (not an error worth logging at
// warn level higher up); err carries the reason when it should be.
func (s *Scraper) scrapeTag(ctx context.Context, tag string, cache *lru.Cache[string, []byte]) (Release, bool, error) {
	manifest, err := s.client.GetManifest(ctx, s.repo+":"+tag)
	if err != nil {
		if rerr, ok := err.(*registry.Error); ok && rerr.Kind == registry.KindNotFound {
			return Release{}, false, nil
		}
		return Release{}, false, err
	}

	raw, err := s.fetchMetadataBlob(ctx, manifest, cache)
	if err != nil {
		return Release{}, false, err
	}

	parsed, err := parseReleaseMetadata(raw)
	if err != nil {
		return Release{}, false, err
	}

	v, err := version.NewVersion(parsed.Version)
	if err != nil {
		return Release{}, false, err
	}

	md := graph.NewMetadata()
	for k, val := range parsed.Metadata {
		md.Set(k, val)
	}

	if s.opts.EnrichLabels {
		labels, err := s.client.Labels(ctx, manifest, s.opts.LabelPrefix)
		if err != nil {
			return Release{}, false, err
		}
		for k, val := range labels {
			md.Set(k, val)
		}
	}

	if _, ok := md.Get(graph.KeyManifestRef); !ok {
		return Release{}, false, nil
	}

	return Release{
		Version:  v,
		Payload:  s.repo + ":" + tag,
		Previous: parsed.Previous,
		Next:     parsed.Next,
		Metadata: md,
	}, true, nil
}

// fetchMetadataBlob locates the release-metadata blob for manifest
// (config digest for schema-2, v1-compat history for schema-1) and
// fetches it through the per-scrape content-addressed cache.
func (s *Scraper) fetchMetadataBlob(ctx context.Context, manifest ManifestInfo, cache *lru.Cache[string, []byte]) ([]byte, error) {
	if manifest.IsSchema1() {
		history := manifest.V1CompatibilityHistory()
		if len(history) == 0 {
			return nil, errNoMetadata
		}
		return []byte(history[0]), nil
	}

	digest, err := manifest.ConfigDigest()
	if err != nil {
		return nil, err
	}
	if cached, ok := cache.Get(digest); ok {
		return cached, nil
	}
	blob, err := s.client.GetBlob(ctx, digest)
	if err != nil {
		return nil, err
	}
	cache.Add(digest, blob)
	return blob, nil
}
