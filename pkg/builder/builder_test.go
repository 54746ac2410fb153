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

package builder

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/registry"
	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/scraper"
)

type fakeManifest struct{ configDigest string }

func (f *fakeManifest) IsSchema1() bool                  { return false }
func (f *fakeManifest) ConfigDigest() (string, error)    { return f.configDigest, nil }
func (f *fakeManifest) V1CompatibilityHistory() []string { return nil }

// fakeClient is a minimal scraper.Client backed by an in-memory tag
// list, used so the builder loop can be exercised without a real
// registry.
type fakeClient struct {
	tags      []string
	manifests map[string]*fakeManifest
	blobs     map[string][]byte
	failNext  bool
}

func (f *fakeClient) Tags(ctx context.Context) <-chan registry.TagResult {
	out := make(chan registry.TagResult, len(f.tags)+1)
	if f.failNext {
		out <- registry.TagResult{Err: fmt.Errorf("registry unavailable")}
		close(out)
		return out
	}
	for _, t := range f.tags {
		out <- registry.TagResult{Tag: t}
	}
	close(out)
	return out
}

func (f *fakeClient) GetManifest(ctx context.Context, ref string) (scraper.ManifestInfo, error) {
	for tag, m := range f.manifests {
		if ref == "repo:"+tag {
			return m, nil
		}
	}
	return nil, &registry.Error{Kind: registry.KindNotFound, Op: "GetManifest"}
}

func (f *fakeClient) GetBlob(ctx context.Context, digest string) ([]byte, error) {
	b, ok := f.blobs[digest]
	if !ok {
		return nil, fmt.Errorf("no such blob %q", digest)
	}
	return b, nil
}

func (f *fakeClient) Labels(ctx context.Context, m scraper.ManifestInfo, prefix string) (map[string]string, error) {
	return nil, nil
}

func blobFor(version string) []byte {
	return []byte(fmt.Sprintf(
		`{"kind":"cincinnati-metadata-v0","version":%q,"previous":[],"next":[],"metadata":{"manifestref":"repo@sha256:abc"}}`,
		version))
}

func TestBuilderPublishesOnSuccess(t *testing.T) {
	client := &fakeClient{
		tags:      []string{"v1"},
		manifests: map[string]*fakeManifest{"v1": {configDigest: "sha256:cfg1"}},
		blobs:     map[string][]byte{"sha256:cfg1": blobFor("4.1.0")},
	}
	s := scraper.New(client, "repo", scraper.Options{})
	b := New(s, nil, nil, Options{Period: time.Hour})

	require.NoError(t, b.build(context.Background()))

	vg, ok := b.Current()
	require.True(t, ok)
	require.Equal(t, 1, vg.Graph.NodeCount())
	require.True(t, b.Ready())
}

func TestBuilderRetainsLastGoodGraphOnFailure(t *testing.T) {
	client := &fakeClient{
		tags:      []string{"v1"},
		manifests: map[string]*fakeManifest{"v1": {configDigest: "sha256:cfg1"}},
		blobs:     map[string][]byte{"sha256:cfg1": blobFor("4.1.0")},
	}
	s := scraper.New(client, "repo", scraper.Options{})
	b := New(s, nil, nil, Options{Period: time.Hour})
	require.NoError(t, b.build(context.Background()))

	client.failNext = true
	err := b.build(context.Background())
	require.Error(t, err)

	vg, ok := b.Current()
	require.True(t, ok)
	require.Equal(t, 1, vg.Graph.NodeCount())
}

func TestBuilderLivenessAndReadiness(t *testing.T) {
	client := &fakeClient{failNext: true}
	s := scraper.New(client, "repo", scraper.Options{})
	b := New(s, nil, nil, Options{Period: time.Hour})

	require.False(t, b.Live())
	require.False(t, b.Ready())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = b.Run(ctx)

	require.True(t, b.Live())
	require.False(t, b.Ready())
}

func TestGraphHandlerServesPublishedGraph(t *testing.T) {
	client := &fakeClient{
		tags:      []string{"v1"},
		manifests: map[string]*fakeManifest{"v1": {configDigest: "sha256:cfg1"}},
		blobs:     map[string][]byte{"sha256:cfg1": blobFor("4.1.0")},
	}
	s := scraper.New(client, "repo", scraper.Options{})
	b := New(s, nil, nil, Options{Period: time.Hour})
	require.NoError(t, b.build(context.Background()))

	rr := httptest.NewRecorder()
	b.GraphHandler()(rr, httptest.NewRequest(http.MethodGet, "/v1/graph", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "4.1.0")
}

func TestLivenessReadinessHandlersBeforeFirstBuild(t *testing.T) {
	client := &fakeClient{failNext: true}
	s := scraper.New(client, "repo", scraper.Options{})
	b := New(s, nil, nil, Options{Period: time.Hour})

	rr := httptest.NewRecorder()
	b.LivenessHandler()(rr, httptest.NewRequest(http.MethodGet, "/liveness", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = httptest.NewRecorder()
	b.ReadinessHandler()(rr, httptest.NewRequest(http.MethodGet, "/readiness", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
