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

package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/types"
)

// Manifest is a fetched, schema-normalized registry manifest.
type Manifest struct {
	Ref        name.Reference
	Descriptor *remote.Descriptor
	image      v1.Image // nil for schema-1 manifests, which go-containerregistry does not model as v1.Image.
	schema1    *schema1Manifest
}

// GetManifest fetches the manifest for tag or digest ref. A 404 is classified NotFound; 5xx is
// Transient.
func (c *Client) GetManifest(ctx context.Context, ref string) (*Manifest, error) {
	parsed, err := name.ParseReference(ref, name.WithDefaultRegistry(c.repo.RegistryStr()))
	if err != nil {
		return nil, &Error{Kind: KindParseError, Op: "GetManifest", Err: err}
	}

	desc, err := remote.Get(parsed,
		remote.WithContext(ctx),
		remote.WithAuthFromKeychain(c.keychain),
	)
	if err := c.recordOutcome(err); err != nil {
		return nil, err
	}

	m := &Manifest{Ref: parsed, Descriptor: desc}
	switch desc.MediaType {
	case types.DockerManifestSchema1, types.DockerManifestSchema1Signed:
		s1, perr := parseSchema1(desc.Manifest)
		if perr != nil {
			return nil, &Error{Kind: KindParseError, Op: "GetManifest", Err: perr}
		}
		m.schema1 = s1
	default:
		img, ierr := desc.Image()
		if ierr != nil {
			return nil, &Error{Kind: KindParseError, Op: "GetManifest", Err: ierr}
		}
		m.image = img
	}
	return m, nil
}

// IsSchema1 reports whether the fetched manifest used the legacy
// schema-1 format.
func (m *Manifest) IsSchema1() bool { return m.schema1 != nil }

// ConfigDigest returns the digest of the manifest's config blob
// (schema-2/OCI), used by the scraper to fetch release metadata.
func (m *Manifest) ConfigDigest() (string, error) {
	if m.image == nil {
		return "", fmt.Errorf("registry: manifest has no config digest (schema-1)")
	}
	cfgName, err := m.image.ConfigName()
	if err != nil {
		return "", err
	}
	return cfgName.String(), nil
}

// LayerDigests returns the manifest's layer digests in base-first
// order, regardless of schema version.
func (m *Manifest) LayerDigests() ([]string, error) {
	if m.schema1 != nil {
		return m.schema1.layerDigestsBaseFirst(), nil
	}
	layers, err := m.image.Layers()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(layers))
	for i, l := range layers {
		d, err := l.Digest()
		if err != nil {
			return nil, err
		}
		out[i] = d.String()
	}
	return out, nil
}

// schema1Manifest is the minimal subset of a Docker schema-1 manifest
// needed by the scraper: the fsLayers and v1Compatibility history
// entries, both newest first as the registry serializes them.
// layerDigestsBaseFirst reverses the layer list to base-first order to
// match schema-2's layer ordering; the history stays newest first.
// go-containerregistry's
// remote package does not decode schema-1 history, so this is a small
// hand-rolled parser.
type schema1Manifest struct {
	FSLayers []struct {
		BlobSum string `json:"blobSum"`
	} `json:"fsLayers"`
	History []struct {
		V1Compatibility string `json:"v1Compatibility"`
	} `json:"history"`
}

func parseSchema1(raw []byte) (*schema1Manifest, error) {
	var s schema1Manifest
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("registry: parse schema-1 manifest: %w", err)
	}
	return &s, nil
}

func (s *schema1Manifest) layerDigestsBaseFirst() []string {
	out := make([]string, len(s.FSLayers))
	for i, l := range s.FSLayers {
		// fsLayers is ordered newest-first; reverse to base-first.
		out[len(out)-1-i] = l.BlobSum
	}
	return out
}

// V1CompatibilityHistory returns the raw v1Compatibility JSON blobs,
// newest first, as stored by the registry. The release scraper's
// schema-1 fallback parses release metadata out of the newest entry.
func (m *Manifest) V1CompatibilityHistory() []string {
	if m.schema1 == nil {
		return nil
	}
	out := make([]string, len(m.schema1.History))
	for i, h := range m.schema1.History {
		out[i] = h.V1Compatibility
	}
	return out
}
