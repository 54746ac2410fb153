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

package secondary

import (
	"context"
	"fmt"
	"io"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
)

// ImageSource fetches the secondary metadata archive from a container
// image instead of a GitHub branch: the image's top layer is the
// gzipped tarball, laid out with channels/ and blocked-edges/ at the
// archive root.
type ImageSource struct {
	// Reference is the image to pull, e.g.
	// "quay.io/openshift/graph-data:latest".
	Reference string

	// Keychain resolves pull credentials; authn.DefaultKeychain if
	// unset.
	Keychain authn.Keychain
}

func (s *ImageSource) keychain() authn.Keychain {
	if s.Keychain != nil {
		return s.Keychain
	}
	return authn.DefaultKeychain
}

// Revision resolves the reference to its current manifest digest, so
// that a re-pushed tag triggers a fresh extraction while an unchanged
// one is a no-op.
func (s *ImageSource) Revision(ctx context.Context) (string, error) {
	ref, err := name.ParseReference(s.Reference)
	if err != nil {
		return "", fmt.Errorf("secondary: parse image reference: %w", err)
	}
	desc, err := remote.Get(ref,
		remote.WithContext(ctx),
		remote.WithAuthFromKeychain(s.keychain()),
	)
	if err != nil {
		return "", fmt.Errorf("secondary: resolve image digest: %w", err)
	}
	return desc.Digest.String(), nil
}

// Open pulls the image at the given digest and returns its top layer's
// compressed stream.
func (s *ImageSource) Open(ctx context.Context, revision string) (io.ReadCloser, error) {
	ref, err := name.ParseReference(s.Reference)
	if err != nil {
		return nil, fmt.Errorf("secondary: parse image reference: %w", err)
	}
	digestRef, err := name.NewDigest(ref.Context().String() + "@" + revision)
	if err != nil {
		return nil, fmt.Errorf("secondary: build digest reference: %w", err)
	}

	img, err := remote.Image(digestRef,
		remote.WithContext(ctx),
		remote.WithAuthFromKeychain(s.keychain()),
	)
	if err != nil {
		return nil, fmt.Errorf("secondary: pull image: %w", err)
	}
	layers, err := img.Layers()
	if err != nil {
		return nil, fmt.Errorf("secondary: list image layers: %w", err)
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("secondary: image %s has no layers", s.Reference)
	}
	rc, err := layers[len(layers)-1].Compressed()
	if err != nil {
		return nil, fmt.Errorf("secondary: open image layer: %w", err)
	}
	return rc, nil
}

// StripComponents reports that image layers carry the archive layout
// at the root, with nothing to strip.
func (s *ImageSource) StripComponents() int { return 0 }
