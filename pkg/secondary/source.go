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
	"io"
)

// Source is where the secondary metadata archive comes from: a GitHub
// branch tip (GitHubSource) or a container image (ImageSource).
type Source interface {
	// Revision identifies the upstream content currently available: a
	// commit SHA for a git-backed source, an image digest for a
	// registry-backed one. Two equal revisions carry equal content.
	Revision(ctx context.Context) (string, error)
	// Open returns a gzipped tarball of the content at revision. The
	// caller closes the returned ReadCloser.
	Open(ctx context.Context, revision string) (io.ReadCloser, error)
	// StripComponents is the number of leading path elements to drop
	// from every tarball entry on extraction.
	StripComponents() int
}
