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

	"github.com/google/go-containerregistry/pkg/v1/remote"
)

// TagResult is one element of a tag-listing sequence.
type TagResult struct {
	Tag string
	Err error
}

// Tags streams the repository's active tags one at a time. The underlying remote.List call resolves
// pagination (via the registry's Link header) internally; this
// function re-exposes the result as a lazy, yield-one-at-a-time
// channel, so that a canceled ctx stops delivery immediately rather
// than requiring the full list to be buffered by the caller.
func (c *Client) Tags(ctx context.Context) <-chan TagResult {
	out := make(chan TagResult)
	go func() {
		defer close(out)

		tags, err := remote.List(c.repo,
			remote.WithContext(ctx),
			remote.WithAuthFromKeychain(c.keychain),
		)
		if err := c.recordOutcome(err); err != nil {
			select {
			case out <- TagResult{Err: err}:
			case <-ctx.Done():
			}
			return
		}
		for _, t := range tags {
			select {
			case out <- TagResult{Tag: t}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
