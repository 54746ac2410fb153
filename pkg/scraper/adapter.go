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

	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/registry"
)

// registryAdapter narrows a *registry.Client's manifest-returning
// methods down to the ManifestInfo interface, so callers can pass the
// concrete client wherever a Client is expected.
type registryAdapter struct {
	*registry.Client
}

// WrapClient adapts c to the Client interface this package depends
// on.
func WrapClient(c *registry.Client) Client {
	return registryAdapter{c}
}

func (r registryAdapter) GetManifest(ctx context.Context, ref string) (ManifestInfo, error) {
	return r.Client.GetManifest(ctx, ref)
}

func (r registryAdapter) Labels(ctx context.Context, m ManifestInfo, prefix string) (map[string]string, error) {
	rm, ok := m.(*registry.Manifest)
	if !ok {
		return nil, errUnsupportedManifest
	}
	return r.Client.Labels(ctx, rm, prefix)
}
