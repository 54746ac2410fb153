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
	"strings"
)

// imageConfig is the subset of the OCI image config JSON the labels
// reader needs.
type imageConfig struct {
	Config struct {
		Labels map[string]string `json:"Labels"`
	} `json:"config"`
}

// Labels returns the manifest's image config labels whose key carries
// prefix, with prefix stripped from the
// returned keys. Schema-1 manifests carry no structured config blob
// and always return an empty map.
func (c *Client) Labels(ctx context.Context, m *Manifest, prefix string) (map[string]string, error) {
	out := map[string]string{}
	if m.IsSchema1() {
		return out, nil
	}

	digest, err := m.ConfigDigest()
	if err != nil {
		return nil, &Error{Kind: KindParseError, Op: "Labels", Err: err}
	}

	raw, err := c.GetBlob(ctx, digest)
	if err != nil {
		return nil, err
	}

	var cfg imageConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, &Error{Kind: KindParseError, Op: "Labels", Err: err}
	}

	for k, v := range cfg.Config.Labels {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		out[strings.TrimPrefix(k, prefix)] = v
	}
	return out, nil
}
