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

package graph

import "strings"

// Well-known metadata key namespace used by release-metadata blobs and
// by the plugin pipeline. Mirrors the real-world OpenShift update-graph
// convention (io.openshift.upgrades.graph.*).
const (
	MetadataNamespace = "io.openshift.upgrades.graph"

	KeyChannels            = MetadataNamespace + ".release.channels"
	KeyReleaseRemove       = MetadataNamespace + ".release.remove"
	KeyPreviousAdd         = MetadataNamespace + ".previous.add"
	KeyPreviousRemove      = MetadataNamespace + ".previous.remove"
	KeyPreviousRemoveRegex = MetadataNamespace + ".previous.remove_regex"
	KeyManifestRef         = "manifestref"
	KeyArch                = MetadataNamespace + ".arch"
)

// DefaultArch is assumed for a release carrying no explicit arch metadata.
const DefaultArch = "amd64"

// Metadata is an order-preserving string-to-string map. Release metadata
// must serialize deterministically, which a plain
// Go map cannot guarantee, so we keep insertion order alongside the
// lookup table.
type Metadata struct {
	keys   []string
	values map[string]string
}

// NewMetadata returns an empty ordered metadata map.
func NewMetadata() Metadata {
	return Metadata{values: make(map[string]string)}
}

// Set inserts or overwrites key. Insertion order is preserved for new keys;
// overwriting an existing key does not change its position.
func (m *Metadata) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether it was present.
func (m Metadata) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Delete removes key, if present.
func (m *Metadata) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the metadata keys in insertion order.
func (m Metadata) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len reports the number of metadata entries.
func (m Metadata) Len() int { return len(m.keys) }

// Clone returns a deep copy, safe to mutate independently of m.
func (m Metadata) Clone() Metadata {
	out := Metadata{
		keys:   append([]string(nil), m.keys...),
		values: make(map[string]string, len(m.values)),
	}
	for k, v := range m.values {
		out.values[k] = v
	}
	return out
}

// Equal reports whether m and other contain the same key/value pairs,
// irrespective of insertion order.
func (m Metadata) Equal(other Metadata) bool {
	if len(m.values) != len(other.values) {
		return false
	}
	for k, v := range m.values {
		if ov, ok := other.values[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Channels returns the release's channel-membership set, parsed from the
// comma-joined KeyChannels metadata value, with duplicates removed.
func (m Metadata) Channels() []string {
	raw, ok := m.Get(KeyChannels)
	if !ok || raw == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, c := range strings.Split(raw, ",") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// HasChannel reports whether channel is present in the release's
// channel-membership set.
func (m Metadata) HasChannel(channel string) bool {
	for _, c := range m.Channels() {
		if c == channel {
			return true
		}
	}
	return false
}

// Arch returns the release's architecture metadata, defaulting to
// DefaultArch when absent.
func (m Metadata) Arch() string {
	if v, ok := m.Get(KeyArch); ok && v != "" {
		return v
	}
	return DefaultArch
}

// CommaList splits a comma-separated metadata value into trimmed,
// non-empty elements.
func CommaList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
