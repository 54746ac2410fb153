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

import "errors"

// errNoMetadata is returned when a schema-1 manifest carries no
// v1-compat history to parse release metadata out of.
var errNoMetadata = errors.New("scraper: no v1-compat history on manifest")

// errUnsupportedManifest is returned by registryAdapter.Labels if it
// is ever handed a ManifestInfo that did not originate from
// *registry.Client.GetManifest (should not happen outside tests that
// bypass WrapClient).
var errUnsupportedManifest = errors.New("scraper: manifest not from registry client")
