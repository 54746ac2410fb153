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

package policy

import "errors"

// Error kinds map directly onto the HTTP status codes the policy
// engine returns to clients.
var (
	// ErrMissingParam is returned when a request omits a configured
	// mandatory client parameter.
	ErrMissingParam = errors.New("policy: missing mandatory client parameter")
	// ErrDoesNotExist is returned when a request names a channel the
	// upstream graph has no releases for.
	ErrDoesNotExist = errors.New("policy: requested channel does not exist")
	// ErrUpstreamUnavailable is returned when the configured
	// graph-builder could not be reached or returned a non-OK status.
	ErrUpstreamUnavailable = errors.New("policy: upstream graph-builder unavailable")
)
