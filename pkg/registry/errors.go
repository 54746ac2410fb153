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

// Package registry implements a Docker Registry v2 client: capability
// probe, bearer-token auth, paginated tag listing, manifest fetch with
// media-type negotiation, blob fetch with digest verification, and
// label fetch. It is a thin, classifying wrapper around
// github.com/google/go-containerregistry, which does the heavy lifting
// of the HTTP transport, the WWW-Authenticate challenge/response dance,
// and blob digest verification.
package registry

import (
	"errors"
	"fmt"

	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
)

// Kind classifies a registry-client failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindAuthLost
	KindDigestMismatch
	KindNotFound
	KindTransient
	KindParseError
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "Transport"
	case KindAuthLost:
		return "AuthLost"
	case KindDigestMismatch:
		return "DigestMismatch"
	case KindNotFound:
		return "NotFound"
	case KindTransient:
		return "Transient"
	case KindParseError:
		return "ParseError"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying error with its classification.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("registry: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrDigestMismatch is returned (wrapped in an *Error) when the bytes
// received for a blob do not hash to the digest the manifest declared.
var ErrDigestMismatch = errors.New("registry: digest mismatch")

// classify maps an error returned by go-containerregistry's remote
// package onto the registry-client error kinds. previouslyAuthenticated
// distinguishes the first-ever 401 (an expected Challenged transition)
// from a later 401 that really did invalidate a cached token, which is
// surfaced as KindAuthLost only when it follows a success.
func classify(op string, err error, previouslyAuthenticated bool) error {
	if err == nil {
		return nil
	}
	var terr *transport.Error
	if errors.As(err, &terr) {
		switch {
		case terr.StatusCode == 404:
			return &Error{Kind: KindNotFound, Op: op, Err: err}
		case terr.StatusCode == 401:
			if previouslyAuthenticated {
				return &Error{Kind: KindAuthLost, Op: op, Err: err}
			}
			return &Error{Kind: KindTransport, Op: op, Err: err}
		case terr.StatusCode >= 500:
			return &Error{Kind: KindTransient, Op: op, Err: err}
		}
	}
	return &Error{Kind: KindTransport, Op: op, Err: err}
}
