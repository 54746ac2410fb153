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
	"errors"
	"io"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
)

// GetBlob fetches the blob identified by digest (e.g. a layer or a
// config blob) and returns its bytes. go-containerregistry's
// remote.Layer verifies the content digest as the bytes stream off
// the wire; a mismatch surfaces here as ErrDigestMismatch rather than
// the transport's own error text, since digest mismatch is a distinct,
// non-retryable failure.
func (c *Client) GetBlob(ctx context.Context, digest string) ([]byte, error) {
	ref, err := name.NewDigest(c.repo.String()+"@"+digest)
	if err != nil {
		return nil, &Error{Kind: KindParseError, Op: "GetBlob", Err: err}
	}

	layer, err := remote.Layer(ref,
		remote.WithContext(ctx),
		remote.WithAuthFromKeychain(c.keychain),
	)
	if err := c.recordOutcome(err); err != nil {
		return nil, err
	}

	rc, err := layer.Compressed()
	if err != nil {
		if isDigestMismatch(err) {
			return nil, &Error{Kind: KindDigestMismatch, Op: "GetBlob", Err: ErrDigestMismatch}
		}
		return nil, c.recordOutcome(err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		if isDigestMismatch(err) {
			return nil, &Error{Kind: KindDigestMismatch, Op: "GetBlob", Err: ErrDigestMismatch}
		}
		return nil, &Error{Kind: KindTransport, Op: "GetBlob", Err: err}
	}
	return data, nil
}

// isDigestMismatch reports whether err originates from
// go-containerregistry's own digest verification, as opposed to a
// transport-level failure. verify.Verification wraps a plain
// fmt.Errorf with no exported sentinel, so this is a best-effort
// substring match on its fixed message text.
func isDigestMismatch(err error) bool {
	if err == nil {
		return false
	}
	var terr *transport.Error
	if errors.As(err, &terr) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unexpected sha256 digest") ||
		strings.Contains(msg, "wrong digest") ||
		strings.Contains(msg, "checksum mismatch")
}
