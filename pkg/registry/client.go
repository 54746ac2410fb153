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
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
)

// AuthState names the state of the client's auth state machine:
// Anonymous → Challenged → Authenticated.
type AuthState int

const (
	StateAnonymous AuthState = iota
	StateChallenged
	StateAuthenticated
)

func (s AuthState) String() string {
	switch s {
	case StateChallenged:
		return "Challenged"
	case StateAuthenticated:
		return "Authenticated"
	default:
		return "Anonymous"
	}
}

// DefaultTimeout is the timeout value a new Client stores. The Client's
// registry calls do not apply it: each call is bounded only by the
// context the caller passes in.
const DefaultTimeout = 30 * time.Second

// Client is a Docker Registry v2 client scoped to a single repository.
// It is safe for concurrent use; a *Client is typically shared across
// every goroutine in one scrape.
type Client struct {
	logger   log.Logger
	repo     name.Repository
	keychain authn.Keychain
	timeout  time.Duration

	mu               sync.Mutex
	state            AuthState
	hadAuthenticated bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client's logger. Defaults to a no-op logger.
func WithLogger(l log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout overrides the stored DefaultTimeout value; as with
// DefaultTimeout, registry calls do not apply it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithKeychain overrides the default anonymous-or-docker-config
// keychain used to resolve credentials.
func WithKeychain(kc authn.Keychain) Option {
	return func(c *Client) { c.keychain = kc }
}

// NewClient returns a Client for repository (e.g. "quay.io/openshift-release-dev/ocp-release").
func NewClient(repository string, opts ...Option) (*Client, error) {
	repo, err := name.NewRepository(repository)
	if err != nil {
		return nil, &Error{Kind: KindParseError, Op: "NewClient", Err: err}
	}
	c := &Client{
		logger:   log.NewNopLogger(),
		repo:     repo,
		keychain: authn.DefaultKeychain,
		timeout:  DefaultTimeout,
		state:    StateAnonymous,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State returns the client's current auth state.
func (c *Client) State() AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// recordOutcome advances the auth state machine based on the result of
// one registry call. A successful authenticated call
// moves to Authenticated; a 401 moves to Challenged and, if a prior
// call had succeeded, is reported to the caller as AuthLost so it can
// decide to reset cached assumptions.
func (c *Client) recordOutcome(err error) error {
	c.mu.Lock()
	wasAuthenticated := c.hadAuthenticated
	c.mu.Unlock()

	classified := classify("registry", err, wasAuthenticated)

	c.mu.Lock()
	defer c.mu.Unlock()
	if classified == nil {
		c.state = StateAuthenticated
		c.hadAuthenticated = true
		return nil
	}
	if rerr, ok := classified.(*Error); ok && rerr.Kind == KindAuthLost {
		c.state = StateAnonymous
		c.hadAuthenticated = false
	} else {
		c.state = StateChallenged
	}
	return classified
}
