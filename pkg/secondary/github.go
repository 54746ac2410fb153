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

// Package secondary fetches the channel-membership and risk archive
// that supplements release metadata scraped from the registry: resolve
// the source's current revision (a branch tip's commit SHA, or an
// image digest), download the tarball at that revision, and atomically
// replace a local directory with its contents.
package secondary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const githubAPIBase = "https://api.github.com"

// commit is the subset of a GitHub API v3 commit object this package
// reads.
type commit struct {
	SHA string `json:"sha"`
}

// GitHubSource fetches an archive from a GitHub repository branch.
type GitHubSource struct {
	Org    string
	Repo   string
	Branch string

	// APIBase overrides githubAPIBase; used by tests to point at a
	// local httptest.Server.
	APIBase    string
	HTTPClient *http.Client
}

func (s *GitHubSource) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return http.DefaultClient
}

func (s *GitHubSource) apiBase() string {
	if s.APIBase != "" {
		return s.APIBase
	}
	return githubAPIBase
}

// Revision resolves the branch's current tip to a commit SHA via
// GET /repos/{owner}/{repo}/commits/{branch}.
func (s *GitHubSource) Revision(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/commits/%s", s.apiBase(), s.Org, s.Repo, s.Branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("secondary: resolve branch sha: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("secondary: resolve branch sha: unexpected status %d", resp.StatusCode)
	}

	var c commit
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		return "", fmt.Errorf("secondary: decode commit: %w", err)
	}
	if c.SHA == "" {
		return "", fmt.Errorf("secondary: commit response had no sha")
	}
	return c.SHA, nil
}

// Open issues GET /repos/{owner}/{repo}/tarball/{sha} and returns the
// response body for the caller to stream through extractTarball.
func (s *GitHubSource) Open(ctx context.Context, sha string) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/tarball/%s", s.apiBase(), s.Org, s.Repo, sha)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("secondary: open tarball: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("secondary: open tarball: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// StripComponents reports that GitHub's codeload tarballs wrap
// everything in a single "{org}-{repo}-{sha}/" directory to be
// stripped on extraction.
func (s *GitHubSource) StripComponents() int { return 1 }
