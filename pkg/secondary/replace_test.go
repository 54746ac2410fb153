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

package secondary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func githubTestServer(t *testing.T, sha string, tarball []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/org/repo/commits/main", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sha":"` + sha + `"}`))
	})
	mux.HandleFunc("/repos/org/repo/tarball/"+sha, func(w http.ResponseWriter, r *http.Request) {
		w.Write(tarball)
	})
	return httptest.NewServer(mux)
}

func TestSyncerInstallsNewRevision(t *testing.T) {
	tarball := buildTarball(t, map[string]string{
		"org-repo-abc/channels/stable.yaml": "versions: [4.1.0]\n",
	})
	srv := githubTestServer(t, "abc123", tarball)
	t.Cleanup(srv.Close)

	src := &GitHubSource{Org: "org", Repo: "repo", Branch: "main", APIBase: srv.URL}

	base := t.TempDir()
	outDir := filepath.Join(base, "data")

	s := &Syncer{Source: src, OutDir: outDir}
	sha, updated, err := s.Sync(context.Background())
	require.NoError(t, err)
	require.True(t, updated)
	require.Equal(t, "abc123", sha)

	content, err := os.ReadFile(filepath.Join(outDir, "channels", "stable.yaml"))
	require.NoError(t, err)
	require.Equal(t, "versions: [4.1.0]\n", string(content))
}

func TestSyncerSkipsWhenRevisionUnchanged(t *testing.T) {
	tarball := buildTarball(t, map[string]string{
		"org-repo-abc/channels/stable.yaml": "versions: [4.1.0]\n",
	})
	srv := githubTestServer(t, "abc123", tarball)
	t.Cleanup(srv.Close)

	src := &GitHubSource{Org: "org", Repo: "repo", Branch: "main", APIBase: srv.URL}
	base := t.TempDir()
	outDir := filepath.Join(base, "data")
	s := &Syncer{Source: src, OutDir: outDir}

	_, updated, err := s.Sync(context.Background())
	require.NoError(t, err)
	require.True(t, updated)

	_, updated, err = s.Sync(context.Background())
	require.NoError(t, err)
	require.False(t, updated)
}

func TestSwapDirectoriesReplacesExistingOutput(t *testing.T) {
	base := t.TempDir()
	outDir := filepath.Join(base, "out")
	newDir := filepath.Join(base, "out.new")

	require.NoError(t, os.MkdirAll(outDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "old.txt"), []byte("old"), 0o644))
	require.NoError(t, os.MkdirAll(newDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(newDir, "new.txt"), []byte("new"), 0o644))

	require.NoError(t, swapDirectories(outDir, newDir))

	_, err := os.Stat(filepath.Join(outDir, "old.txt"))
	require.True(t, os.IsNotExist(err))
	content, err := os.ReadFile(filepath.Join(outDir, "new.txt"))
	require.NoError(t, err)
	require.Equal(t, "new", string(content))

	_, err = os.Stat(outDir + ".old")
	require.True(t, os.IsNotExist(err))
}
