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
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// revisionFileName records the last SHA successfully extracted into
// outDir, so a Sync() that finds no new commit is a no-op.
const revisionFileName = ".revision"

// Syncer refreshes outDir from a Source, keyed by the source's
// revision.
type Syncer struct {
	Source Source
	OutDir string
	Logger log.Logger
}

// Sync resolves the source's current revision, compares it against the
// last recorded one, and — on a change — downloads and extracts the
// tarball into a fresh sibling directory before atomically swapping it
// into place. It returns the revision in effect after the call
// completes and whether a new revision was installed.
func (s *Syncer) Sync(ctx context.Context) (revision string, updated bool, err error) {
	logger := s.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	revision, err = s.Source.Revision(ctx)
	if err != nil {
		return "", false, err
	}

	current, _ := readRevision(s.OutDir)
	if current == revision {
		return revision, false, nil
	}

	rc, err := s.Source.Open(ctx, revision)
	if err != nil {
		return "", false, err
	}
	defer rc.Close()

	newDir := s.OutDir + ".new"
	if err := os.RemoveAll(newDir); err != nil {
		return "", false, err
	}
	if err := os.MkdirAll(newDir, 0o755); err != nil {
		return "", false, err
	}
	if err := extractTarball(rc, newDir, s.Source.StripComponents()); err != nil {
		os.RemoveAll(newDir)
		return "", false, err
	}
	if err := writeRevision(newDir, revision); err != nil {
		os.RemoveAll(newDir)
		return "", false, err
	}

	if err := swapDirectories(s.OutDir, newDir); err != nil {
		return "", false, err
	}

	level.Info(logger).Log("msg", "secondary metadata updated", "revision", revision)
	return revision, true, nil
}

// swapDirectories implements the scoped-acquisition replace pattern:
// the new directory is already fully written at newDir; the old one
// (if present) moves aside to oldDir, newDir takes the canonical name,
// then oldDir is removed.
func swapDirectories(outDir, newDir string) error {
	oldDir := outDir + ".old"
	os.RemoveAll(oldDir)

	if _, err := os.Stat(outDir); err == nil {
		if err := os.Rename(outDir, oldDir); err != nil {
			return fmt.Errorf("secondary: move aside previous directory: %w", err)
		}
	}
	if err := os.Rename(newDir, outDir); err != nil {
		return fmt.Errorf("secondary: install new directory: %w", err)
	}
	return os.RemoveAll(oldDir)
}

func readRevision(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, revisionFileName))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func writeRevision(dir, sha string) error {
	return os.WriteFile(filepath.Join(dir, revisionFileName), []byte(sha), 0o644)
}
