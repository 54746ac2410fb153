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

// Command metadata-helper drives pkg/secondary standalone, for
// operators who want to pre-populate (or refresh) the secondary
// metadata directory without running the full builder loop. Unlike
// graph-builder, it performs one sync attempt and exits; it is meant
// to be invoked from a cron job or an init container.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/go-kit/log/level"

	"github.com/GoogleCloudPlatform/update-graph-engine/internal/config"
	"github.com/GoogleCloudPlatform/update-graph-engine/internal/logging"
	"github.com/GoogleCloudPlatform/update-graph-engine/pkg/secondary"
)

func main() {
	settings, verbosity, err := config.Load("metadata-helper", "Syncs the secondary metadata archive into a local directory.", os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.NewLogfmtLogger(verbosity)

	if settings.SecondaryOutputDir == "" {
		level.Error(logger).Log("msg", "secondary.output_dir is required")
		os.Exit(2)
	}

	var src secondary.Source
	switch {
	case settings.SecondaryImage != "":
		src = &secondary.ImageSource{Reference: settings.SecondaryImage}
	case settings.SecondaryGitHubOrg != "" && settings.SecondaryGitHubRepo != "":
		gh := &secondary.GitHubSource{
			Org:    settings.SecondaryGitHubOrg,
			Repo:   settings.SecondaryGitHubRepo,
			Branch: settings.SecondaryGitHubBranch,
		}
		if settings.SecondaryTLSCertsDir != "" {
			tlsCfg, err := secondary.TLSConfig(settings.SecondaryTLSCertsDir)
			if err != nil {
				level.Error(logger).Log("msg", "load secondary TLS trust directory", "err", err)
				os.Exit(1)
			}
			gh.HTTPClient = &http.Client{Transport: &http.Transport{TLSClientConfig: tlsCfg}}
		}
		src = gh
	default:
		level.Error(logger).Log("msg", "either secondary.image or secondary.github.org and secondary.github.repo are required")
		os.Exit(2)
	}

	syncer := &secondary.Syncer{
		Source: src,
		OutDir: settings.SecondaryOutputDir,
		Logger: logger,
	}

	revision, updated, err := syncer.Sync(context.Background())
	if err != nil {
		level.Error(logger).Log("msg", "secondary metadata sync failed", "err", err)
		os.Exit(1)
	}

	if updated {
		level.Info(logger).Log("msg", "secondary metadata refreshed", "revision", revision)
	} else {
		level.Info(logger).Log("msg", "secondary metadata already current", "revision", revision)
	}
}
