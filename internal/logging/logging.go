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

// Package logging builds the go-kit logger all three binaries share:
// a base logger wrapped with a timestamp and caller, filtered to a
// level derived from a repeatable -v flag.
package logging

import (
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// LevelForVerbosity maps a repeatable -v count (0-3) onto a go-kit
// level.Option. 0 is warn-and-above (the quiet default), 3 is maximum
// detail.
func LevelForVerbosity(v int) level.Option {
	switch {
	case v <= 0:
		return level.AllowWarn()
	case v == 1:
		return level.AllowInfo()
	default:
		return level.AllowDebug()
	}
}

// NewLogfmtLogger builds a leveled logfmt logger writing to stderr.
func NewLogfmtLogger(verbosity int) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	return finish(logger, verbosity)
}

// NewJSONLogger builds a leveled JSON logger writing to stderr. The
// policy engine uses this one, since it is the request-serving
// frontend whose logs are more likely to feed a log pipeline.
func NewJSONLogger(verbosity int) log.Logger {
	logger := log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
	return finish(logger, verbosity)
}

func finish(logger log.Logger, verbosity int) log.Logger {
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	return level.NewFilter(logger, LevelForVerbosity(verbosity))
}
