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

package plugin

import (
	"errors"
	"fmt"
)

// ErrMissingParam is wrapped with the parameter name when a plugin's
// required parameter is absent.
var ErrMissingParam = errors.New("plugin: missing required parameter")

func missingParam(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingParam, name)
}

// ErrUnknownPlugin is returned by New when config names a plugin kind
// outside the closed registry.
var ErrUnknownPlugin = errors.New("plugin: unknown plugin kind")
