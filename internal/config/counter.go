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

package config

import (
	"strconv"
	"strings"
)

// counterValue implements kingpin.Value for a repeatable boolean flag
// such as -v. kingpin calls Set once per occurrence of the flag on the
// command line, so a plain counter captures repetition without a
// dedicated Counter type.
type counterValue int

func newCounterValue(v *int) *counterValue { return (*counterValue)(v) }

func (c *counterValue) Set(string) error {
	if int(*c) < 3 {
		*c++
	}
	return nil
}

func (c *counterValue) String() string { return strconv.Itoa(int(*c)) }

// IsBoolFlag marks this as a flag that does not consume a following
// argument, so "-vvv" and "-v -v -v" both increment three times.
func (c *counterValue) IsBoolFlag() bool { return true }

// IsCumulative marks the flag as repeatable on one command line.
func (c *counterValue) IsCumulative() bool { return true }

// csvValue implements kingpin.Value for a comma-separated list bound
// directly to a []string field.
type csvValue struct {
	target *[]string
}

func newCSVValue(target *[]string) *csvValue { return &csvValue{target: target} }

func (v *csvValue) Set(s string) error {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	*v.target = out
	return nil
}

func (v *csvValue) String() string {
	if v.target == nil {
		return ""
	}
	return strings.Join(*v.target, ",")
}
