// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/consensys/go-axprof/pkg/instgraph"
	"github.com/consensys/go-axprof/pkg/z3log"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// SETTINGS_FILE is the settings file read from the working directory when no
// other is given.
const SETTINGS_FILE = "axprof.yaml"

// Settings holds the tunable parameters of all commands.  Every field is
// optional in the settings file.
//
// Example axprof.yaml:
//
//	timeout: 30s
//	jobs: 4
//	top: 20
//	print_depth: 6
//	edge_limit: 1000
//	node_limit: 250
type Settings struct {
	// Timeout for parsing a single log (zero means none).
	Timeout time.Duration `yaml:"timeout"`
	// Number of logs parsed concurrently.
	Jobs uint `yaml:"jobs"`
	// Number of quantifiers reported by the parse command.
	Top uint `yaml:"top"`
	// Depth beyond which terms are elided when printed.
	PrintDepth uint `yaml:"print_depth"`
	// Limits beyond which rendering requires --force.
	EdgeLimit uint `yaml:"edge_limit"`
	NodeLimit uint `yaml:"node_limit"`
}

// DefaultSettings returns the settings used in the absence of a settings
// file.
func DefaultSettings() Settings {
	return Settings{
		Jobs:       uint(runtime.NumCPU()),
		Top:        10,
		PrintDepth: z3log.DefaultPrintOptions().MaxDepth,
		EdgeLimit:  instgraph.EdgeLimit,
		NodeLimit:  instgraph.DefaultNodeCount,
	}
}

// LoadSettings reads a settings file over the default settings.  When no
// filename is given, SETTINGS_FILE is used if it exists; a missing default
// file is not an error.
func LoadSettings(filename string) (Settings, error) {
	settings := DefaultSettings()
	explicit := filename != ""
	//
	if !explicit {
		filename = SETTINGS_FILE
	}
	//
	data, err := os.ReadFile(filename)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		//
		return settings, fmt.Errorf("reading %s: %w", filename, err)
	}
	//
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parsing %s: %w", filename, err)
	}
	//
	if settings.Jobs == 0 {
		settings.Jobs = 1
	}
	//
	log.Debugf("loaded settings from %s", filename)
	//
	return settings, nil
}

// RenderLimits returns the render gate thresholds of these settings.
func (p Settings) RenderLimits() instgraph.RenderLimits {
	return instgraph.RenderLimits{EdgeLimit: p.EdgeLimit, DefaultNodeCount: p.NodeLimit}
}

// PrintOptions returns the term printing options of these settings.
func (p Settings) PrintOptions(ids bool) z3log.PrintOptions {
	return z3log.PrintOptions{MaxDepth: p.PrintDepth, WithIds: ids}
}
