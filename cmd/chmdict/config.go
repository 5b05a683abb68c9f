// Copyright 2026 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrConfig indicates an invalid configuration file.
var ErrConfig = fmt.Errorf("%w: invalid config", ErrChmdict)

// Config is the configuration file of the command.
type Config struct {
	// Dictionary is the dictionary source used when --dict is not given.
	Dictionary string `yaml:"dictionary"`

	// WorkDir is the directory containers are extracted to.
	WorkDir string `yaml:"work_dir"`

	// Workers is the number of volumes parsed concurrently. Zero means one
	// per CPU.
	Workers int `yaml:"workers"`

	// CacheWindows is the number of decoded windows kept in memory.
	CacheWindows int `yaml:"cache_windows"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

func defaultConfig() *Config {
	return &Config{
		LogLevel: "warn",
	}
}

// loadConfig reads the config file at path. Unknown keys are an error.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfig, path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfig, path, err)
	}
	return cfg, nil
}

// findConfig returns the first existing config file in the default locations
// or an empty string.
func findConfig() string {
	for _, p := range configLocations() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative: %d", c.Workers)
	}
	if c.CacheWindows < 0 {
		return fmt.Errorf("cache_windows must not be negative: %d", c.CacheWindows)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
