// Copyright 2025 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"sigs.k8s.io/release-utils/version"

	chmdict "github.com/ianlewis/go-chmdict"
)

const (
	// ExitCodeSuccess is successful error code.
	ExitCodeSuccess int = iota

	// ExitCodeFlagParseError is the exit code for a flag parsing error.
	ExitCodeFlagParseError

	// ExitCodeUnknownError is the exit code for an unknown error.
	ExitCodeUnknownError
)

// ErrChmdict is a parent error for all command errors.
var ErrChmdict = errors.New("chmdict")

// ErrFlagParse is a flag parsing error.
var ErrFlagParse = fmt.Errorf("%w: parsing flags", ErrChmdict)

// ErrNoDictionary indicates that no dictionary source was found.
var ErrNoDictionary = fmt.Errorf("%w: no dictionary", ErrChmdict)

// ErrBuild indicates that the dictionary could not be loaded.
var ErrBuild = fmt.Errorf("%w: loading dictionary", ErrChmdict)

var copyrightNames = []string{
	"2021 Google LLC",
	"2024 Ian Lewis",
}

//nolint:gochecknoinits // init needed needed for global variable.
func init() {
	// Set the HelpFlag to a random name so that it isn't used. `cli` handles
	// the flag with the root command such that it takes a command name argument
	// which prints a "command foo not found" error instead of the help.
	//
	// This flag is hidden by the help output.
	// See: github.com/urfave/cli/issues/1809
	cli.HelpFlag = &cli.BoolFlag{
		// NOTE: Use a random name no one would guess.
		Name:               "d41d8cd98f00b204e980",
		DisableDefaultText: true,
	}
}

// check checks the error and panics if not nil.
func check(err error) {
	if err != nil {
		panic(err)
	}
}

func printVersion(c *cli.Context) error {
	versionInfo := version.GetVersionInfo()
	_, err := fmt.Fprintf(c.App.Writer, "%s %s\n", c.App.Name, versionInfo.GitVersion)
	if err != nil {
		return fmt.Errorf("%w: printing version: %w", ErrChmdict, err)
	}
	_, err = fmt.Fprintln(c.App.Writer, strings.Join(copyrightNames, "\n"))
	if err != nil {
		return fmt.Errorf("%w: printing version: %w", ErrChmdict, err)
	}
	return nil
}

// config returns the configuration given by the --config flag or found in
// the default locations.
func config(c *cli.Context) (*Config, error) {
	path := c.String("config")
	if path == "" {
		path = findConfig()
	}
	if path == "" {
		return defaultConfig(), nil
	}
	return loadConfig(path)
}

// dictSource returns the dictionary source given by the --dict flag, the
// config file or the first existing default location.
func dictSource(c *cli.Context, cfg *Config) (string, error) {
	if p := c.String("dict"); p != "" {
		return p, nil
	}
	if cfg.Dictionary != "" {
		return cfg.Dictionary, nil
	}
	for _, p := range dictLocations() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: use --dict or set dictionary in the config file", ErrNoDictionary)
}

// loadDictionary prepares and builds the dictionary. Build warnings are
// logged.
func loadDictionary(c *cli.Context) (*chmdict.Service, error) {
	cfg, err := config(c)
	if err != nil {
		return nil, err
	}
	level, err := cfg.level()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))

	path, err := dictSource(c, cfg)
	if err != nil {
		return nil, err
	}

	s := chmdict.New(&chmdict.Options{
		WorkDir:       cfg.WorkDir,
		Workers:       cfg.Workers,
		CacheCapacity: cfg.CacheWindows,
		Logger:        logger,
	})
	dir, err := s.PrepareSource(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}
	status := s.StartBuild(dir).Wait()
	if !status.Success {
		return nil, fmt.Errorf("%w: %s", ErrBuild, status.Error)
	}
	return s, nil
}

func newChmdictApp() *cli.App {
	return &cli.App{
		Name:  filepath.Base(os.Args[0]),
		Usage: "Search CHM dictionaries.",
		Description: strings.Join([]string{
			"Multi-volume CHM dictionary utility written in Go.",
			"http://github.com/ianlewis/go-chmdict",
		}, "\n"),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dict",
				Usage:   "read the dictionary in `PATH`, a directory, volume or archive",
				Aliases: []string{"d"},
				EnvVars: []string{"CHMDICT"},
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "read configuration from `FILE`",
				Aliases: []string{"c"},
			},
			&cli.BoolFlag{
				Name:               "verbose",
				Usage:              "log build progress",
				DisableDefaultText: true,
			},

			// Special flags are shown at the end.
			&cli.BoolFlag{
				Name:               "help",
				Usage:              "print this help text and exit",
				Aliases:            []string{"h"},
				DisableDefaultText: true,
			},
			&cli.BoolFlag{
				Name:               "version",
				Usage:              "print version information and exit",
				Aliases:            []string{"V"},
				DisableDefaultText: true,
			},
		},
		Copyright:       strings.Join(copyrightNames, "\n"),
		HideHelp:        true,
		HideHelpCommand: true,
		Action: func(c *cli.Context) error {
			if c.Bool("version") {
				return printVersion(c)
			}

			check(cli.ShowAppHelp(c))
			return nil
		},
		Commands: []*cli.Command{
			volumesCommand,
			tocCommand,
			lookupCommand,
			searchCommand,
			showCommand,
			pageCommand,
		},
	}
}
