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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ianlewis/go-chmdict/internal/testutil"
)

func writeDictionary(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	vol := testutil.MakeVolume(
		[]testutil.Page{
			{Name: "aal.htm", Title: "Aal", Body: "<p>Der Aal ist ein Fisch.</p>"},
			{Name: "abend.htm", Title: "Abend", Body: "<p>Der Abend kommt.</p>"},
		},
		[]testutil.Headword{
			{Name: "Aal", Aliases: []string{"Aale"}, Local: "aal.htm"},
			{Name: "Abend", Local: "abend.htm"},
		},
		&testutil.VolumeOptions{Title: "Wörterbuch"},
	)
	if err := os.WriteFile(filepath.Join(dir, "merge1.chm"), vol, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfg, []byte("workers: 2\nlog_level: error\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir, cfg
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	app := newChmdictApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"chmdict"}, args...))
	return out.String(), err
}

// TestApp tests the commands.
func TestApp(t *testing.T) {
	t.Parallel()

	dir, cfg := writeDictionary(t)

	testCases := map[string]struct {
		args     []string
		contains []string
	}{
		"volumes": {
			args:     []string{"volumes"},
			contains: []string{"merge1.chm", "0x0409", "windows-1252"},
		},
		"toc": {
			args:     []string{"toc"},
			contains: []string{"Aal (merge1.chm::/aal.htm)", "Abend (merge1.chm::/abend.htm)"},
		},
		"lookup": {
			args:     []string{"lookup", "aa"},
			contains: []string{"Aal", "Aale", "(alias)"},
		},
		"search": {
			args:     []string{"search", "fisch"},
			contains: []string{"Aal", "Fisch"},
		},
		"show id": {
			args:     []string{"show", "2"},
			contains: []string{"Abend [2]", "Source:  merge1.chm::/abend.htm", "Der Abend kommt."},
		},
		"show headword": {
			args:     []string{"show", "AALE"},
			contains: []string{"Aal [1]", "Aliases: Aale"},
		},
		"page": {
			args:     []string{"page", "--html", "aal.htm"},
			contains: []string{"Aal (merge1.chm::/aal.htm)", "<p>Der Aal ist ein Fisch.</p>"},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			args := append([]string{"--dict", dir, "--config", cfg}, tc.args...)
			out, err := run(t, args...)
			if err != nil {
				t.Fatalf("run %v: %v", tc.args, err)
			}
			for _, s := range tc.contains {
				if !strings.Contains(out, s) {
					t.Errorf("run %v: output does not contain %q:\n%s", tc.args, s, out)
				}
			}
		})
	}
}

// TestApp_errors tests command errors.
func TestApp_errors(t *testing.T) {
	t.Parallel()

	dir, cfg := writeDictionary(t)

	if _, err := run(t, "--dict", dir, "--config", cfg, "lookup"); !errors.Is(err, ErrFlagParse) {
		t.Errorf("lookup without prefix: got %v, want %v", err, ErrFlagParse)
	}
	if _, err := run(t, "--dict", filepath.Join(dir, "none"), "--config", cfg, "volumes"); !errors.Is(err, ErrBuild) {
		t.Errorf("missing dictionary: got %v, want %v", err, ErrBuild)
	}
	if _, err := run(t, "--dict", dir, "--config", cfg, "show", "99"); err == nil {
		t.Error("show 99: expected error")
	}
}

// TestLoadConfig tests loadConfig.
func TestLoadConfig(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		data     string
		expected *Config
		err      error
	}{
		"full": {
			data: "dictionary: /data/dict.zip\nwork_dir: /tmp/x\nworkers: 4\ncache_windows: 32\nlog_level: debug\n",
			expected: &Config{
				Dictionary:   "/data/dict.zip",
				WorkDir:      "/tmp/x",
				Workers:      4,
				CacheWindows: 32,
				LogLevel:     "debug",
			},
		},
		"empty": {
			data:     "",
			expected: &Config{LogLevel: "warn"},
		},
		"unknown key": {
			data: "dictonary: /data\n",
			err:  ErrConfig,
		},
		"bad level": {
			data: "log_level: loud\n",
			err:  ErrConfig,
		},
		"negative workers": {
			data: "workers: -1\n",
			err:  ErrConfig,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tc.data), 0o600); err != nil {
				t.Fatal(err)
			}

			got, err := loadConfig(path)
			if !errors.Is(err, tc.err) {
				t.Fatalf("loadConfig: got error %v, want %v", err, tc.err)
			}
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("loadConfig (-want, +got):\n%s", diff)
			}
		})
	}
}
