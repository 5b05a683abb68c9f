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
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	chmdict "github.com/ianlewis/go-chmdict"
)

const defaultLimit = 20

var limitFlag = &cli.IntFlag{
	Name:    "limit",
	Usage:   "print at most `N` results",
	Aliases: []string{"n"},
	Value:   defaultLimit,
}

var htmlFlag = &cli.BoolFlag{
	Name:               "html",
	Usage:              "print the page markup instead of its text",
	DisableDefaultText: true,
}

func oneArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("%w: expected 1 argument, got %d", ErrFlagParse, c.NArg())
	}
	return c.Args().First(), nil
}

var volumesCommand = &cli.Command{
	Name:  "volumes",
	Usage: "list the volumes of the dictionary",
	Action: func(c *cli.Context) error {
		s, err := loadDictionary(c)
		if err != nil {
			return err
		}
		volumes, err := s.Volumes()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrChmdict, err)
		}

		tbl := table.New("Name", "Title", "Language", "Encoding").WithWriter(c.App.Writer)
		for _, v := range volumes {
			tbl.AddRow(v.Name, v.Title, fmt.Sprintf("0x%04x", v.LanguageID), v.Encoding)
		}
		tbl.Print()
		return nil
	},
}

var tocCommand = &cli.Command{
	Name:  "toc",
	Usage: "print the table of contents",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "depth",
			Usage: "print `N` levels, all if zero",
		},
	},
	Action: func(c *cli.Context) error {
		s, err := loadDictionary(c)
		if err != nil {
			return err
		}
		nodes, err := s.Contents()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrChmdict, err)
		}
		printContents(c.App.Writer, nodes, 0, c.Int("depth"))
		return nil
	},
}

func printContents(w io.Writer, nodes []*chmdict.ContentNode, depth, maxDepth int) {
	if maxDepth > 0 && depth >= maxDepth {
		return
	}
	for _, n := range nodes {
		fmt.Fprintf(w, "%s%s", strings.Repeat("  ", depth), n.Title)
		if n.Path != "" {
			fmt.Fprintf(w, " (%s::%s)", n.Volume, n.Path)
		}
		fmt.Fprintln(w)
		printContents(w, n.Children, depth+1, maxDepth)
	}
}

var lookupCommand = &cli.Command{
	Name:      "lookup",
	Usage:     "list headwords starting with a prefix",
	ArgsUsage: "PREFIX",
	Flags:     []cli.Flag{limitFlag},
	Action: func(c *cli.Context) error {
		prefix, err := oneArg(c)
		if err != nil {
			return err
		}
		s, err := loadDictionary(c)
		if err != nil {
			return err
		}
		entries, err := s.IndexEntries(prefix, c.Int("limit"))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrChmdict, err)
		}

		tbl := table.New("ID", "Headword", "").WithWriter(c.App.Writer)
		for _, e := range entries {
			note := ""
			if e.Alias {
				note = "(alias)"
			}
			tbl.AddRow(e.ID, e.Headword, note)
		}
		tbl.Print()
		return nil
	},
}

var searchCommand = &cli.Command{
	Name:      "search",
	Usage:     "search headwords and page text",
	ArgsUsage: "QUERY",
	Flags:     []cli.Flag{limitFlag},
	Action: func(c *cli.Context) error {
		query, err := oneArg(c)
		if err != nil {
			return err
		}
		s, err := loadDictionary(c)
		if err != nil {
			return err
		}
		hits, err := s.Search(query, c.Int("limit"))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrChmdict, err)
		}

		tbl := table.New("ID", "Score", "Headword", "Snippet").WithWriter(c.App.Writer)
		for _, h := range hits {
			tbl.AddRow(h.ID, fmt.Sprintf("%.2f", h.Score), h.Headword, strings.Join(strings.Fields(h.Snippet), " "))
		}
		tbl.Print()
		return nil
	},
}

var showCommand = &cli.Command{
	Name:      "show",
	Usage:     "print an entry by id or headword",
	ArgsUsage: "ID|HEADWORD",
	Flags:     []cli.Flag{htmlFlag},
	Action: func(c *cli.Context) error {
		arg, err := oneArg(c)
		if err != nil {
			return err
		}
		s, err := loadDictionary(c)
		if err != nil {
			return err
		}

		var details []*chmdict.EntryDetail
		if id, err := strconv.Atoi(arg); err == nil {
			d, err := s.EntryDetail(id)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrChmdict, err)
			}
			details = append(details, d)
		} else {
			details, err = s.Lookup(arg)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrChmdict, err)
			}
			if len(details) == 0 {
				return fmt.Errorf("%w: %w: %q", ErrChmdict, chmdict.ErrNotFound, arg)
			}
		}

		for i, d := range details {
			if i > 0 {
				fmt.Fprintln(c.App.Writer)
			}
			printEntry(c.App.Writer, d, c.Bool("html"))
		}
		return nil
	},
}

func printEntry(w io.Writer, d *chmdict.EntryDetail, markup bool) {
	fmt.Fprintf(w, "%s [%d]\n", d.Headword, d.ID)
	if len(d.Aliases) > 0 {
		fmt.Fprintf(w, "Aliases: %s\n", strings.Join(d.Aliases, ", "))
	}
	for _, src := range d.Sources {
		fmt.Fprintf(w, "Source:  %s::%s", src.Volume, src.Path)
		if src.Fragment != "" {
			fmt.Fprintf(w, "#%s", src.Fragment)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
	printPage(w, d.Page, markup)
}

func printPage(w io.Writer, p *chmdict.ContentPage, markup bool) {
	if markup {
		fmt.Fprintln(w, p.HTML)
		return
	}
	fmt.Fprintln(w, p.Text)
}

var pageCommand = &cli.Command{
	Name:      "page",
	Usage:     "print a page of the dictionary",
	ArgsUsage: "PATH",
	Flags: []cli.Flag{
		htmlFlag,
		&cli.StringFlag{
			Name:  "volume",
			Usage: "look for the page in `VOLUME` first",
		},
	},
	Action: func(c *cli.Context) error {
		local, err := oneArg(c)
		if err != nil {
			return err
		}
		s, err := loadDictionary(c)
		if err != nil {
			return err
		}
		p, err := s.ContentPage(local, c.String("volume"))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrChmdict, err)
		}
		fmt.Fprintf(c.App.Writer, "%s (%s::%s)\n\n", p.Title, p.Volume, p.Path)
		printPage(c.App.Writer, p, c.Bool("html"))
		return nil
	},
}
