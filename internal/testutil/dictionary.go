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

package testutil

import (
	"encoding/binary"
	"fmt"
	"html"
	"strings"
)

// Page is a page of a test dictionary volume.
type Page struct {
	// Name is the path of the page in the archive, without a leading slash.
	Name  string
	Title string
	Body  string

	// Data replaces the generated page when set.
	Data []byte
}

// HTML returns the page as stored in the archive.
func (p Page) HTML() []byte {
	if p.Data != nil {
		return p.Data
	}
	return []byte(fmt.Sprintf("<html><head><title>%s</title></head><body>%s</body></html>",
		html.EscapeString(p.Title), p.Body))
}

// Headword is a keyword index entry of a test dictionary volume.
type Headword struct {
	Name    string
	Aliases []string

	// Local is the link to the page.
	Local string
}

// VolumeOptions are options for building a test dictionary volume.
type VolumeOptions struct {
	Title string

	// NoIndex omits the keyword index.
	NoIndex bool

	// Files are added to the archive as is.
	Files []File

	CHM *CHMOptions
}

// MakeVolume builds a dictionary volume holding pages, a table of contents
// listing the pages in order and a keyword index of headwords. It panics on
// error.
func MakeVolume(pages []Page, headwords []Headword, opts *VolumeOptions) []byte {
	o := VolumeOptions{}
	if opts != nil {
		o = *opts
	}

	index := ""
	if !o.NoIndex {
		index = "index.hhk"
	}
	lcid := uint32(0x409)
	if o.CHM != nil && o.CHM.LCID != 0 {
		lcid = o.CHM.LCID
	}
	files := []File{
		{Name: "/#SYSTEM", Data: SystemObject("toc.hhc", index, o.Title, lcid), Uncompressed: true},
		{Name: "/toc.hhc", Data: TOC(pages)},
	}
	if !o.NoIndex {
		files = append(files, File{Name: "/index.hhk", Data: KeywordIndex(headwords)})
	}
	for _, p := range pages {
		files = append(files, File{Name: "/" + p.Name, Data: p.HTML()})
	}
	files = append(files, o.Files...)
	return MakeCHM(files, o.CHM)
}

// SystemObject returns a #SYSTEM object. Empty strings are omitted.
func SystemObject(contents, index, title string, lcid uint32) []byte {
	b := binary.LittleEndian.AppendUint32(nil, 3)
	record := func(code uint16, data []byte) {
		b = binary.LittleEndian.AppendUint16(b, code)
		b = binary.LittleEndian.AppendUint16(b, uint16(len(data)))
		b = append(b, data...)
	}
	for code, s := range []string{contents, index, "", title} {
		if s != "" {
			record(uint16(code), append([]byte(s), 0))
		}
	}
	record(4, binary.LittleEndian.AppendUint32(nil, lcid))
	return b
}

// TOC returns a table of contents with one entry per page.
func TOC(pages []Page) []byte {
	var b strings.Builder
	b.WriteString("<HTML><BODY>\n<UL>\n")
	for _, p := range pages {
		sitemapObject(&b, []string{p.Title}, p.Name)
	}
	b.WriteString("</UL>\n</BODY></HTML>\n")
	return []byte(b.String())
}

// KeywordIndex returns a keyword index of headwords.
func KeywordIndex(headwords []Headword) []byte {
	var b strings.Builder
	b.WriteString("<HTML><BODY>\n<UL>\n")
	for _, h := range headwords {
		sitemapObject(&b, append([]string{h.Name}, h.Aliases...), h.Local)
	}
	b.WriteString("</UL>\n</BODY></HTML>\n")
	return []byte(b.String())
}

func sitemapObject(b *strings.Builder, names []string, local string) {
	b.WriteString("\t<LI> <OBJECT type=\"text/sitemap\">\n")
	for _, n := range names {
		fmt.Fprintf(b, "\t\t<param name=\"Name\" value=\"%s\">\n", html.EscapeString(n))
	}
	fmt.Fprintf(b, "\t\t<param name=\"Local\" value=\"%s\">\n", html.EscapeString(local))
	b.WriteString("\t\t</OBJECT>\n")
}
