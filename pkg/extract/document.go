// Copyright 2023 Paolo Fabio Zaino
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

// Package extract implements the multi-strategy extraction pipeline.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Document is a fetched document parsed once for every locator engine the
// strategies use: CSS (goquery), XPath (htmlquery) and the raw text for
// regex/JSON strategies.
type Document struct {
	HTML *goquery.Document
	Root *html.Node
	Text string
}

// ParseDocument parses the response body. JSON bodies parse fine too (the
// HTML parser wraps them in a text node), strategies that want the raw
// payload read Text.
func ParseDocument(body string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	root, err := htmlquery.Parse(strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	return &Document{HTML: doc, Root: root, Text: body}, nil
}

// CSS returns the trimmed text of the first node matching the CSS selector.
func (d *Document) CSS(selector string) string {
	return strings.TrimSpace(d.HTML.Find(selector).First().Text())
}

// XPath returns the trimmed inner text of the first node matching the XPath
// expression. A malformed expression yields "".
func (d *Document) XPath(expr string) string {
	node, err := htmlquery.Query(d.Root, expr)
	if err != nil || node == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.InnerText(node))
}

// FirstCSS runs an ordered locator cascade over the whole document: the
// first selector that yields non-empty text wins.
func (d *Document) FirstCSS(selectors ...string) string {
	for _, sel := range selectors {
		if text := d.CSS(sel); text != "" {
			return text
		}
	}
	return ""
}

// FirstText runs an ordered locator cascade inside one selection fragment:
// the first selector that yields non-empty text wins. This is the building
// block strategies use for per-field sub-cascades.
func FirstText(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(s.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// FirstAttr returns the first non-empty value of attr across the ordered
// selectors.
func FirstAttr(s *goquery.Selection, attr string, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := s.Find(sel).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
