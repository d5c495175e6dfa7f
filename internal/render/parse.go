// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ParseFrontmatter reads the metadata block of a converted document and
// returns it with the Markdown body that follows.
func ParseFrontmatter(markdown []byte) (Frontmatter, []byte, error) {
	var meta Frontmatter
	body, err := frontmatter.Parse(bytes.NewReader(markdown), &meta)
	if err != nil {
		return Frontmatter{}, nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	return meta, body, nil
}

// Chunk is the span of a document from one heading up to the next.
type Chunk struct {
	Heading string `json:"heading" yaml:"heading"`
	Level   int    `json:"level" yaml:"level"`
	Text    string `json:"text" yaml:"text"`
}

// Chunks splits a Markdown body (frontmatter already removed) at every
// heading, the way a heading-aware text splitter would. Content before the
// first heading becomes a level-0 chunk when it is not blank.
func Chunks(body []byte) []Chunk {
	doc := goldmark.New().Parser().Parse(text.NewReader(body))

	type mark struct {
		start   int
		heading *ast.Heading
	}
	var marks []mark
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		start := h.Lines().At(0).Start
		if i := bytes.LastIndexByte(body[:start], '\n'); i >= 0 {
			start = i + 1
		} else {
			start = 0
		}
		marks = append(marks, mark{start: start, heading: h})
	}

	var chunks []Chunk
	lead := 0
	if len(marks) > 0 {
		lead = marks[0].start
	} else {
		lead = len(body)
	}
	if pre := strings.TrimSpace(string(body[:lead])); pre != "" {
		chunks = append(chunks, Chunk{Text: pre})
	}

	for i, m := range marks {
		end := len(body)
		if i+1 < len(marks) {
			end = marks[i+1].start
		}
		chunks = append(chunks, Chunk{
			Heading: headingText(m.heading, body),
			Level:   m.heading.Level,
			Text:    strings.TrimSpace(string(body[m.start:end])),
		})
	}
	return chunks
}

func headingText(h *ast.Heading, src []byte) string {
	var b strings.Builder
	lines := h.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return strings.TrimSpace(b.String())
}
