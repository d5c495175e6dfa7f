// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render turns a RawDocument into chunking-safe Markdown: a YAML
// frontmatter block, a level-1 title, and one self-contained block per
// section so downstream splitters can cut at any heading.
package render

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/knowledge-importer/pkg/types"
)

// TimestampLayout is the second-precision local time format of the
// konvertiert field.
const TimestampLayout = "2006-01-02T15:04:05"

// Frontmatter is the metadata block at the top of every converted document.
// Field order is the order written.
type Frontmatter struct {
	Source      string `yaml:"quelle"`
	Title       string `yaml:"titel"`
	Language    string `yaml:"sprache"`
	Date        string `yaml:"stand"`
	ConvertedAt string `yaml:"konvertiert"`
	SourceFile  string `yaml:"quelldatei"`
}

// Renderer generates Markdown. Now supplies the conversion timestamp; it is
// the only input besides the document, so output is otherwise deterministic.
type Renderer struct {
	Now func() time.Time
}

// New returns a Renderer stamping documents with the current time.
func New() *Renderer {
	return &Renderer{Now: time.Now}
}

// GenerateMarkdown renders doc with frontmatter.
func (r *Renderer) GenerateMarkdown(doc *types.RawDocument) (string, error) {
	fm, err := r.frontmatter(doc)
	if err != nil {
		return "", err
	}
	parts := []string{fm, "", "# " + doc.Title, "", SectionsMarkdown(doc.Sections)}
	return strings.Join(parts, "\n"), nil
}

func (r *Renderer) frontmatter(doc *types.RawDocument) (string, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	meta := Frontmatter{
		Source:      string(doc.SourceType),
		Title:       doc.Title,
		Language:    doc.Language,
		Date:        doc.Date,
		ConvertedAt: now().Format(TimestampLayout),
		SourceFile:  filepath.Base(doc.SourcePath),
	}
	out, err := yaml.Marshal(&meta)
	if err != nil {
		return "", fmt.Errorf("marshaling frontmatter for %s: %w", doc.SourcePath, err)
	}
	return "---\n" + string(out) + "---", nil
}

// SectionsMarkdown renders sections as heading, blank line, bullet list,
// blank line, free text, blank line.
func SectionsMarkdown(sections []types.Section) string {
	var lines []string
	for _, s := range sections {
		lines = append(lines, strings.Repeat("#", max(s.Level, 1))+" "+s.Title, "")
		if len(s.KVPairs) > 0 {
			for _, kv := range s.KVPairs {
				lines = append(lines, "- **"+kv.Key+":** "+kv.Value)
			}
			lines = append(lines, "")
		}
		if s.FreeText != "" {
			lines = append(lines, s.FreeText, "")
		}
	}
	return strings.Join(lines, "\n")
}
