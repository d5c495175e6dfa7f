// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate scores how much of a source document reappears in its
// rendered Markdown. The check is lexical: it flags likely information loss
// and says nothing about meaning.
package validate

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/knowledge-importer/pkg/types"
)

const (
	// Threshold is the minimum coverage score reported as ok.
	Threshold = 0.95

	minTokenLen = 2
	maxTokenLen = 20

	defaultIssueFormat = "Coverage nur %.0f%% – manuell prüfen"
)

// Validator runs the coverage check.
type Validator struct {
	// IssueFormat renders the warning; it receives the score as a percentage.
	IssueFormat string

	Logger *slog.Logger
}

// New creates a Validator. An empty issueFormat uses the German default.
func New(issueFormat string, logger *slog.Logger) *Validator {
	if issueFormat == "" {
		issueFormat = defaultIssueFormat
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{IssueFormat: issueFormat, Logger: logger}
}

// Validate compares the key tokens of doc.RawText against markdown. A token
// counts as found when it occurs anywhere in markdown as a substring.
func (v *Validator) Validate(doc *types.RawDocument, markdown string) types.ValidationResult {
	tokens := KeyTokens(doc.RawText)
	if len(tokens) == 0 {
		return types.ValidationResult{Status: types.StatusOK, CoverageScore: 1.0, Issues: []string{}}
	}

	var missing []string
	for _, t := range tokens {
		if !strings.Contains(markdown, t) {
			missing = append(missing, t)
		}
	}
	score := float64(len(tokens)-len(missing)) / float64(len(tokens))

	if score >= Threshold {
		return types.ValidationResult{Status: types.StatusOK, CoverageScore: score, Issues: []string{}}
	}

	v.Logger.Debug("coverage below threshold",
		"source", doc.SourcePath, "score", score, "missing", len(missing), "sample", sample(missing, 10))

	return types.ValidationResult{
		Status:        types.StatusWarning,
		CoverageScore: score,
		Issues:        []string{fmt.Sprintf(v.IssueFormat, score*100)},
	}
}

// KeyTokens returns the unique whitespace-separated tokens of text that are
// at least two runes long and either all digits or at most 20 runes. The
// filter admits nearly every ordinary word; that is intended. The result is
// sorted.
func KeyTokens(text string) []string {
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(text) {
		n := utf8.RuneCountInString(w)
		if n < minTokenLen {
			continue
		}
		if n > maxTokenLen && !isDigits(w) {
			continue
		}
		seen[w] = struct{}{}
	}

	tokens := make([]string, 0, len(seen))
	for t := range seen {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func sample(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
