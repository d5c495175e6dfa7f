// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/knowledge-importer/pkg/types"
)

func TestYAMLExtract(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantTitles []string
		wantKV     [][]types.KVPair
	}{
		{
			name: "mapping with nested sections",
			content: `name: Anlage Nord
ort: Berlin
kontakt:
  tel: 030 123
  mail: info@example.org
technik:
  leistung: 5 kW
  module: [a, b]
`,
			wantTitles: []string{"Grunddaten", "kontakt", "technik"},
			wantKV: [][]types.KVPair{
				kv("name", "Anlage Nord", "ort", "Berlin"),
				kv("kontakt.tel", "030 123", "kontakt.mail", "info@example.org"),
				kv("technik.leistung", "5 kW", "technik.module[0]", "a", "technik.module[1]", "b"),
			},
		},
		{
			name:       "mapping without scalar keys",
			content:    "a:\n  x: 1\n",
			wantTitles: []string{"a"},
			wantKV:     [][]types.KVPair{kv("a.x", "1")},
		},
		{
			name:       "top-level list",
			content:    "- name: A\n  v: 1\n- name: B\n- {}\n",
			wantTitles: []string{"Eintrag 1: A", "Eintrag 2: B", "Eintrag 3: 3"},
			wantKV:     [][]types.KVPair{kv("name", "A", "v", "1"), kv("name", "B"), nil},
		},
		{
			name:       "scalar document",
			content:    "just text\n",
			wantTitles: []string{"Inhalt"},
			wantKV:     [][]types.KVPair{kv("Wert", "just text")},
		},
		{
			name:       "empty document",
			content:    "",
			wantTitles: []string{"Inhalt"},
			wantKV:     [][]types.KVPair{kv("Wert", "")},
		},
		{
			name:       "null values",
			content:    "a: ~\nb: null\nc:\n",
			wantTitles: []string{"Grunddaten"},
			wantKV:     [][]types.KVPair{kv("a", "", "b", "", "c", "")},
		},
		{
			name:       "anchors and merge keys",
			content:    "base: &b\n  x: 1\nchild:\n  <<: *b\n  y: 2\n",
			wantTitles: []string{"base", "child"},
			wantKV: [][]types.KVPair{
				kv("base.x", "1"),
				kv("child.x", "1", "child.y", "2"),
			},
		},
		{
			name:       "only first document",
			content:    "a: 1\n---\nb: 2\n",
			wantTitles: []string{"Grunddaten"},
			wantKV:     [][]types.KVPair{kv("a", "1")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "anlage.yaml", tt.content)

			doc, err := NewYAMLExtractor(types.ConverterConfig{}).Extract(path)
			require.NoError(t, err)

			assert.Equal(t, types.SourceYAML, doc.SourceType)
			assert.Equal(t, "anlage", doc.Title)
			assert.Equal(t, tt.content, doc.RawText)
			assert.Equal(t, tt.wantTitles, titles(doc.Sections))
			for i, s := range doc.Sections {
				assert.Equal(t, tt.wantKV[i], s.KVPairs, "section %d", i)
			}
		})
	}
}

func TestYAMLExtractSyntaxError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yml", "a: [1, 2\nb: c\n")

	doc, err := NewYAMLExtractor(types.ConverterConfig{}).Extract(path)
	require.Error(t, err)
	assert.Nil(t, doc)
	assert.Contains(t, err.Error(), "YAML syntax")

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, types.SourceYAML, fe.Format)
}

func TestDecodeYAMLDepth(t *testing.T) {
	_, err := DecodeYAML("a:\n  b: 1\n", 2)
	require.NoError(t, err)

	_, err = DecodeYAML("a:\n  b:\n    c: 1\n", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooDeep))
}

// aliasChain builds levels anchors where each one lists fanout references to
// the previous anchor, so expansion grows as fanout^levels.
func aliasChain(levels, fanout int) string {
	var b strings.Builder
	b.WriteString("l0: &l0 [x, x, x, x, x, x, x, x, x, x]\n")
	for i := 1; i <= levels; i++ {
		refs := make([]string, fanout)
		for j := range refs {
			refs[j] = fmt.Sprintf("*l%d", i-1)
		}
		fmt.Fprintf(&b, "l%d: &l%d [%s]\n", i, i, strings.Join(refs, ", "))
	}
	return b.String()
}

func TestDecodeYAMLAliasExpansion(t *testing.T) {
	_, err := DecodeYAML(aliasChain(7, 10), 256)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooLarge))

	path := writeFile(t, t.TempDir(), "laughs.yaml", aliasChain(7, 10))
	doc, err := NewYAMLExtractor(types.ConverterConfig{}).Extract(path)
	require.Error(t, err)
	assert.Nil(t, doc)

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.True(t, errors.Is(err, ErrTooLarge))
}

func TestDecodeYAMLRepeatedAliases(t *testing.T) {
	var b strings.Builder
	b.WriteString("defaults: &d {host: db, port: 5432, user: app}\n")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "svc%d:\n  <<: *d\n  name: s%d\n", i, i)
	}

	v, err := DecodeYAML(b.String(), 256)
	require.NoError(t, err)
	require.Len(t, v.Fields, 51)
	assert.Equal(t, kv("svc49.host", "db", "svc49.port", "5432", "svc49.user", "app", "svc49.name", "s49"),
		Flatten(v.Fields[50].Value, "svc49"))
}

func TestDecodeYAMLKeys(t *testing.T) {
	v, err := DecodeYAML("1: one\ntrue: yes\n~: nothing\n", 10)
	require.NoError(t, err)

	assert.Equal(t, kv("1", "one", "true", "yes", "null", "nothing"), Flatten(v, ""))
}
