// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/knowledge-importer/pkg/types"
)

// writeFile creates name under dir with content and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func kv(pairs ...string) []types.KVPair {
	out := make([]types.KVPair, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, types.KVPair{Key: pairs[i], Value: pairs[i+1]})
	}
	return out
}

func titles(sections []types.Section) []string {
	out := make([]string, len(sections))
	for i, s := range sections {
		out[i] = s.Title
	}
	return out
}

func TestCSVExtract(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		cfg        types.ConverterConfig
		wantTitles []string
		wantKV     [][]types.KVPair
	}{
		{
			name:       "header and two rows",
			content:    "name,price\nApfel,1.20\nBirne,0.90\n",
			wantTitles: []string{"Zeile 2: Apfel", "Zeile 3: Birne"},
			wantKV: [][]types.KVPair{
				kv("name", "Apfel", "price", "1.20"),
				kv("name", "Birne", "price", "0.90"),
			},
		},
		{
			name:       "empty first column",
			content:    "name,price\n,3\n",
			wantTitles: []string{"Zeile 2"},
			wantKV:     [][]types.KVPair{kv("price", "3")},
		},
		{
			name:       "blank cells skipped",
			content:    "a,b,c\nx,  ,z\n",
			wantTitles: []string{"Zeile 2: x"},
			wantKV:     [][]types.KVPair{kv("a", "x", "c", "z")},
		},
		{
			name:       "cells beyond header",
			content:    "a,b\n1,2,3\n",
			wantTitles: []string{"Zeile 2: 1"},
			wantKV:     [][]types.KVPair{kv("a", "1", "b", "2", "Spalte3", "3")},
		},
		{
			name:       "quoted field with delimiter and newline",
			content:    "name,note\n\"Müller, Hans\",\"line one\nline two\"\n",
			wantTitles: []string{"Zeile 2: Müller, Hans"},
			wantKV:     [][]types.KVPair{kv("name", "Müller, Hans", "note", "line one\nline two")},
		},
		{
			name:       "byte order mark",
			content:    "\ufeffname\nA\n",
			wantTitles: []string{"Zeile 2: A"},
			wantKV:     [][]types.KVPair{kv("name", "A")},
		},
		{
			name:       "semicolon delimiter",
			content:    "a;b\n1;2\n",
			cfg:        types.ConverterConfig{CSVDelimiter: ";"},
			wantTitles: []string{"Zeile 2: 1"},
			wantKV:     [][]types.KVPair{kv("a", "1", "b", "2")},
		},
		{
			name:       "auto delimiter",
			content:    "a\tb\tc\n1\t2\t3\n",
			cfg:        types.ConverterConfig{CSVDelimiter: types.DelimiterAuto},
			wantTitles: []string{"Zeile 2: 1"},
			wantKV:     [][]types.KVPair{kv("a", "1", "b", "2", "c", "3")},
		},
		{
			name:       "english labels",
			content:    "a,b\n,2\n",
			cfg:        types.ConverterConfig{Language: "en"},
			wantTitles: []string{"Row 2"},
			wantKV:     [][]types.KVPair{kv("b", "2")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "data.csv", tt.content)

			doc, err := NewCSVExtractor(tt.cfg).Extract(path)
			require.NoError(t, err)

			assert.Equal(t, types.SourceCSV, doc.SourceType)
			assert.Equal(t, "data", doc.Title)
			assert.Equal(t, tt.wantTitles, titles(doc.Sections))
			for i, s := range doc.Sections {
				assert.Equal(t, 2, s.Level)
				assert.Equal(t, tt.wantKV[i], s.KVPairs, "section %d", i)
			}
		})
	}
}

func TestCSVExtractMetadata(t *testing.T) {
	path := writeFile(t, t.TempDir(), "obst.csv", "name;price\nApfel;1\nBirne;2\n")

	doc, err := NewCSVExtractor(types.ConverterConfig{CSVDelimiter: types.DelimiterAuto}).Extract(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "price"}, doc.Metadata["headers"])
	assert.Equal(t, 2, doc.Metadata["row_count"])
	assert.Equal(t, ";", doc.Metadata["delimiter"])
	assert.Equal(t, "utf-8", doc.Metadata["encoding"])
	assert.Equal(t, "de", doc.Language)
	assert.Empty(t, doc.Date)
	assert.Equal(t, "name;price\nApfel;1\nBirne;2\n", doc.RawText)
}

func TestCSVExtractNoRecords(t *testing.T) {
	for name, content := range map[string]string{
		"empty file":  "",
		"header only": "a,b,c\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "empty.csv", content)

			doc, err := NewCSVExtractor(types.ConverterConfig{}).Extract(path)
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.True(t, errors.Is(err, ErrNoRecords))

			var fe *FormatError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, types.SourceCSV, fe.Format)
			assert.Equal(t, path, fe.Path)
			assert.Contains(t, err.Error(), path)
		})
	}
}

func TestCSVExtractLatin1(t *testing.T) {
	// ISO-8859-1 bytes for a short German table.
	content := "name,stadt,beschreibung\n" +
		"J\xfcrgen,K\xf6ln,Gr\xf6\xdfere Stra\xdfe f\xfcr B\xfccher und \xdcbungen\n" +
		"Bj\xf6rn,M\xfcnchen,Sch\xf6ne Gr\xfc\xdfe aus dem S\xfcden\n"
	path := writeFile(t, t.TempDir(), "latin1.csv", content)

	doc, err := NewCSVExtractor(types.ConverterConfig{}).Extract(path)
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(doc.RawText))
	assert.NotEqual(t, "utf-8", doc.Metadata["encoding"])
	assert.Contains(t, doc.RawText, "Jürgen")
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "Zeile 2: Jürgen", doc.Sections[0].Title)
}

func TestCSVExtractMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.csv")

	_, err := NewCSVExtractor(types.ConverterConfig{}).Extract(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	var fe *FormatError
	assert.False(t, errors.As(err, &fe), "I/O failures are not format errors")
}

func TestCSVExtractTooLarge(t *testing.T) {
	path := writeFile(t, t.TempDir(), "big.csv", "a,b\n1,2\n3,4\n")

	_, err := NewCSVExtractor(types.ConverterConfig{MaxFileSize: 4}).Extract(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file too large")
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"a,b,c", ","},
		{"a;b;c", ";"},
		{"a\tb", "\t"},
		{"a|b|c", "|"},
		{"single", ","},
		{`"x;y;z",b`, ","},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sniffDelimiter(tt.line+"\n1\n"), tt.line)
	}
}
