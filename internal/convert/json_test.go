// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/knowledge-importer/pkg/types"
)

func TestJSONExtractObject(t *testing.T) {
	content := `{
  "name": "Widget",
  "price": 9.50,
  "tags": ["a", "b"],
  "dims": {"w": 1, "h": 2e3},
  "ok": true,
  "none": null,
  "empty": {}
}`
	path := writeFile(t, t.TempDir(), "widget.json", content)

	doc, err := NewJSONExtractor(types.ConverterConfig{}).Extract(path)
	require.NoError(t, err)

	assert.Equal(t, types.SourceJSON, doc.SourceType)
	assert.Equal(t, "widget", doc.Title)
	assert.Equal(t, content, doc.RawText)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "Inhalt", doc.Sections[0].Title)
	assert.Equal(t, kv(
		"name", "Widget",
		"price", "9.50",
		"tags[0]", "a",
		"tags[1]", "b",
		"dims.w", "1",
		"dims.h", "2e3",
		"ok", "true",
		"none", "",
	), doc.Sections[0].KVPairs)
}

func TestJSONExtractArray(t *testing.T) {
	content := `[{"id": 7, "name": "A"}, {"name": "B", "id": 8}, {}, "plain"]`
	path := writeFile(t, t.TempDir(), "list.json", content)

	doc, err := NewJSONExtractor(types.ConverterConfig{}).Extract(path)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Eintrag 1: 7",
		"Eintrag 2: B",
		"Eintrag 3: 3",
		"Eintrag 4: plain",
	}, titles(doc.Sections))
	assert.Equal(t, kv("id", "7", "name", "A"), doc.Sections[0].KVPairs)
	assert.Empty(t, doc.Sections[2].KVPairs)
	assert.Equal(t, kv("", "plain"), doc.Sections[3].KVPairs)
}

func TestJSONExtractEmptyArray(t *testing.T) {
	path := writeFile(t, t.TempDir(), "none.json", "[]")

	doc, err := NewJSONExtractor(types.ConverterConfig{}).Extract(path)
	require.NoError(t, err)
	assert.Empty(t, doc.Sections)
}

func TestJSONExtractEnglishLabels(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.json", `{"a": 1}`)

	doc, err := NewJSONExtractor(types.ConverterConfig{Language: "en"}).Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "Content", doc.Sections[0].Title)
	assert.Equal(t, "en", doc.Language)
}

func TestJSONExtractErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"unterminated object", `{"a": 1`, "JSON syntax"},
		{"trailing comma", `{"a": 1,}`, "JSON syntax"},
		{"second value", `{} {}`, "unexpected data after top-level value"},
		{"empty file", ``, "JSON syntax"},
		{"invalid utf-8", "{\"a\": \"\xff\"}", "not valid UTF-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "bad.json", tt.content)

			doc, err := NewJSONExtractor(types.ConverterConfig{}).Extract(path)
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Contains(t, err.Error(), path)

			var fe *FormatError
			assert.True(t, errors.As(err, &fe))
		})
	}
}

func TestDecodeJSONKeepsOrderAndDuplicates(t *testing.T) {
	v, err := DecodeJSON(`{"z": 1, "a": 2, "z": 3}`, 10)
	require.NoError(t, err)

	assert.Equal(t, kv("z", "1", "a", "2", "z", "3"), Flatten(v, ""))
}

func TestDecodeJSONDepth(t *testing.T) {
	_, err := DecodeJSON(`[[1]]`, 2)
	require.NoError(t, err)

	_, err = DecodeJSON(`[[[1]]]`, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooDeep))

	deep := strings.Repeat("[", 1000) + strings.Repeat("]", 1000)
	_, err = DecodeJSON(deep, 256)
	assert.True(t, errors.Is(err, ErrTooDeep))
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name   string
		value  Value
		prefix string
		want   []types.KVPair
	}{
		{
			name:  "scalar without prefix",
			value: Scalar("x"),
			want:  kv("", "x"),
		},
		{
			name:   "scalar with prefix",
			value:  Scalar("x"),
			prefix: "p",
			want:   kv("p", "x"),
		},
		{
			name:   "nested arrays",
			value:  Array(Array(Scalar("a"), Scalar("b")), Null()),
			prefix: "m",
			want:   kv("m[0][0]", "a", "m[0][1]", "b", "m[1]", ""),
		},
		{
			name: "object in array in object",
			value: Object(Field{Name: "rows", Value: Array(
				Object(Field{Name: "id", Value: Scalar("1")}),
			)}),
			want: kv("rows[0].id", "1"),
		},
		{
			name:  "empty containers",
			value: Object(Field{Name: "a", Value: Array()}, Field{Name: "b", Value: Object()}),
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Flatten(tt.value, tt.prefix))
		})
	}
}
