// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/knowledge-importer/pkg/types"
)

// writeWorkbook saves a workbook whose sheets are filled from cells, keyed
// by sheet name and then by cell reference. The default sheet is renamed to
// the first name in order.
func writeWorkbook(t *testing.T, path string, order []string, cells map[string]map[string]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", sheet))
		} else {
			_, err := f.NewSheet(sheet)
			require.NoError(t, err)
		}
		for ref, v := range cells[sheet] {
			require.NoError(t, f.SetCellValue(sheet, ref, v))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

func TestXLSXExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventar.xlsx")
	writeWorkbook(t, path, []string{"Möbel", "Lager"}, map[string]map[string]any{
		"Möbel": {
			"A1": "Name", "B1": "Preis",
			"A2": "Tisch", "B2": 120,
			"A3": "Stuhl",
		},
		"Lager": {
			"A1": "Ort",
			"A2": "Halle 1",
		},
	})

	doc, err := NewXLSXExtractor(types.ConverterConfig{}).Extract(path)
	require.NoError(t, err)

	assert.Equal(t, types.SourceXLSX, doc.SourceType)
	assert.Equal(t, "inventar", doc.Title)
	assert.Equal(t, []string{"Möbel", "Lager"}, doc.Metadata["sheets"])
	assert.Equal(t, []string{
		"Möbel – Zeile 2: Tisch",
		"Möbel – Zeile 3: Stuhl",
		"Lager – Zeile 2: Halle 1",
	}, titles(doc.Sections))
	assert.Equal(t, kv("Name", "Tisch", "Preis", "120"), doc.Sections[0].KVPairs)
	assert.Equal(t, kv("Name", "Stuhl"), doc.Sections[1].KVPairs)
	assert.Equal(t, "Name Preis Tisch 120 Stuhl Ort Halle 1", doc.RawText)
}

func TestXLSXExtractMissingHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daten.xlsx")
	writeWorkbook(t, path, []string{"Daten"}, map[string]map[string]any{
		"Daten": {
			"A1": "Name",
			"A2": "Tisch", "B2": "braun",
			"A4": "Bank", "C4": "lang",
		},
	})

	doc, err := NewXLSXExtractor(types.ConverterConfig{Language: "en"}).Extract(path)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Daten – Row 2: Tisch",
		"Daten – Row 3: Bank",
	}, titles(doc.Sections))
	assert.Equal(t, kv("Name", "Tisch", "Column2", "braun"), doc.Sections[0].KVPairs)
	assert.Equal(t, kv("Name", "Bank", "Column3", "lang"), doc.Sections[1].KVPairs)
}

func TestXLSXExtractEmptySheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leer.xlsx")
	writeWorkbook(t, path, []string{"Leer"}, nil)

	doc, err := NewXLSXExtractor(types.ConverterConfig{}).Extract(path)
	require.NoError(t, err)
	assert.Empty(t, doc.Sections)
	assert.Empty(t, doc.RawText)
}

func TestXLSXExtractCorrupt(t *testing.T) {
	path := writeFile(t, t.TempDir(), "kaputt.xlsx", "this is not a zip archive")

	doc, err := NewXLSXExtractor(types.ConverterConfig{}).Extract(path)
	require.Error(t, err)
	assert.Nil(t, doc)

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, types.SourceXLSX, fe.Format)
}
