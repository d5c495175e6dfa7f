// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/knowledge-importer/pkg/types"
)

// XLSXExtractor converts every sheet of a workbook into one section per data
// row. Each call opens its own workbook handle.
type XLSXExtractor struct {
	cfg    types.ConverterConfig
	labels Labels
}

// NewXLSXExtractor creates a spreadsheet extractor. Zero config fields take defaults.
func NewXLSXExtractor(cfg types.ConverterConfig) *XLSXExtractor {
	cfg = cfg.WithDefaults()
	return &XLSXExtractor{cfg: cfg, labels: LabelsFor(cfg.Language)}
}

// Extract reads the workbook at path. Cell values are the formatted values
// cached in the file; formulas are not evaluated.
func (e *XLSXExtractor) Extract(path string) (*types.RawDocument, error) {
	data, err := readSource(path, e.cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, formatErr(types.SourceXLSX, path, fmt.Errorf("XLSX open: %w", err))
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	var (
		sections []types.Section
		parts    []string
	)
	for _, sheet := range sheets {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return nil, formatErr(types.SourceXLSX, path, fmt.Errorf("XLSX sheet %q: %w", sheet, err))
		}
		s, p := e.sheetSections(sheet, rows)
		sections = append(sections, s...)
		parts = append(parts, p...)
	}

	doc := newDocument(path, types.SourceXLSX, e.cfg.Language)
	doc.Sections = sections
	doc.Metadata["sheets"] = sheets
	doc.RawText = strings.Join(parts, " ")
	return doc, nil
}

// sheetSections returns the sections of one sheet and the header and cell
// values that feed the raw text. Empty cells count as missing.
func (e *XLSXExtractor) sheetSections(sheet string, rows [][]string) ([]types.Section, []string) {
	var kept [][]string
	width := 0
	for _, r := range rows {
		if isEmptyRow(r) {
			continue
		}
		kept = append(kept, r)
		width = max(width, len(r))
	}
	if len(kept) == 0 {
		return nil, nil
	}

	headers := make([]string, width)
	for i := range headers {
		if i < len(kept[0]) && kept[0][i] != "" {
			headers[i] = kept[0][i]
		} else {
			headers[i] = e.labels.Column + strconv.Itoa(i+1)
		}
	}
	parts := append([]string(nil), headers...)

	var sections []types.Section
	for i, row := range kept[1:] {
		var kv []types.KVPair
		for j, v := range row {
			if v == "" {
				continue
			}
			parts = append(parts, v)
			kv = append(kv, types.KVPair{Key: headers[j], Value: v})
		}
		if len(kv) == 0 {
			continue
		}
		sections = append(sections, types.Section{
			Level:   2,
			Title:   fmt.Sprintf("%s – %s %d: %s", sheet, e.labels.Row, i+2, kv[0].Value),
			KVPairs: kv,
		})
	}
	return sections, parts
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
