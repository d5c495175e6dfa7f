// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/pdiddy/knowledge-importer/pkg/types"
)

// CSVExtractor turns a header row plus data rows into one section per row.
type CSVExtractor struct {
	cfg    types.ConverterConfig
	labels Labels
}

// NewCSVExtractor creates a CSV extractor. Zero config fields take defaults.
func NewCSVExtractor(cfg types.ConverterConfig) *CSVExtractor {
	cfg = cfg.WithDefaults()
	return &CSVExtractor{cfg: cfg, labels: LabelsFor(cfg.Language)}
}

// Extract reads the CSV file at path. Row numbers in titles count the header
// as row 1, so the first data row is "row 2".
func (e *CSVExtractor) Extract(path string) (*types.RawDocument, error) {
	data, err := readSource(path, e.cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}

	text, enc := decodeText(data)

	delim := e.cfg.CSVDelimiter
	if delim == types.DelimiterAuto {
		delim = sniffDelimiter(text)
	}
	comma, _ := utf8.DecodeRuneInString(delim)

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, formatErr(types.SourceCSV, path, fmt.Errorf("CSV parse: %w", err))
	}
	if len(records) < 2 {
		return nil, formatErr(types.SourceCSV, path, ErrNoRecords)
	}

	headers := records[0]
	rows := records[1:]

	sections := make([]types.Section, 0, len(rows))
	for i, row := range rows {
		n := strconv.Itoa(i + 2)
		title := e.labels.Row + " " + n
		if len(row) > 0 && row[0] != "" && len(headers) > 0 {
			title += ": " + row[0]
		}
		sections = append(sections, types.Section{
			Level:   2,
			Title:   title,
			KVPairs: e.rowPairs(headers, row),
		})
	}

	doc := newDocument(path, types.SourceCSV, e.cfg.Language)
	doc.Sections = sections
	doc.RawText = text
	doc.Metadata["headers"] = headers
	doc.Metadata["row_count"] = len(rows)
	doc.Metadata["delimiter"] = delim
	doc.Metadata["encoding"] = enc
	return doc, nil
}

// rowPairs pairs each non-blank cell with its header. Cells past the header
// width are keyed by their 1-based column position.
func (e *CSVExtractor) rowPairs(headers, row []string) []types.KVPair {
	var kv []types.KVPair
	for i, v := range row {
		if strings.TrimSpace(v) == "" {
			continue
		}
		key := e.labels.Column + strconv.Itoa(i+1)
		if i < len(headers) {
			key = headers[i]
		}
		kv = append(kv, types.KVPair{Key: key, Value: v})
	}
	return kv
}

// decodeText returns data as UTF-8 and the name of the encoding used. Invalid
// UTF-8 triggers charset detection; undecodable bytes become U+FFFD.
func decodeText(data []byte) (string, string) {
	if utf8.Valid(data) {
		return strings.TrimPrefix(string(data), bom), "utf-8"
	}

	var enc encoding.Encoding = charmap.ISO8859_1
	name := "iso-8859-1"
	if res, err := chardet.NewTextDetector().DetectBest(data); err == nil && res != nil {
		if e, canonical := charset.Lookup(res.Charset); e != nil {
			enc, name = e, canonical
		}
	}

	out, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(data)))
	if err != nil {
		return strings.ToValidUTF8(string(data), "\uFFFD"), name
	}
	return strings.ToValidUTF8(string(out), "\uFFFD"), name
}

var delimiterCandidates = []string{",", ";", "\t", "|"}

// sniffDelimiter picks the candidate occurring most often on the first line,
// ignoring quoted stretches. Ties keep the earlier candidate, so "," wins
// when nothing else is present.
func sniffDelimiter(text string) string {
	line := text
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	counts := make(map[rune]int, len(delimiterCandidates))
	inQuotes := false
	for _, r := range line {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best := delimiterCandidates[0]
	bestCount := 0
	for _, c := range delimiterCandidates {
		r, _ := utf8.DecodeRuneInString(c)
		if counts[r] > bestCount {
			best, bestCount = c, counts[r]
		}
	}
	return best
}
