// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/knowledge-importer/pkg/types"
)

// JSONExtractor flattens a JSON document into dot-notation pairs. A top-level
// array yields one section per element, anything else a single section.
type JSONExtractor struct {
	cfg    types.ConverterConfig
	labels Labels
}

// NewJSONExtractor creates a JSON extractor. Zero config fields take defaults.
func NewJSONExtractor(cfg types.ConverterConfig) *JSONExtractor {
	cfg = cfg.WithDefaults()
	return &JSONExtractor{cfg: cfg, labels: LabelsFor(cfg.Language)}
}

// Extract reads and flattens the JSON file at path.
func (e *JSONExtractor) Extract(path string) (*types.RawDocument, error) {
	text, err := readUTF8(types.SourceJSON, path, e.cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}

	root, err := DecodeJSON(text, e.cfg.MaxDepth)
	if err != nil {
		return nil, formatErr(types.SourceJSON, path, err)
	}

	doc := newDocument(path, types.SourceJSON, e.cfg.Language)
	if root.Kind == KindArray {
		doc.Sections = entrySections(root.Items, e.labels)
	} else {
		doc.Sections = []types.Section{{
			Level:   2,
			Title:   e.labels.Content,
			KVPairs: Flatten(root, ""),
		}}
	}
	doc.RawText = text
	return doc, nil
}

// DecodeJSON parses text into a Value, keeping object members in source
// order. Numbers keep their literal spelling. Nesting beyond maxDepth fails
// with ErrTooDeep.
func DecodeJSON(text string, maxDepth int) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	v, err := decodeJSONValue(dec, 0, maxDepth)
	if err != nil {
		return Value{}, jsonSyntaxErr(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return Value{}, jsonSyntaxErr(err)
	}
	return v, nil
}

func jsonSyntaxErr(err error) error {
	if errors.Is(err, ErrTooDeep) {
		return err
	}
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("JSON syntax: %w", err)
}

func decodeJSONValue(dec *json.Decoder, depth, maxDepth int) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		if depth >= maxDepth {
			return Value{}, fmt.Errorf("%w: more than %d levels", ErrTooDeep, maxDepth)
		}
		switch t {
		case '{':
			obj := Value{Kind: KindObject}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("object key is %v, want string", keyTok)
				}
				child, err := decodeJSONValue(dec, depth+1, maxDepth)
				if err != nil {
					return Value{}, err
				}
				obj.Fields = append(obj.Fields, Field{Name: key, Value: child})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return obj, nil
		case '[':
			arr := Value{Kind: KindArray}
			for dec.More() {
				child, err := decodeJSONValue(dec, depth+1, maxDepth)
				if err != nil {
					return Value{}, err
				}
				arr.Items = append(arr.Items, child)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return arr, nil
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q", t)
		}
	case nil:
		return Null(), nil
	case string:
		return Scalar(t), nil
	case json.Number:
		return Scalar(t.String()), nil
	case bool:
		return Scalar(strconv.FormatBool(t)), nil
	default:
		return Value{}, fmt.Errorf("unexpected token %v", tok)
	}
}
