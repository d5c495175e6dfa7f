// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/knowledge-importer/pkg/types"
)

const bom = "\ufeff"

// readSource reads the whole file after checking it against the size limit.
// I/O failures are returned as-is; they are not format errors.
func readSource(path string, maxSize int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("%s: file too large: %d bytes (max %d)", path, info.Size(), maxSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// readUTF8 reads a text source that must be valid UTF-8. A leading byte
// order mark is dropped.
func readUTF8(format types.SourceType, path string, maxSize int64) (string, error) {
	data, err := readSource(path, maxSize)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", formatErr(format, path, fmt.Errorf("input is not valid UTF-8"))
	}
	return strings.TrimPrefix(string(data), bom), nil
}

// docTitle derives the document title from the filename stem.
func docTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func newDocument(path string, format types.SourceType, lang string) *types.RawDocument {
	return &types.RawDocument{
		SourcePath: path,
		SourceType: format,
		Title:      docTitle(path),
		Language:   lang,
		Metadata:   map[string]any{},
	}
}
