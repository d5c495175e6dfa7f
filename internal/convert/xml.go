// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/pdiddy/knowledge-importer/pkg/types"
)

// XMLExtractor flattens an XML element tree. A root whose children all share
// one tag is treated as a list of records.
type XMLExtractor struct {
	cfg    types.ConverterConfig
	labels Labels
}

// NewXMLExtractor creates an XML extractor. Zero config fields take defaults.
func NewXMLExtractor(cfg types.ConverterConfig) *XMLExtractor {
	cfg = cfg.WithDefaults()
	return &XMLExtractor{cfg: cfg, labels: LabelsFor(cfg.Language)}
}

// Element is a parsed XML element with namespace prefixes removed.
type Element struct {
	Tag      string
	Attrs    []xml.Attr
	Text     string
	Children []*Element
}

// Extract parses the XML file at path.
func (e *XMLExtractor) Extract(path string) (*types.RawDocument, error) {
	data, err := readSource(path, e.cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}
	root, err := ParseXML(strings.TrimPrefix(string(data), bom), e.cfg.MaxDepth)
	if err != nil {
		return nil, formatErr(types.SourceXML, path, err)
	}

	doc := newDocument(path, types.SourceXML, e.cfg.Language)
	doc.Sections = e.sections(root)
	doc.Metadata["root_tag"] = root.Tag
	doc.RawText, _ = decodeText(data)
	return doc, nil
}

func (e *XMLExtractor) sections(root *Element) []types.Section {
	if tag, ok := homogeneousTag(root.Children); ok {
		sections := make([]types.Section, 0, len(root.Children))
		for i, child := range root.Children {
			n := strconv.Itoa(i + 1)
			kv := FlattenElement(child, "")
			first := n
			if len(kv) > 0 {
				first = kv[0].Value
			}
			sections = append(sections, types.Section{
				Level:   2,
				Title:   tag + " " + n + ": " + first,
				KVPairs: kv,
			})
		}
		return sections
	}

	var kv []types.KVPair
	for _, a := range root.Attrs {
		kv = append(kv, types.KVPair{Key: root.Tag + "@" + a.Name.Local, Value: a.Value})
	}
	for _, child := range root.Children {
		kv = append(kv, FlattenElement(child, "")...)
	}
	return []types.Section{{Level: 2, Title: root.Tag, KVPairs: kv}}
}

// homogeneousTag reports whether there is more than one child and all
// children share a tag.
func homogeneousTag(children []*Element) (string, bool) {
	if len(children) < 2 {
		return "", false
	}
	tag := children[0].Tag
	for _, c := range children[1:] {
		if c.Tag != tag {
			return "", false
		}
	}
	return tag, true
}

// FlattenElement converts el into pairs keyed by the dotted tag path. The
// element's attributes come first as "path@name"; a leaf then adds its
// trimmed text when non-empty, a parent recurses into its children.
func FlattenElement(el *Element, prefix string) []types.KVPair {
	var out []types.KVPair
	flattenElementInto(&out, el, prefix)
	return out
}

func flattenElementInto(out *[]types.KVPair, el *Element, prefix string) {
	key := el.Tag
	if prefix != "" {
		key = prefix + "." + el.Tag
	}
	for _, a := range el.Attrs {
		*out = append(*out, types.KVPair{Key: key + "@" + a.Name.Local, Value: a.Value})
	}
	if len(el.Children) == 0 {
		if text := strings.TrimSpace(el.Text); text != "" {
			*out = append(*out, types.KVPair{Key: key, Value: text})
		}
		return
	}
	for _, c := range el.Children {
		flattenElementInto(out, c, key)
	}
}

// ParseXML builds the element tree of a single-rooted document. Declared
// non-UTF-8 encodings are decoded. Text is collected up to the first child
// element or comment, so only a leaf's own text survives.
func ParseXML(text string, maxDepth int) (*Element, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.CharsetReader = charset.NewReaderLabel

	var (
		root  *Element
		stack []*Element
		// closed marks elements whose leading text run has ended.
		closed = map[*Element]bool{}
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("XML syntax: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, fmt.Errorf("XML syntax: extra content after root element <%s>", root.Tag)
			}
			if len(stack) >= maxDepth {
				return nil, fmt.Errorf("%w: more than %d levels", ErrTooDeep, maxDepth)
			}
			el := &Element{Tag: t.Name.Local, Attrs: elementAttrs(t.Attr)}
			if len(stack) == 0 {
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
				closed[parent] = true
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				if strings.TrimSpace(string(t)) != "" {
					return nil, errors.New("XML syntax: text outside the root element")
				}
				continue
			}
			top := stack[len(stack)-1]
			if !closed[top] {
				top.Text += string(t)
			}
		case xml.Comment, xml.ProcInst:
			if len(stack) > 0 {
				closed[stack[len(stack)-1]] = true
			}
		}
	}

	if root == nil {
		return nil, errors.New("XML syntax: no root element")
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("XML syntax: unclosed element <%s>", stack[len(stack)-1].Tag)
	}
	return root, nil
}

// elementAttrs drops namespace declarations, which are not attributes.
func elementAttrs(attrs []xml.Attr) []xml.Attr {
	var out []xml.Attr
	for _, a := range attrs {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
			continue
		}
		out = append(out, a)
	}
	return out
}
