// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/knowledge-importer/pkg/types"
)

const (
	tagNull  = "!!null"
	tagMerge = "!!merge"
)

// YAMLExtractor converts YAML documents. Top-level mappings split into a
// leading base-data section plus one section per nested mapping.
type YAMLExtractor struct {
	cfg    types.ConverterConfig
	labels Labels
}

// NewYAMLExtractor creates a YAML extractor. Zero config fields take defaults.
func NewYAMLExtractor(cfg types.ConverterConfig) *YAMLExtractor {
	cfg = cfg.WithDefaults()
	return &YAMLExtractor{cfg: cfg, labels: LabelsFor(cfg.Language)}
}

// Extract reads the first YAML document in the file at path.
func (e *YAMLExtractor) Extract(path string) (*types.RawDocument, error) {
	text, err := readUTF8(types.SourceYAML, path, e.cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}

	root, err := DecodeYAML(text, e.cfg.MaxDepth)
	if err != nil {
		return nil, formatErr(types.SourceYAML, path, err)
	}

	doc := newDocument(path, types.SourceYAML, e.cfg.Language)
	doc.Sections = e.sections(root)
	doc.RawText = text
	return doc, nil
}

func (e *YAMLExtractor) sections(root Value) []types.Section {
	switch root.Kind {
	case KindArray:
		return entrySections(root.Items, e.labels)
	case KindObject:
		var sections []types.Section
		var base []types.KVPair
		for _, f := range root.Fields {
			if f.Value.Kind == KindObject {
				sections = append(sections, types.Section{
					Level:   2,
					Title:   f.Name,
					KVPairs: Flatten(f.Value, f.Name),
				})
				continue
			}
			base = append(base, Flatten(f.Value, f.Name)...)
		}
		if len(base) > 0 {
			lead := types.Section{Level: 2, Title: e.labels.BaseData, KVPairs: base}
			sections = append([]types.Section{lead}, sections...)
		}
		return sections
	default:
		return []types.Section{{
			Level:   2,
			Title:   e.labels.Content,
			KVPairs: []types.KVPair{{Key: e.labels.Value, Value: root.String()}},
		}}
	}
}

// yamlValueBudget is the number of values each node of the parsed tree may
// contribute after alias expansion.
const yamlValueBudget = 100

// DecodeYAML parses the first document of text into a Value. Only the node
// tree is built, so no tags are executed. Aliases are resolved and merge
// keys expanded; both count toward maxDepth, which also stops alias cycles.
// Expansion that produces more than yamlValueBudget values per parsed node
// fails with ErrTooLarge.
func DecodeYAML(text string, maxDepth int) (Value, error) {
	var node yaml.Node
	dec := yaml.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&node); err != nil {
		if errors.Is(err, io.EOF) {
			return Null(), nil
		}
		return Value{}, fmt.Errorf("YAML syntax: %w", err)
	}
	d := &yamlDecoder{
		maxDepth: maxDepth,
		budget:   yamlValueBudget * countNodes(&node),
	}
	return d.value(&node, 0)
}

// yamlDecoder converts a node tree into a Value while bounding depth and the
// total number of values produced.
type yamlDecoder struct {
	maxDepth int
	budget   int
	produced int
}

// countNodes counts the nodes of the tree as parsed, without following aliases.
func countNodes(n *yaml.Node) int {
	total := 1
	for _, c := range n.Content {
		total += countNodes(c)
	}
	return total
}

func (d *yamlDecoder) value(n *yaml.Node, depth int) (Value, error) {
	if depth > d.maxDepth {
		return Value{}, fmt.Errorf("%w: more than %d levels", ErrTooDeep, d.maxDepth)
	}
	d.produced++
	if d.produced > d.budget {
		return Value{}, fmt.Errorf("%w: alias expansion exceeds %d values", ErrTooLarge, d.budget)
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return d.value(n.Content[0], depth)
	case yaml.AliasNode:
		return d.value(n.Alias, depth+1)
	case yaml.ScalarNode:
		if n.ShortTag() == tagNull {
			return Null(), nil
		}
		return Scalar(n.Value), nil
	case yaml.SequenceNode:
		arr := Value{Kind: KindArray}
		for _, c := range n.Content {
			item, err := d.value(c, depth+1)
			if err != nil {
				return Value{}, err
			}
			arr.Items = append(arr.Items, item)
		}
		return arr, nil
	case yaml.MappingNode:
		obj := Value{Kind: KindObject}
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.ShortTag() == tagMerge {
				merged, err := d.merge(v, depth+1)
				if err != nil {
					return Value{}, err
				}
				obj.Fields = append(obj.Fields, merged...)
				continue
			}
			child, err := d.value(v, depth+1)
			if err != nil {
				return Value{}, err
			}
			obj.Fields = append(obj.Fields, Field{Name: yamlKey(k), Value: child})
		}
		return obj, nil
	default:
		return Null(), nil
	}
}

// merge returns the fields contributed by a "<<" value: a mapping, an
// alias to one, or a sequence of those.
func (d *yamlDecoder) merge(n *yaml.Node, depth int) ([]Field, error) {
	if n.Kind == yaml.SequenceNode {
		var fields []Field
		for _, c := range n.Content {
			f, err := d.merge(c, depth+1)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f...)
		}
		return fields, nil
	}
	v, err := d.value(n, depth)
	if err != nil {
		return nil, err
	}
	if v.Kind != KindObject {
		return nil, fmt.Errorf("YAML merge value at line %d is not a mapping", n.Line)
	}
	return v.Fields, nil
}

// yamlKey renders a mapping key. Complex keys fall back to their marshalled YAML form.
func yamlKey(k *yaml.Node) string {
	if k.Kind == yaml.AliasNode && k.Alias != nil {
		k = k.Alias
	}
	if k.Kind == yaml.ScalarNode {
		if k.ShortTag() == tagNull {
			return "null"
		}
		return k.Value
	}
	out, err := yaml.Marshal(k)
	if err != nil {
		return fmt.Sprintf("line%d", k.Line)
	}
	return strings.TrimSpace(string(out))
}
