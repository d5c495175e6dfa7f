// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"strconv"

	"github.com/pdiddy/knowledge-importer/pkg/types"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindScalar
	KindObject
	KindArray
)

// Field is one member of an object Value. Fields keep source order, so
// duplicate names survive decoding.
type Field struct {
	Name  string
	Value Value
}

// Value is the dynamic tree that JSON and YAML documents decode into before
// flattening. Scalars are kept as their display text.
type Value struct {
	Kind   Kind
	Scalar string
	Fields []Field
	Items  []Value
}

// Null, Scalar, Object and Array build Values.
func Null() Value                  { return Value{Kind: KindNull} }
func Scalar(s string) Value        { return Value{Kind: KindScalar, Scalar: s} }
func Object(fields ...Field) Value { return Value{Kind: KindObject, Fields: fields} }
func Array(items ...Value) Value   { return Value{Kind: KindArray, Items: items} }

// String returns the scalar text; null is the empty string.
func (v Value) String() string {
	if v.Kind == KindScalar {
		return v.Scalar
	}
	return ""
}

// Flatten walks v depth-first and returns one pair per leaf. Object members
// extend the path with ".name", array items with "[i]". An empty object or
// array contributes nothing. Depth is bounded by the decoders, which reject
// input deeper than the configured limit before flattening starts.
func Flatten(v Value, prefix string) []types.KVPair {
	var out []types.KVPair
	flattenInto(&out, v, prefix)
	return out
}

func flattenInto(out *[]types.KVPair, v Value, prefix string) {
	switch v.Kind {
	case KindObject:
		for _, f := range v.Fields {
			key := f.Name
			if prefix != "" {
				key = prefix + "." + f.Name
			}
			flattenInto(out, f.Value, key)
		}
	case KindArray:
		for i, item := range v.Items {
			flattenInto(out, item, prefix+"["+strconv.Itoa(i)+"]")
		}
	default:
		*out = append(*out, types.KVPair{Key: prefix, Value: v.String()})
	}
}

// entrySections turns the items of a top-level sequence into one level-2
// section each, titled "{Entry} {n}: {first value}" (or the index when the
// item flattens to nothing).
func entrySections(items []Value, labels Labels) []types.Section {
	sections := make([]types.Section, 0, len(items))
	for i, item := range items {
		n := strconv.Itoa(i + 1)
		kv := Flatten(item, "")
		first := n
		if len(kv) > 0 {
			first = kv[0].Value
		}
		sections = append(sections, types.Section{
			Level:   2,
			Title:   labels.Entry + " " + n + ": " + first,
			KVPairs: kv,
		})
	}
	return sections
}
