package node

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/opst/alrun/pkg/utils/maps"
)

// Projection is a nested, ordered view of a node tree.
//
// Values are scalars, []any, or nested Projection.
type Projection = maps.Map[string, any]

// Project builds Projection of n.
//
// Unset fields are skipped. Nested nodes are projected recursively.
func Project(n Node) Projection {
	p := maps.NewOrderedMap[string, any]()
	if n.Named() {
		p.Set(NameKey, n.Name())
	}
	for _, f := range n.Fields() {
		if f.Value == nil {
			continue
		}
		if rep, ok := collapsed(f); ok {
			p.Set(f.Key, Project(rep))
			continue
		}
		p.Set(f.Key, project(f.Value))
	}
	return p
}

func project(v any) any {
	switch vv := v.(type) {
	case Node:
		return Project(vv)
	case []any:
		ret := make([]any, len(vv))
		for i := range vv {
			ret[i] = project(vv[i])
		}
		return ret
	default:
		return v
	}
}

// plain converts Projection into builtin maps and slices, for encoding.
func plain(v any) any {
	switch vv := v.(type) {
	case Projection:
		m := make(map[string]any, vv.Len())
		for k, v := range vv.Iter() {
			m[k] = plain(v)
		}
		return m
	case []any:
		ret := make([]any, len(vv))
		for i := range vv {
			ret[i] = plain(vv[i])
		}
		return ret
	default:
		return v
	}
}

// Document renders n as JSON.
//
// Keys are sorted and indented with 4 spaces. NaN and Inf are rejected.
func Document(n Node) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(plain(Project(n))); err != nil {
		return nil, fmt.Errorf("%s: %w", n.Name(), err)
	}
	return buf.Bytes(), nil
}

// Equal tells a and b have the same Document.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	da, erra := Document(a)
	db, errb := Document(b)
	if erra != nil || errb != nil {
		return false
	}
	return bytes.Equal(da, db)
}

// Flatten builds flat key-value view of n.
//
// Walking the tree in declared order,
//
//   - a nested node puts its name as the value of the parent key (when it is Named),
//     and its fields are merged into the flat view.
//   - a key appearing twice keeps its first position and takes the last value.
//   - Meta fields (and the subtree under them) are skipped.
//   - the name of n itself is not included.
func Flatten(n Node) maps.Map[string, string] {
	out := maps.NewOrderedMap[string, string]()
	flattenInto(n, out)
	return out
}

func flattenInto(n Node, out maps.Map[string, string]) {
	for _, f := range n.Fields() {
		if f.Value == nil || f.Meta {
			continue
		}
		if rep, ok := collapsed(f); ok {
			flattenChild(f.Key, rep, out)
			continue
		}
		switch v := f.Value.(type) {
		case Node:
			flattenChild(f.Key, v, out)
		case []any:
			out.Set(f.Key, renderSeq(v))
		default:
			out.Set(f.Key, render(v))
		}
	}
}

func flattenChild(key string, child Node, out maps.Map[string, string]) {
	if child.Named() {
		out.Set(key, child.Name())
	}
	flattenInto(child, out)
}

// Identity is the flat, deterministic string form of n: "key=value key=value ...".
func Identity(n Node) string {
	flat := Flatten(n)
	pairs := make([]string, 0, flat.Len())
	for k, v := range flat.Iter() {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, " ")
}

func render(v any) string {
	switch vv := v.(type) {
	case string:
		return vv
	case bool:
		return strconv.FormatBool(vv)
	case int:
		return strconv.Itoa(vv)
	case int64:
		return strconv.FormatInt(vv, 10)
	case float64:
		return strconv.FormatFloat(vv, 'g', -1, 64)
	case Node:
		return "(" + Label(vv) + ")"
	case []any:
		return "(" + renderSeq(vv) + ")"
	default:
		return fmt.Sprint(vv)
	}
}

func renderSeq(items []any) string {
	ss := make([]string, len(items))
	for i := range items {
		ss[i] = render(items[i])
	}
	return strings.Join(ss, ",")
}
