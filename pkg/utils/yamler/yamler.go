// Package yamler builds yaml.Node trees, to write commented YAML documents.
package yamler

import (
	"bytes"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Option func(*yaml.Node) *yaml.Node

func WithStyle(s yaml.Style) Option {
	return func(n *yaml.Node) *yaml.Node {
		n.Style |= s
		return n
	}
}

// Flow is WithStyle(yaml.FlowStyle).
func Flow() Option {
	return WithStyle(yaml.FlowStyle)
}

func WithHeadComment(comment string) Option {
	return func(n *yaml.Node) *yaml.Node {
		n.HeadComment = comment
		return n
	}
}

func WithLineComment(comment string) Option {
	return func(n *yaml.Node) *yaml.Node {
		n.LineComment = comment
		return n
	}
}

func apply(n *yaml.Node, options []Option) *yaml.Node {
	for _, opt := range options {
		n = opt(n)
	}
	return n
}

func Text(value string, options ...Option) *yaml.Node {
	return apply(&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}, options)
}

func Bool(b bool, options ...Option) *yaml.Node {
	return apply(&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}, options)
}

type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func Number[N Numeric](n N, options ...Option) *yaml.Node {
	return apply(&yaml.Node{Kind: yaml.ScalarNode, Value: fmt.Sprint(n)}, options)
}

func Null() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

func Seq(items []*yaml.Node, options ...Option) *yaml.Node {
	return apply(&yaml.Node{Kind: yaml.SequenceNode, Content: items}, options)
}

// Texts is a sequence of text scalars.
func Texts(items []string, options ...Option) *yaml.Node {
	nodes := make([]*yaml.Node, len(items))
	for i := range items {
		nodes[i] = Text(items[i])
	}
	return Seq(nodes, options...)
}

type MapEntry struct {
	Key   *yaml.Node
	Value *yaml.Node
}

// Entry is a mapping entry with text key.
//
// Options are applied to the key node, so comments are placed on the key.
func Entry(key string, v *yaml.Node, options ...Option) MapEntry {
	return MapEntry{Key: Text(key, options...), Value: v}
}

func Map(entries []MapEntry, options ...Option) *yaml.Node {
	content := make([]*yaml.Node, 0, len(entries)*2)
	for _, e := range entries {
		content = append(content, e.Key, e.Value)
	}
	return apply(&yaml.Node{Kind: yaml.MappingNode, Content: content}, options)
}

// Encode writes n as YAML document, indented with 2 spaces.
func Encode(n *yaml.Node) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
