// Package node defines configuration entities and their canonical forms.
//
// Every configuration entity is a Node: it has a name (its identity) and an ordered list of fields.
// From a Node, this package derives
//
//   - Projection: nested, ordered key-value view of the node tree.
//   - Document: JSON rendering of Projection, with sorted keys and 4-spaces indent.
//   - Flatten / Identity: flat, deterministic "key=value ..." string used to name directories.
//
// Two node trees with same variants and same field values always have byte-identical
// Document and Identity.
package node

// NameKey is the key where a Node puts its name in Projection.
const NameKey = "name"

// MaxLength is the ceiling of names derived from Identity, for filesystem path limits.
const MaxLength = 100

// Field is a named value of Node.
//
// Value should be one of:
//
//   - nil: the field is unset. It does not appear in any outputs.
//   - bool, int, int64, float64, string
//   - Node
//   - []any, where each item is a valid Value other than nil. Use SeqOf to build.
type Field struct {
	Key   string
	Value any

	// Meta fields are recorded in Document, but excluded from Identity.
	//
	// They are orchestration metadata rather than a part of the entity itself.
	Meta bool

	// When Collapse is true and Value is a sequence of Nodes which are all equal,
	// the sequence is represented by its first item.
	Collapse bool
}

// Node is a configuration entity.
type Node interface {
	// Name is the identity of the node.
	Name() string

	// Named tells Name should be written in Projection.
	//
	// Value objects (like version space) return false.
	// Their fields are embedded into the parent without their own name.
	Named() bool

	// Fields of the node, in declared order.
	Fields() []Field
}

// Set is shorthand of Field{Key: key, Value: value}.
func Set(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Meta is shorthand of Field{Key: key, Value: value, Meta: true}.
func Meta(key string, value any) Field {
	return Field{Key: key, Value: value, Meta: true}
}

// SeqOf converts []T into []any, to be a Field value.
func SeqOf[T any](items []T) []any {
	ret := make([]any, len(items))
	for i := range items {
		ret[i] = items[i]
	}
	return ret
}

// Label is Name followed by Identity.
//
// It is used where a node is referred without context, like a metric folder name.
func Label(n Node) string {
	id := Identity(n)
	if id == "" {
		return n.Name()
	}
	return n.Name() + " " + id
}

// Uniform tells all items are Node and equal each other.
//
// Empty sequence is not uniform.
func Uniform(items []any) bool {
	if len(items) == 0 {
		return false
	}
	first, ok := items[0].(Node)
	if !ok {
		return false
	}
	for _, it := range items[1:] {
		n, ok := it.(Node)
		if !ok || !Equal(first, n) {
			return false
		}
	}
	return true
}

// collapsed returns the representative item of the field, when it should be collapsed.
func collapsed(f Field) (Node, bool) {
	if !f.Collapse {
		return nil, false
	}
	items, ok := f.Value.([]any)
	if !ok || !Uniform(items) {
		return nil, false
	}
	return items[0].(Node), true
}

// Truncate cuts s to at most max characters.
//
// It is lossy: two different strings can be the same after truncation.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
