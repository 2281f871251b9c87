package batch

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/opst/alrun/pkg/domain"
	"github.com/opst/alrun/pkg/domain/node"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/sets"
)

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// absent tells the node is missing or null.
//
// A yaml.Node field which has no key in the document is left zero, whose Kind is 0.
func absent(n *yaml.Node) bool {
	n = resolve(n)
	return n == nil || n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

// variantOf returns name of the variant which n describes.
//
// The node is a mapping with "name" key, or just a scalar of the name.
func variantOf(n *yaml.Node) (string, error) {
	n = resolve(n)
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Value, nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == node.NameKey {
				return n.Content[i+1].Value, nil
			}
		}
		return "", domain.NewConfigError(domain.ErrOutOfRange, node.NameKey, nil, "required")
	default:
		return "", domain.NewConfigError(
			domain.ErrUnsupportedValue, "", nil,
			fmt.Sprintf("line %d: should be a name or a mapping", n.Line),
		)
	}
}

// decodeInto decodes mapping n into out, which is a pointer to struct with yaml tags.
//
// Keys which are not in the struct (except "name") are rejected.
// A scalar node is a variant without any fields, and out is left as it is.
func decodeInto(n *yaml.Node, out any) error {
	n = resolve(n)
	if n.Kind == yaml.ScalarNode {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return domain.NewConfigError(
			domain.ErrUnsupportedValue, "", nil, fmt.Sprintf("line %d: should be a mapping", n.Line),
		)
	}

	allowed := sets.New(node.NameKey)
	t := reflect.TypeOf(out).Elem()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("yaml"), ",")[0]
		if tag != "" && tag != "-" {
			allowed.Insert(tag)
		}
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if k := n.Content[i].Value; !allowed.Has(k) {
			return domain.NewConfigError(
				domain.ErrUnsupportedValue, k, nil,
				fmt.Sprintf("line %d: unknown key. supported keys are %s", n.Content[i].Line, strings.Join(sets.List(allowed), ", ")),
			)
		}
	}

	if err := n.Decode(out); err != nil {
		return domain.NewConfigError(domain.ErrUnsupportedValue, "", nil, err.Error())
	}
	return nil
}

// required returns error if n is absent.
func required(field string, n *yaml.Node) error {
	if absent(n) {
		return domain.NewConfigError(domain.ErrOutOfRange, field, nil, "required")
	}
	return nil
}
