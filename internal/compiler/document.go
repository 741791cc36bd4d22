package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"gopkg.in/yaml.v3"

	"github.com/roach88/profilegen/internal/ir"
)

// Documents are decoded into a neutral tree of map[string]any, []any,
// string, bool, nil and ir.Decimal so that YAML and CUE profiles share one
// compiler. Numbers never pass through float64.

// DecodeYAML parses a YAML profile document.
func DecodeYAML(data []byte) (map[string]any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &CompileError{Field: "yaml", Message: err.Error()}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, &CompileError{Field: "yaml", Message: "empty document"}
	}
	v, err := yamlValue(root.Content[0], "")
	if err != nil {
		return nil, err
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, &CompileError{Field: "yaml", Message: "profile must be a mapping"}
	}
	return doc, nil
}

func yamlValue(n *yaml.Node, path string) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return yamlValue(n.Alias, path)

	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			v, err := yamlValue(n.Content[i+1], joinPath(path, key))
			if err != nil {
				return nil, err
			}
			m[key] = v
		}
		return m, nil

	case yaml.SequenceNode:
		out := make([]any, len(n.Content))
		for i, c := range n.Content {
			v, err := yamlValue(c, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return nil, nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return nil, yamlError(n, path, err.Error())
			}
			return b, nil
		case "!!int", "!!float":
			d, err := ir.NewDecimal(n.Value)
			if err != nil {
				return nil, yamlError(n, path, err.Error())
			}
			return d, nil
		default:
			return n.Value, nil
		}
	}
	return nil, yamlError(n, path, "unsupported YAML node")
}

func yamlError(n *yaml.Node, path, msg string) error {
	return &CompileError{Field: path, Message: fmt.Sprintf("line %d: %s", n.Line, msg)}
}

// DecodeCUE converts a concrete CUE value into a profile document.
func DecodeCUE(v cue.Value) (map[string]any, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	out, err := cueValue(v, "")
	if err != nil {
		return nil, err
	}
	doc, ok := out.(map[string]any)
	if !ok {
		return nil, &CompileError{Field: "cue", Message: "profile must be a struct", Pos: v.Pos()}
	}
	return doc, nil
}

func cueValue(v cue.Value, path string) (any, error) {
	v, _ = v.Default()
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil

	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return b, nil

	case cue.IntKind, cue.FloatKind:
		// MarshalJSON keeps the exact decimal text.
		text, err := v.MarshalJSON()
		if err != nil {
			return nil, formatCUEError(err)
		}
		d, err := ir.NewDecimal(string(text))
		if err != nil {
			return nil, &CompileError{Field: path, Message: err.Error(), Pos: v.Pos()}
		}
		return d, nil

	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return s, nil

	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := []any{}
		for i := 0; iter.Next(); i++ {
			elem, err := cueValue(iter.Value(), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil

	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		m := map[string]any{}
		for iter.Next() {
			label := iter.Selector().Unquoted()
			elem, err := cueValue(iter.Value(), joinPath(path, label))
			if err != nil {
				return nil, err
			}
			m[label] = elem
		}
		return m, nil

	default:
		return nil, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("value must be concrete, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
