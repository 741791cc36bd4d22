package ir

import (
	"fmt"
	"slices"
	"strings"
)

// Field is an identity-comparable handle to one named column of the output
// schema. Fields are declared once per profile and used as map keys.
type Field struct {
	Name string `json:"name"`
}

// NewField creates a Field.
func NewField(name string) Field {
	return Field{Name: name}
}

func (f Field) String() string {
	return f.Name
}

// ProfileFields is the ordered field schema of a profile.
type ProfileFields []Field

// NewProfileFields creates a schema from field names, preserving order.
func NewProfileFields(names ...string) ProfileFields {
	fields := make(ProfileFields, len(names))
	for i, n := range names {
		fields[i] = NewField(n)
	}
	return fields
}

// Contains reports whether the schema declares f.
func (p ProfileFields) Contains(f Field) bool {
	return slices.Contains(p, f)
}

// Index returns the declaration position of f, or -1.
func (p ProfileFields) Index(f Field) int {
	return slices.Index(p, f)
}

// Names returns the field names in declaration order.
func (p ProfileFields) Names() []string {
	names := make([]string, len(p))
	for i, f := range p {
		names[i] = f.Name
	}
	return names
}

// Subset returns the fields of p that are in keep, in p's order.
func (p ProfileFields) Subset(keep func(Field) bool) ProfileFields {
	out := make(ProfileFields, 0, len(p))
	for _, f := range p {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

func (p ProfileFields) String() string {
	return "[" + strings.Join(p.Names(), ", ") + "]"
}

// DataType is one of the base types a field value can take.
type DataType string

const (
	TypeNumeric  DataType = "numeric"
	TypeString   DataType = "string"
	TypeDateTime DataType = "datetime"
)

// AllDataTypes returns every base type in a stable order.
func AllDataTypes() []DataType {
	return []DataType{TypeNumeric, TypeString, TypeDateTime}
}

// ParseDataType parses a profile type name.
func ParseDataType(s string) (DataType, error) {
	switch DataType(strings.ToLower(s)) {
	case TypeNumeric:
		return TypeNumeric, nil
	case TypeString:
		return TypeString, nil
	case TypeDateTime, "temporal":
		return TypeDateTime, nil
	default:
		return "", fmt.Errorf("unknown data type %q: must be one of numeric, string, datetime", s)
	}
}
