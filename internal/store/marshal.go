package store

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/roach88/profilegen/internal/engine"
	"github.com/roach88/profilegen/internal/fieldspec"
	"github.com/roach88/profilegen/internal/ir"
)

// marshalFields converts field names to canonical JSON TEXT.
func marshalFields(names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	data, err := ir.MarshalCanonical(names)
	if err != nil {
		return "", errors.Wrap(err, "marshal fields")
	}
	return string(data), nil
}

func unmarshalFields(data string) ([]string, error) {
	var names []string
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return nil, errors.Wrap(err, "unmarshal fields")
	}
	return names, nil
}

// marshalSettings converts engine settings to JSON TEXT. Settings is a
// struct, so field order is fixed by its declaration.
func marshalSettings(s engine.Settings) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", errors.Wrap(err, "marshal settings")
	}
	return string(data), nil
}

func unmarshalSettings(data string) (engine.Settings, error) {
	var s engine.Settings
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return engine.Settings{}, errors.Wrap(err, "unmarshal settings")
	}
	return s, nil
}

// marshalRowSpec returns the canonical JSON description of rs and its
// content hash.
func marshalRowSpec(rs fieldspec.RowSpec) (spec, hash string, err error) {
	desc := rs.Describe()
	data, err := ir.MarshalCanonical(desc)
	if err != nil {
		return "", "", errors.Wrap(err, "marshal row spec")
	}
	hash, err = ir.RowSpecHash(desc)
	if err != nil {
		return "", "", err
	}
	return string(data), hash, nil
}

// marshalRow returns the canonical JSON TEXT of row and its content hash.
func marshalRow(row ir.Row) (data, hash string, err error) {
	raw, err := ir.MarshalCanonical(map[string]ir.Value(row))
	if err != nil {
		return "", "", errors.Wrap(err, "marshal row")
	}
	hash, err = ir.RowHash(row)
	if err != nil {
		return "", "", err
	}
	return string(raw), hash, nil
}

// unmarshalRow parses canonical JSON TEXT into a Row. Numbers come back as
// Decimals; datetimes come back as their RFC 3339 strings.
func unmarshalRow(data string) (ir.Row, error) {
	var row ir.Row
	if err := json.Unmarshal([]byte(data), &row); err != nil {
		return nil, errors.Wrap(err, "unmarshal row")
	}
	return row, nil
}
