package methods

import (
	"fmt"
	"regexp"
)

var safeName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SafeIdentifier validates a schema/table/index name before it is spliced
// into SQL text. Everything that builds SQL goes through here; values other
// than identifiers are always bound parameters.
func SafeIdentifier(value string, kind string) (string, error) {
	if value == "" || !safeName.MatchString(value) {
		return "", fmt.Errorf("%w: bad %s name %q", ErrInvalidIdentifier, kind, value)
	}
	return value, nil
}

// BuildFullTable returns schema.table, or just table when schema is empty,
// sanitizing each part first.
func BuildFullTable(schema string, table string) (string, error) {
	table, err := SafeIdentifier(table, "table")
	if err != nil {
		return "", err
	}
	if schema == "" {
		return table, nil
	}
	schema, err = SafeIdentifier(schema, "schema")
	if err != nil {
		return "", err
	}
	return schema + "." + table, nil
}
