package methods

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

// BuildTableName derives the spatial table name for a resource id: strip
// everything that is not alphanumeric, prepend the prefix, lowercase, cap at
// 60 characters. An id that already carries the prefix is not prefixed again,
// so re-deriving from a previous result is a no-op.
func BuildTableName(resourceID string, prefix string) string {
	id := resourceID
	if prefix != "" && strings.HasPrefix(strings.ToLower(id), strings.ToLower(prefix)) {
		id = id[len(prefix):]
	}
	safe := nonAlnum.ReplaceAllString(id, "")
	if safe == "" {
		safe = "resource"
	}
	table := strings.ToLower(prefix + safe)
	if len(table) > 60 {
		table = table[:60]
	}
	return table
}
