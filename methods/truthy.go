package methods

import "strings"

// AsBool reads the truthy spellings used in resource attributes.
func AsBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
