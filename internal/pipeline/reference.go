package pipeline

import (
	"regexp"

	"github.com/specialistvlad/gamepipe/internal/game"
)

// Built-in step names. They are bound to cache lookups and cannot be used as
// user step names.
const (
	BuiltinManifest       = "downloadManifest"
	BuiltinVersionJSON    = "downloadJson"
	BuiltinClient         = "downloadClient"
	BuiltinServer         = "downloadServer"
	BuiltinClientMappings = "downloadClientMappings"
	BuiltinServerMappings = "downloadServerMappings"
	BuiltinAssets         = "downloadAssets"
)

var builtins = []string{
	BuiltinManifest,
	BuiltinVersionJSON,
	BuiltinClient,
	BuiltinServer,
	BuiltinClientMappings,
	BuiltinServerMappings,
	BuiltinAssets,
}

var referencePattern = regexp.MustCompile(`^\{(\w+)Output\}$`)

// ParseReference extracts the step name from a "{<step>Output}" reference.
// Any other string is a literal path and yields false.
func ParseReference(s string) (string, bool) {
	m := referencePattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// OutputReference formats a reference to the output of step.
func OutputReference(step string) string {
	return "{" + step + "Output}"
}

// IsBuiltin reports whether name is reserved for a built-in step.
func IsBuiltin(name string) bool {
	for _, b := range builtins {
		if b == name {
			return true
		}
	}
	return false
}

// Builtins lists the reserved step names.
func Builtins() []string {
	return append([]string(nil), builtins...)
}

// RawBuiltin is the built-in step that downloads the binary of side.
func RawBuiltin(side game.Side) string {
	if side == game.Server {
		return BuiltinServer
	}
	return BuiltinClient
}

// MappingsBuiltin is the built-in step that downloads the mappings of side.
func MappingsBuiltin(side game.Side) string {
	if side == game.Server {
		return BuiltinServerMappings
	}
	return BuiltinClientMappings
}
