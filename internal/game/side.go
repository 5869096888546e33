// Package game holds the small vocabulary shared by every layer that deals
// with the distributed game artifacts: sides, artifact names and the
// reserved dependency namespace.
package game

import (
	"fmt"
	"strings"
)

// Group is the reserved dependency group that identifies the game itself.
const Group = "net.minecraft"

// LatestVersion is the version token that resolves to the first entry of the
// launcher manifest.
const LatestVersion = "+"

// Side identifies one half of the client/server artifact pair.
type Side string

const (
	Client Side = "client"
	Server Side = "server"
)

// Sides lists every known side in a stable order.
var Sides = []Side{Client, Server}

// ParseSide converts a case-insensitive side name into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case Client:
		return Client, nil
	case Server:
		return Server, nil
	default:
		return "", fmt.Errorf("unknown side %q: must be 'client' or 'server'", s)
	}
}

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	return s == Client || s == Server
}

func (s Side) String() string {
	return string(s)
}

// Artifact is the key of the side's binary in the version metadata downloads.
func (s Side) Artifact() string {
	return string(s)
}

// MappingsArtifact is the key of the side's mappings in the version metadata downloads.
func (s Side) MappingsArtifact() string {
	return string(s) + "_mappings"
}
