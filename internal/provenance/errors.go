package provenance

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/gamepipe/internal/pipeline"
)

// ProvenanceNotFoundError reports a node no pipeline produced.
type ProvenanceNotFoundError struct {
	Node string
}

func (e *ProvenanceNotFoundError) Error() string {
	return fmt.Sprintf("no pipeline produced %s", e.Node)
}

// AmbiguousProvenanceError reports a node reachable from more than one
// independent pipeline.
type AmbiguousProvenanceError struct {
	Node       string
	Candidates []*pipeline.Instance
}

func (e *AmbiguousProvenanceError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		names[i] = c.String()
	}
	return fmt.Sprintf("%s is produced by %d pipelines: %s", e.Node, len(e.Candidates), strings.Join(names, "; "))
}
