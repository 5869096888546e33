package provenance

import (
	"github.com/specialistvlad/gamepipe/internal/dependency"
	"github.com/specialistvlad/gamepipe/internal/pipeline"
)

// Node is an opaque build-graph node supplied by the host. Nodes must be
// comparable; identity is Go equality.
type Node any

// Kind classifies a node for traversal.
type Kind int

const (
	// KindOther nodes end their branch.
	KindOther Kind = iota
	// KindPipeline nodes are pipeline outputs; Graph.Instance names the pipeline.
	KindPipeline
	// KindCompiled nodes expand to their upstream dependencies.
	KindCompiled
	// KindSourceSet nodes expand to their compile classpath. Their result is
	// memoized by the resolver.
	KindSourceSet
	// KindSourceDirectory nodes expand to the source sets that own them.
	KindSourceDirectory
	// KindDeclarations nodes hold library declarations; only declarations
	// equal to a pipeline's replaced dependency are followed.
	KindDeclarations
	// KindContainer nodes expand to their members.
	KindContainer
)

func (k Kind) String() string {
	switch k {
	case KindPipeline:
		return "pipeline"
	case KindCompiled:
		return "compiled"
	case KindSourceSet:
		return "source set"
	case KindSourceDirectory:
		return "source directory"
	case KindDeclarations:
		return "declarations"
	case KindContainer:
		return "container"
	default:
		return "other"
	}
}

// Graph is the read-only view of the host build graph.
type Graph interface {
	Kind(n Node) Kind
	Expand(n Node) []Node
	// Instance returns the pipeline behind a KindPipeline node.
	Instance(n Node) *pipeline.Instance
	// Declarations returns the dependencies declared by a KindDeclarations node.
	Declarations(n Node) []dependency.Dependency
	// Scope names the consumer that owns a KindDeclarations node. Only
	// instances registered for that scope can satisfy its declarations.
	Scope(n Node) string
	// Name is used in error messages.
	Name(n Node) string
}

// Candidates supplies, per consumer scope, the instances whose replaced
// dependencies are matched against declarations.
type Candidates interface {
	Instances(scope string) []*pipeline.Instance
}

// StaticNode is a node of StaticGraph.
type StaticNode struct {
	Label        string
	Kind         Kind
	Edges        []*StaticNode
	Instance     *pipeline.Instance
	Declarations []dependency.Dependency
	Scope        string
}

// StaticGraph is a Graph over in-memory StaticNode values. Any other node
// type is KindOther.
type StaticGraph struct{}

func (StaticGraph) Kind(n Node) Kind {
	if s, ok := n.(*StaticNode); ok && s != nil {
		return s.Kind
	}
	return KindOther
}

func (StaticGraph) Expand(n Node) []Node {
	s, ok := n.(*StaticNode)
	if !ok || s == nil {
		return nil
	}
	out := make([]Node, len(s.Edges))
	for i, e := range s.Edges {
		out[i] = e
	}
	return out
}

func (StaticGraph) Instance(n Node) *pipeline.Instance {
	if s, ok := n.(*StaticNode); ok && s != nil {
		return s.Instance
	}
	return nil
}

func (StaticGraph) Declarations(n Node) []dependency.Dependency {
	if s, ok := n.(*StaticNode); ok && s != nil {
		return s.Declarations
	}
	return nil
}

func (StaticGraph) Scope(n Node) string {
	if s, ok := n.(*StaticNode); ok && s != nil {
		return s.Scope
	}
	return ""
}

func (StaticGraph) Name(n Node) string {
	if s, ok := n.(*StaticNode); ok && s != nil {
		return s.Label
	}
	return "<unknown node>"
}
