package pipeline

import (
	_ "crypto/sha256"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/hashicorp/go-multierror"
	"github.com/opencontainers/go-digest"
	"github.com/specialistvlad/gamepipe/internal/game"
)

// StepDefinition is one declared transformation step.
type StepDefinition struct {
	Name string `json:"name"`
	// Type selects the handler that runs the step.
	Type string `json:"type"`
	// Input is a literal path, a "{<step>Output}" reference, or empty for
	// the previous step's output.
	Input string `json:"input,omitempty"`
	// After attaches the step to run once the named step completes. Such a
	// step does not advance the chain.
	After    string            `json:"after,omitempty"`
	Optional bool              `json:"optional,omitempty"`
	Values   map[string]string `json:"values,omitempty"`
}

func (d StepDefinition) clone() StepDefinition {
	d.Values = maps.Clone(d.Values)
	return d
}

// Options are the fields of a Specification.
type Options struct {
	Version string
	Side    game.Side
	// Distribution names the artifact the pipeline publishes. It defaults to
	// the side name.
	Distribution string
	Steps        []StepDefinition
	Extras       map[string]string
	// Terminal step names. Empty values select the defaults: the raw
	// built-in, no sources, and the last chained step.
	RawStep      string
	SourcesStep  string
	CompiledStep string
}

// Specification is the immutable identity of a pipeline. Two specifications
// with equal fields have equal keys.
type Specification struct {
	version      string
	side         game.Side
	distribution string
	steps        []StepDefinition
	extras       map[string]string
	rawStep      string
	sourcesStep  string
	compiledStep string
	key          digest.Digest
}

// NewSpecification validates opts and builds a Specification. The version
// must already be resolved; "+" is rejected.
func NewSpecification(opts Options) (*Specification, error) {
	var errs *multierror.Error

	switch opts.Version {
	case "":
		errs = multierror.Append(errs, fmt.Errorf("version is required"))
	case game.LatestVersion:
		errs = multierror.Append(errs, fmt.Errorf("version %q must be resolved before building a specification", opts.Version))
	}
	if !opts.Side.Valid() {
		errs = multierror.Append(errs, fmt.Errorf("unknown side %q", opts.Side))
	}

	seen := make(map[string]bool, len(opts.Steps))
	for i, step := range opts.Steps {
		switch {
		case step.Name == "":
			errs = multierror.Append(errs, fmt.Errorf("step #%d has no name", i))
			continue
		case IsBuiltin(step.Name):
			errs = multierror.Append(errs, fmt.Errorf("step %q: name is reserved for a built-in step", step.Name))
		case seen[step.Name]:
			errs = multierror.Append(errs, fmt.Errorf("step %q is declared more than once", step.Name))
		}
		seen[step.Name] = true
		if step.Type == "" {
			errs = multierror.Append(errs, fmt.Errorf("step %q has no type", step.Name))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("invalid pipeline specification: %w", err)
	}

	s := &Specification{
		version:      opts.Version,
		side:         opts.Side,
		distribution: opts.Distribution,
		extras:       maps.Clone(opts.Extras),
		rawStep:      opts.RawStep,
		sourcesStep:  opts.SourcesStep,
		compiledStep: opts.CompiledStep,
	}
	if s.distribution == "" {
		s.distribution = opts.Side.String()
	}
	if s.extras == nil {
		s.extras = map[string]string{}
	}
	s.steps = make([]StepDefinition, len(opts.Steps))
	for i, step := range opts.Steps {
		s.steps[i] = step.clone()
	}

	key, err := s.computeKey()
	if err != nil {
		return nil, err
	}
	s.key = key
	return s, nil
}

// computeKey hashes the canonical JSON form. encoding/json sorts map keys,
// so equal fields always give equal bytes.
func (s *Specification) computeKey() (digest.Digest, error) {
	data, err := json.Marshal(struct {
		Version      string            `json:"version"`
		Side         game.Side         `json:"side"`
		Distribution string            `json:"distribution"`
		Steps        []StepDefinition  `json:"steps"`
		Extras       map[string]string `json:"extras"`
		Raw          string            `json:"raw"`
		Sources      string            `json:"sources"`
		Compiled     string            `json:"compiled"`
	}{s.version, s.side, s.distribution, s.steps, s.extras, s.rawStep, s.sourcesStep, s.compiledStep})
	if err != nil {
		return "", fmt.Errorf("encoding pipeline specification: %w", err)
	}
	return digest.FromBytes(data), nil
}

func (s *Specification) Version() string      { return s.version }
func (s *Specification) Side() game.Side      { return s.side }
func (s *Specification) Distribution() string { return s.distribution }
func (s *Specification) Key() digest.Digest   { return s.key }
func (s *Specification) RawStep() string      { return s.rawStep }
func (s *Specification) SourcesStep() string  { return s.sourcesStep }
func (s *Specification) CompiledStep() string { return s.compiledStep }

// Steps returns a copy of the declared steps in order.
func (s *Specification) Steps() []StepDefinition {
	out := make([]StepDefinition, len(s.steps))
	for i, step := range s.steps {
		out[i] = step.clone()
	}
	return out
}

// Extras returns a copy of the extra parameters.
func (s *Specification) Extras() map[string]string {
	return maps.Clone(s.extras)
}

// Extra returns a single extra parameter.
func (s *Specification) Extra(name string) (string, bool) {
	v, ok := s.extras[name]
	return v, ok
}

// Equal reports whether both specifications have the same identity.
func (s *Specification) Equal(o *Specification) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.key == o.key
}

// ShortKey is a filesystem-friendly prefix of the key.
func (s *Specification) ShortKey() string {
	return s.key.Encoded()[:12]
}

func (s *Specification) String() string {
	return fmt.Sprintf("%s/%s@%s", s.version, s.distribution, s.ShortKey())
}
