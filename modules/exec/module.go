// Package exec provides the "exec" step, which runs an external tool as an
// opaque subprocess.
//
// The step reads two values:
//
//	tool = "java"
//	args = "-jar {decompiler} --in {input} --out {output}"
//
// args is split with shell quoting rules and every "{name}" placeholder is
// substituted. Known placeholders are input, output, version, side,
// distribution, key, every step value and every specification extra.
package exec

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	osexec "os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/shlex"
	"github.com/specialistvlad/gamepipe/internal/ctxlog"
	"github.com/specialistvlad/gamepipe/internal/handlers"
	"github.com/specialistvlad/gamepipe/internal/pipeline"
)

// Runner starts a subprocess and waits for it.
type Runner interface {
	Run(ctx context.Context, dir, tool string, args []string) error
}

// OSRunner runs tools with os/exec.
type OSRunner struct{}

func (OSRunner) Run(ctx context.Context, dir, tool string, args []string) error {
	cmd := osexec.CommandContext(ctx, tool, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w\n%s", tool, err, tail(out.String(), 2048))
	}
	ctxlog.FromContext(ctx).Debug("Tool finished.", "tool", tool, "output", tail(out.String(), 512))
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// Module implements the handlers.Module interface for this package.
type Module struct {
	// Runner defaults to OSRunner.
	Runner Runner
}

func (m *Module) runner() Runner {
	if m.Runner == nil {
		return OSRunner{}
	}
	return m.Runner
}

// Step returns the exec handler bound to the module's runner.
func (m *Module) Step() pipeline.StepFunc {
	runner := m.runner()
	return func(ctx context.Context, inv *pipeline.Invocation) error {
		tool := inv.Values["tool"]
		if tool == "" {
			return fmt.Errorf("exec step %q requires a %q value", inv.Step.Name, "tool")
		}
		args, err := ExpandArgs(inv.Values["args"], Placeholders(inv))
		if err != nil {
			return fmt.Errorf("exec step %q: %w", inv.Step.Name, err)
		}
		ctxlog.FromContext(ctx).Debug("Running tool.", "tool", tool, "args", args)
		return runner.Run(ctx, filepath.Dir(inv.Output), tool, args)
	}
}

// Register registers the handler with the engine.
func (m *Module) Register(h *handlers.Handlers) {
	h.Register("exec", m.Step())
}

// Placeholders returns the substitution table for inv. Input and output
// always win over values of the same name.
func Placeholders(inv *pipeline.Invocation) map[string]string {
	vars := map[string]string{
		"version":      inv.Spec.Version(),
		"side":         inv.Spec.Side().String(),
		"distribution": inv.Spec.Distribution(),
		"key":          inv.Spec.ShortKey(),
	}
	maps.Copy(vars, inv.Spec.Extras())
	maps.Copy(vars, inv.Values)
	delete(vars, "args")
	vars["input"] = inv.Input
	vars["output"] = inv.Output
	return vars
}

var placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)

// ExpandArgs splits template into arguments and substitutes placeholders.
// An unknown placeholder is an error.
func ExpandArgs(template string, vars map[string]string) ([]string, error) {
	parts, err := shlex.Split(template)
	if err != nil {
		return nil, fmt.Errorf("parsing args %q: %w", template, err)
	}
	var missing []string
	for i, p := range parts {
		parts[i] = placeholderPattern.ReplaceAllStringFunc(p, func(m string) string {
			name := m[1 : len(m)-1]
			v, ok := vars[name]
			if !ok {
				missing = append(missing, name)
				return m
			}
			return v
		})
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unknown placeholders in args: %s", strings.Join(missing, ", "))
	}
	return parts, nil
}
