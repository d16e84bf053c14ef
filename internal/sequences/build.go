package sequences

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/opencode-ai/taskutils/internal/sequence"
	"github.com/opencode-ai/taskutils/internal/timer"
)

// ActionResolver turns an action name and rendered arguments into an action.
type ActionResolver interface {
	Resolve(name string, args map[string]string) (sequence.Action, error)
}

// BuildOptions controls how a definition becomes a sequence.
type BuildOptions struct {
	// Vars are user supplied variable values.
	Vars map[string]string

	// Resolver resolves action steps. Required when the definition has any.
	Resolver ActionResolver

	// Wrap, when set, decorates every resolved action.
	Wrap func(name string, action sequence.Action) sequence.Action
}

// ResolveVars merges vars with the definition's defaults and checks that
// every required variable has a value.
func ResolveVars(def *Definition, vars map[string]string) (map[string]string, error) {
	if def == nil {
		return nil, fmt.Errorf("sequence is required")
	}

	data := make(map[string]string, len(vars))
	for key, value := range vars {
		data[key] = value
	}

	for _, variable := range def.Variables {
		if strings.TrimSpace(data[variable.Name]) != "" {
			continue
		}
		if variable.Default != "" {
			data[variable.Name] = variable.Default
			continue
		}
		if variable.Required {
			return nil, fmt.Errorf("missing required variable %q", variable.Name)
		}
	}

	return data, nil
}

// Build compiles def into a sequence bound to gw. Bulk steps are expanded
// with AddBulk, so a bulk of n repeats its block n times in order.
func Build(gw timer.Gateway, def *Definition, opts BuildOptions) (*sequence.Sequence, error) {
	data, err := ResolveVars(def, opts.Vars)
	if err != nil {
		return nil, err
	}

	b := &builder{name: def.Name, data: data, opts: opts}
	instructions, err := b.compile(def.Steps, "")
	if err != nil {
		return nil, err
	}

	return sequence.New(gw).Add(instructions...), nil
}

type builder struct {
	name string
	data map[string]string
	opts BuildOptions
}

func (b *builder) compile(steps []Step, prefix string) ([]sequence.Instruction, error) {
	// Scratch sequences are never executed, so they need no gateway.
	scratch := sequence.New(nil)

	for i, step := range steps {
		label := fmt.Sprintf("%s%d", prefix, i+1)

		switch step.Type {
		case StepTypeAction:
			action, err := b.resolve(step)
			if err != nil {
				return nil, fmt.Errorf("build sequence %q step %s: %w", b.name, label, err)
			}
			scratch.AddVoid(action)

		case StepTypeWait:
			duration, err := parseWait(step.Duration)
			if err != nil {
				return nil, fmt.Errorf("build sequence %q step %s: %w", b.name, label, err)
			}
			scratch.AddDelay(duration)

		case StepTypeMode:
			if step.Async == nil {
				return nil, fmt.Errorf("build sequence %q step %s: mode async is required", b.name, label)
			}
			scratch.SetAsync(*step.Async)

		case StepTypeBulk:
			block, err := b.compile(step.Steps, label+".")
			if err != nil {
				return nil, err
			}
			scratch.AddBulk(block, step.Times)

		default:
			return nil, fmt.Errorf("build sequence %q step %s: unknown step type %q", b.name, label, step.Type)
		}
	}

	return scratch.Instructions(), nil
}

func (b *builder) resolve(step Step) (sequence.Action, error) {
	if b.opts.Resolver == nil {
		return nil, fmt.Errorf("no action resolver for %q", step.Action)
	}

	args := make(map[string]string, len(step.Args))
	for key, value := range step.Args {
		rendered, err := renderText(b.name, value, b.data)
		if err != nil {
			return nil, fmt.Errorf("arg %s: %w", key, err)
		}
		args[key] = rendered
	}

	action, err := b.opts.Resolver.Resolve(step.Action, args)
	if err != nil {
		return nil, err
	}
	if b.opts.Wrap != nil {
		action = b.opts.Wrap(step.Action, action)
	}
	return action, nil
}

func renderText(name, content string, data map[string]string) (string, error) {
	parsed, err := template.New(name).
		Funcs(template.FuncMap{"default": defaultValue}).
		Option("missingkey=zero").
		Parse(content)
	if err != nil {
		return "", fmt.Errorf("parse template %q: %w", name, err)
	}

	var out strings.Builder
	if err := parsed.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render template %q: %w", name, err)
	}

	return out.String(), nil
}

func defaultValue(def string, value any) string {
	if value == nil {
		return def
	}

	text := strings.TrimSpace(fmt.Sprint(value))
	if text == "" {
		return def
	}
	return text
}
