// Package sequences provides loading and building of named sequence
// definitions written in YAML.
package sequences

// Definition is a named, reusable list of steps.
type Definition struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Steps       []Step     `yaml:"steps"`
	Variables   []Variable `yaml:"variables,omitempty"`
	Tags        []string   `yaml:"tags,omitempty"`
	Source      string     `yaml:"-"` // file path or "builtin"
}

// Step is one entry of a definition.
type Step struct {
	Type StepType `yaml:"type"`

	// Action and Args describe an action step. Args are templates.
	Action string            `yaml:"action,omitempty"`
	Args   map[string]string `yaml:"args,omitempty"`

	// Duration is a Go duration for a wait step.
	Duration string `yaml:"duration,omitempty"`

	// Async is the target mode of a mode step.
	Async *bool `yaml:"async,omitempty"`

	// Times and Steps describe a bulk step. Times below 1 means once.
	Times int    `yaml:"times,omitempty"`
	Steps []Step `yaml:"steps,omitempty"`
}

// Variable describes a variable used in action arguments.
type Variable struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Default     string `yaml:"default,omitempty"`
	Required    bool   `yaml:"required"`
}

// StepType defines the kind of step.
type StepType string

const (
	StepTypeAction StepType = "action"
	StepTypeWait   StepType = "wait"
	StepTypeMode   StepType = "mode"
	StepTypeBulk   StepType = "bulk"
)
