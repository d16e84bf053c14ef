package sequences

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadDefinition reads a single definition from disk.
func LoadDefinition(path string) (*Definition, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sequence path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sequence %s: %w", path, err)
	}

	def, err := parseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("parse sequence %s: %w", path, err)
	}
	def.Source = path
	return def, nil
}

// LoadDefinitionsFromDir loads all definitions from a directory.
// A missing directory yields no definitions.
func LoadDefinitionsFromDir(dir string) ([]*Definition, error) {
	if strings.TrimSpace(dir) == "" {
		return []*Definition{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Definition{}, nil
		}
		return nil, fmt.Errorf("read sequences dir %s: %w", dir, err)
	}

	defs := make([]*Definition, 0)
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		def, err := LoadDefinition(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Name < defs[j].Name
	})

	return defs, nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func parseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, err
	}

	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" {
		return nil, fmt.Errorf("sequence name is required")
	}
	def.Description = strings.TrimSpace(def.Description)

	if len(def.Steps) == 0 {
		return nil, fmt.Errorf("sequence steps are required")
	}

	seen := make(map[string]struct{})
	for i := range def.Variables {
		name := strings.TrimSpace(def.Variables[i].Name)
		if name == "" {
			return nil, fmt.Errorf("sequence variable name is required")
		}
		if _, exists := seen[name]; exists {
			return nil, fmt.Errorf("duplicate sequence variable %q", name)
		}
		seen[name] = struct{}{}
		def.Variables[i].Name = name
	}

	if err := normalizeSteps(def.Steps); err != nil {
		return nil, err
	}

	return &def, nil
}

func normalizeSteps(steps []Step) error {
	for i := range steps {
		if err := normalizeStep(&steps[i]); err != nil {
			return fmt.Errorf("sequence step %d: %w", i+1, err)
		}
	}
	return nil
}

func normalizeStep(step *Step) error {
	step.Type = StepType(strings.ToLower(strings.TrimSpace(string(step.Type))))
	step.Action = strings.TrimSpace(step.Action)
	step.Duration = strings.TrimSpace(step.Duration)

	switch step.Type {
	case StepTypeAction:
		if step.Action == "" {
			return fmt.Errorf("action name is required")
		}

	case StepTypeWait:
		if step.Duration == "" {
			return fmt.Errorf("wait duration is required")
		}
		if _, err := parseWait(step.Duration); err != nil {
			return err
		}

	case StepTypeMode:
		if step.Async == nil {
			return fmt.Errorf("mode async is required")
		}

	case StepTypeBulk:
		if len(step.Steps) == 0 {
			return fmt.Errorf("bulk steps are required")
		}
		if step.Times < 0 {
			return fmt.Errorf("bulk times must not be negative")
		}
		if err := normalizeSteps(step.Steps); err != nil {
			return fmt.Errorf("bulk: %w", err)
		}

	default:
		return fmt.Errorf("unknown step type %q", step.Type)
	}

	return nil
}

func parseWait(value string) (time.Duration, error) {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid wait duration: %w", err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("wait duration must not be negative")
	}
	return duration, nil
}
