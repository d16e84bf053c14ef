package sequences

import (
	"os"
	"path/filepath"
)

// SearchPaths returns definition directories in precedence order: the
// project directory, the user config directory, then extra in order.
func SearchPaths(projectDir string, extra ...string) []string {
	paths := make([]string, 0, 2+len(extra))
	if projectDir != "" {
		paths = append(paths, filepath.Join(projectDir, ".taskutils", "sequences"))
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, ".config", "taskutils", "sequences"))
	}

	for _, dir := range extra {
		if dir != "" {
			paths = append(paths, dir)
		}
	}
	return paths
}

// LoadFromSearchPaths loads definitions from paths with first-hit
// precedence by name. Builtins fill in whatever the paths do not define.
func LoadFromSearchPaths(paths []string) ([]*Definition, error) {
	seen := make(map[string]*Definition)
	order := make([]string, 0)

	add := func(defs []*Definition) {
		for _, def := range defs {
			if _, exists := seen[def.Name]; exists {
				continue
			}
			seen[def.Name] = def
			order = append(order, def.Name)
		}
	}

	for _, path := range paths {
		defs, err := LoadDefinitionsFromDir(path)
		if err != nil {
			return nil, err
		}
		add(defs)
	}

	builtins, err := LoadBuiltinDefinitions()
	if err != nil {
		return nil, err
	}
	add(builtins)

	resolved := make([]*Definition, 0, len(order))
	for _, name := range order {
		resolved = append(resolved, seen[name])
	}
	return resolved, nil
}
