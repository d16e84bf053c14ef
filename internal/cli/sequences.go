package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/opencode-ai/taskutils/internal/config"
	"github.com/opencode-ai/taskutils/internal/sequences"
	"github.com/spf13/cobra"
)

var (
	sequencesTags []string
)

func init() {
	rootCmd.AddCommand(sequencesCmd)
	sequencesCmd.AddCommand(sequencesListCmd)
	sequencesCmd.AddCommand(sequencesShowCmd)

	sequencesListCmd.Flags().StringSliceVar(&sequencesTags, "tag", nil, "only show sequences with any of these tags")
}

var sequencesCmd = &cobra.Command{
	Use:     "sequences",
	Aliases: []string{"seq"},
	Short:   "Inspect sequence definitions",
	Long: `Sequence definitions are YAML files found in, in order of precedence:

  .taskutils/sequences            (project)
  ~/.config/taskutils/sequences   (user)
  sequences.dirs from the config
  built-in sequences`,
}

var sequencesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available sequences",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := loadSequences()
		if err != nil {
			return err
		}
		items = filterSequences(items, sequencesTags)

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(cmd.OutOrStdout(), items)
		}
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No sequences found.")
			return nil
		}

		userDir, projectDir := sequenceDirs()
		rows := make([][]string, 0, len(items))
		for _, item := range items {
			rows = append(rows, []string{
				item.Name,
				sequenceSourceLabel(item.Source, userDir, projectDir),
				fmt.Sprintf("%d", len(item.Steps)),
				strings.Join(item.Tags, ","),
				item.Description,
			})
		}
		return writeTable(cmd.OutOrStdout(), []string{"NAME", "SOURCE", "STEPS", "TAGS", "DESCRIPTION"}, rows)
	},
}

var sequencesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a sequence definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := resolveDefinition(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(out, def)
		}

		userDir, projectDir := sequenceDirs()
		fmt.Fprintf(out, "Name:        %s\n", def.Name)
		if def.Description != "" {
			fmt.Fprintf(out, "Description: %s\n", def.Description)
		}
		fmt.Fprintf(out, "Source:      %s (%s)\n", sequenceSourceLabel(def.Source, userDir, projectDir), def.Source)
		if len(def.Tags) > 0 {
			fmt.Fprintf(out, "Tags:        %s\n", strings.Join(def.Tags, ", "))
		}

		if len(def.Variables) > 0 {
			fmt.Fprintln(out, "\nVariables:")
			rows := make([][]string, 0, len(def.Variables))
			for _, variable := range def.Variables {
				rows = append(rows, []string{
					"  " + variable.Name,
					formatYesNo(variable.Required),
					variable.Default,
					variable.Description,
				})
			}
			if err := writeTable(out, []string{"  NAME", "REQUIRED", "DEFAULT", "DESCRIPTION"}, rows); err != nil {
				return err
			}
		}

		fmt.Fprintln(out, "\nSteps:")
		writeSteps(out, def.Steps, "  ", "")
		return nil
	},
}

func writeSteps(out io.Writer, steps []sequences.Step, indent, prefix string) {
	for i, step := range steps {
		label := fmt.Sprintf("%s%d", prefix, i+1)
		fmt.Fprintf(out, "%s%s. %s\n", indent, label, formatSequenceStep(step))
		if step.Type == sequences.StepTypeBulk {
			writeSteps(out, step.Steps, indent+"   ", label+".")
		}
	}
}

func sequenceDirs() (userDir, projectDir string) {
	userDir = filepath.Join(config.DefaultConfigDir(), "sequences")
	if cwd, err := os.Getwd(); err == nil {
		projectDir = filepath.Join(cwd, ".taskutils", "sequences")
	}
	return userDir, projectDir
}

func loadSequences() ([]*sequences.Definition, error) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	var extra []string
	if cfg := GetConfig(); cfg != nil {
		extra = cfg.Sequences.Dirs
	}
	return sequences.LoadFromSearchPaths(sequences.SearchPaths(cwd, extra...))
}

// resolveDefinition loads a definition from a YAML file path or by name.
func resolveDefinition(ref string) (*sequences.Definition, error) {
	if looksLikeFile(ref) {
		return sequences.LoadDefinition(ref)
	}

	name, err := normalizeSequenceName(ref)
	if err != nil {
		return nil, err
	}
	items, err := loadSequences()
	if err != nil {
		return nil, err
	}
	def := findSequenceByName(items, name)
	if def == nil {
		return nil, &PreflightError{
			Message:  fmt.Sprintf("sequence %q not found", name),
			Hint:     "Sequences are looked up in .taskutils/sequences, ~/.config/taskutils/sequences and the built-ins",
			NextStep: "taskutils sequences list",
		}
	}
	return def, nil
}

func looksLikeFile(ref string) bool {
	ext := strings.ToLower(filepath.Ext(ref))
	if ext == ".yaml" || ext == ".yml" {
		return true
	}
	return strings.ContainsRune(ref, os.PathSeparator)
}

func filterSequences(items []*sequences.Definition, tags []string) []*sequences.Definition {
	if len(tags) == 0 {
		return items
	}

	wanted := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		wanted[strings.ToLower(strings.TrimSpace(tag))] = struct{}{}
	}

	filtered := make([]*sequences.Definition, 0, len(items))
	for _, item := range items {
		for _, tag := range item.Tags {
			if _, ok := wanted[strings.ToLower(tag)]; ok {
				filtered = append(filtered, item)
				break
			}
		}
	}
	return filtered
}

func findSequenceByName(items []*sequences.Definition, name string) *sequences.Definition {
	for _, item := range items {
		if strings.EqualFold(item.Name, name) {
			return item
		}
	}
	return nil
}

// parseSequenceVars parses key=value pairs. A single value may hold several
// comma separated pairs.
func parseSequenceVars(values []string) (map[string]string, error) {
	vars := make(map[string]string)
	for _, value := range values {
		for _, pair := range strings.Split(value, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			key, val, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("invalid variable %q (expected key=value)", pair)
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return nil, fmt.Errorf("invalid variable %q (empty key)", pair)
			}
			vars[key] = val
		}
	}
	return vars, nil
}

func normalizeSequenceName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("sequence name is required")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid sequence name %q", name)
	}
	return name, nil
}

func sequenceSourceLabel(source, userDir, projectDir string) string {
	switch {
	case source == "builtin":
		return "builtin"
	case projectDir != "" && strings.HasPrefix(source, projectDir+string(filepath.Separator)):
		return "project"
	case userDir != "" && strings.HasPrefix(source, userDir+string(filepath.Separator)):
		return "user"
	default:
		return "file"
	}
}

func formatSequenceStep(step sequences.Step) string {
	switch step.Type {
	case sequences.StepTypeAction:
		if len(step.Args) == 0 {
			return fmt.Sprintf("[action] %s", step.Action)
		}
		return fmt.Sprintf("[action] %s %s", step.Action, formatArgs(step.Args))
	case sequences.StepTypeWait:
		return fmt.Sprintf("[wait] %s", step.Duration)
	case sequences.StepTypeMode:
		return fmt.Sprintf("[mode] %s", formatStepShort(step))
	case sequences.StepTypeBulk:
		times := step.Times
		if times < 1 {
			times = 1
		}
		return fmt.Sprintf("[bulk] x%d (%d steps)", times, len(step.Steps))
	default:
		return fmt.Sprintf("[%s]", step.Type)
	}
}

func formatStepShort(step sequences.Step) string {
	switch step.Type {
	case sequences.StepTypeAction:
		return "action:" + step.Action
	case sequences.StepTypeMode:
		if step.Async != nil && *step.Async {
			return "async"
		}
		return "sync"
	default:
		return string(step.Type)
	}
}

func formatArgs(args map[string]string) string {
	keys := make([]string, 0, len(args))
	for key := range args {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", key, args[key]))
	}
	return strings.Join(parts, " ")
}
