// Package actions maps action names used in sequence definitions to runnable
// sequence actions.
package actions

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/opencode-ai/taskutils/internal/logging"
	"github.com/opencode-ai/taskutils/internal/models"
	"github.com/opencode-ai/taskutils/internal/participants"
	"github.com/opencode-ai/taskutils/internal/sequence"
	"github.com/rs/zerolog"
)

// Registry errors.
var (
	ErrUnknownAction   = errors.New("unknown action")
	ErrDuplicateAction = errors.New("action already registered")
	ErrMissingArg      = errors.New("missing action argument")
)

// Factory builds an action from its rendered arguments.
type Factory func(args map[string]string) (sequence.Action, error)

// Registry holds named action factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name.
func (r *Registry) Register(name string, factory Factory) error {
	name = normalizeName(name)
	if name == "" {
		return fmt.Errorf("action name is required")
	}
	if factory == nil {
		return fmt.Errorf("action %q: factory is required", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAction, name)
	}
	r.factories[name] = factory
	return nil
}

// Resolve builds the action registered under name.
func (r *Registry) Resolve(name string, args map[string]string) (sequence.Action, error) {
	key := normalizeName(name)

	r.mu.RLock()
	factory, ok := r.factories[key]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	action, err := factory(args)
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", key, err)
	}
	return action, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Env is what the builtin actions act on.
type Env struct {
	// Out receives print and broadcast output. Default: os.Stdout.
	Out io.Writer

	// Logger receives log actions. Default: the "action" component logger.
	Logger *zerolog.Logger

	// Participants is the broadcast audience. Nil means nobody.
	Participants participants.Source[models.Participant]
}

// Builtins returns a registry with print, log, broadcast and fail.
func Builtins(env Env) *Registry {
	if env.Out == nil {
		env.Out = os.Stdout
	}
	logger := logging.Component("action")
	if env.Logger != nil {
		logger = *env.Logger
	}

	r := NewRegistry()
	_ = r.Register("print", printFactory(env.Out))
	_ = r.Register("log", logFactory(logger))
	_ = r.Register("broadcast", broadcastFactory(env.Out, env.Participants))
	_ = r.Register("fail", failFactory)
	return r
}

func requireArg(args map[string]string, key string) (string, error) {
	value, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrMissingArg, key)
	}
	return value, nil
}

func printFactory(out io.Writer) Factory {
	return func(args map[string]string) (sequence.Action, error) {
		message, err := requireArg(args, "message")
		if err != nil {
			return nil, err
		}
		return func() error {
			_, err := fmt.Fprintln(out, message)
			return err
		}, nil
	}
}

func logFactory(logger zerolog.Logger) Factory {
	return func(args map[string]string) (sequence.Action, error) {
		message, err := requireArg(args, "message")
		if err != nil {
			return nil, err
		}
		level := logging.ParseLevel(args["level"])
		return func() error {
			logger.WithLevel(level).Msg(message)
			return nil
		}, nil
	}
}

func broadcastFactory(out io.Writer, src participants.Source[models.Participant]) Factory {
	return func(args map[string]string) (sequence.Action, error) {
		message, err := requireArg(args, "message")
		if err != nil {
			return nil, err
		}
		return func() error {
			return participants.ForEach(src, func(p models.Participant) error {
				_, err := fmt.Fprintf(out, "[%s] %s\n", p.Name, message)
				return err
			})
		}, nil
	}
}

func failFactory(args map[string]string) (sequence.Action, error) {
	message := strings.TrimSpace(args["message"])
	if message == "" {
		message = "action failed"
	}
	return func() error {
		return errors.New(message)
	}, nil
}
