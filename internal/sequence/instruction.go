package sequence

import (
	"fmt"
	"time"
)

// Action is a zero-argument side effect. A returned error aborts the run.
type Action func() error

// Kind identifies the variant of an Instruction.
type Kind int

const (
	// KindRunAction invokes an Action.
	KindRunAction Kind = iota
	// KindWait pauses for a duration.
	KindWait
	// KindSetMode switches the mode for every later instruction.
	KindSetMode
)

func (k Kind) String() string {
	switch k {
	case KindRunAction:
		return "action"
	case KindWait:
		return "wait"
	case KindSetMode:
		return "mode"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Instruction is one immutable step of a Sequence.
type Instruction struct {
	kind     Kind
	action   Action
	duration time.Duration
	async    bool
}

// RunAction returns an instruction that invokes action.
func RunAction(action Action) Instruction {
	return Instruction{kind: KindRunAction, action: action}
}

// Wait returns an instruction that pauses for d.
func Wait(d time.Duration) Instruction {
	return Instruction{kind: KindWait, duration: d}
}

// SetMode returns an instruction that switches the execution mode.
func SetMode(async bool) Instruction {
	return Instruction{kind: KindSetMode, async: async}
}

// Kind returns the instruction variant.
func (in Instruction) Kind() Kind { return in.kind }

// Action returns the action of a KindRunAction instruction.
func (in Instruction) Action() Action { return in.action }

// Duration returns the pause of a KindWait instruction.
func (in Instruction) Duration() time.Duration { return in.duration }

// Async returns the target mode of a KindSetMode instruction.
func (in Instruction) Async() bool { return in.async }

// invoke runs the action. A nil action is a no-op.
func (in Instruction) invoke() error {
	if in.action == nil {
		return nil
	}
	return in.action()
}

func (in Instruction) String() string {
	switch in.kind {
	case KindWait:
		return fmt.Sprintf("wait(%s)", in.duration)
	case KindSetMode:
		return fmt.Sprintf("mode(async=%t)", in.async)
	default:
		return in.kind.String()
	}
}
