// Package sequence builds and interprets ordered lists of actions, waits and
// mode switches on top of a timer.Gateway.
//
// A Sequence is assembled with chained calls and started with Execute:
//
//	seq := sequence.New(loop).
//		AddVoid(openGate).
//		AddDelay(5 * time.Second).
//		SetAsync(true).
//		AddVoid(closeGate)
//	err := seq.Execute()
//
// Actions in synchronous mode run back to back inside the current turn. In
// async mode every action is deferred through the async queue with zero delay.
// Waits always suspend, on the queue chosen by the mode in effect.
//
// Cancellation is checked only after an action or mode switch has run. A run
// parked in a wait always resumes; the first action or mode switch after the
// wait still runs and the run stops behind it.
package sequence

import (
	"sync/atomic"
	"time"

	"github.com/opencode-ai/taskutils/internal/timer"
)

// Sequence is a fluent builder and interpreter over an instruction list.
// Building is single-owner; the cancellation flag may be set from anywhere.
type Sequence struct {
	gateway      timer.Gateway
	instructions []Instruction

	// async is the mode in effect. Only the interpreter writes it.
	async     bool
	cancelled atomic.Bool
}

// New creates an empty sequence in synchronous mode.
func New(gateway timer.Gateway) *Sequence {
	return &Sequence{gateway: gateway}
}

// SetAsync enqueues a mode switch. The mode changes when the instruction runs.
func (s *Sequence) SetAsync(async bool) *Sequence {
	s.instructions = append(s.instructions, SetMode(async))
	return s
}

// SetCancelled sets the cancellation flag.
func (s *Sequence) SetCancelled(cancelled bool) *Sequence {
	s.cancelled.Store(cancelled)
	return s
}

// Cancelled reports whether the cancellation flag is set.
func (s *Sequence) Cancelled() bool {
	return s.cancelled.Load()
}

// AddVoid appends an action.
func (s *Sequence) AddVoid(action Action) *Sequence {
	s.instructions = append(s.instructions, RunAction(action))
	return s
}

// AddDelay appends a wait. Negative durations wait zero.
func (s *Sequence) AddDelay(d time.Duration) *Sequence {
	s.instructions = append(s.instructions, Wait(d))
	return s
}

// Add appends instructions as given.
func (s *Sequence) Add(instructions ...Instruction) *Sequence {
	s.instructions = append(s.instructions, instructions...)
	return s
}

// AddBulk appends the block amount times, block after block. Actions are
// shared, not cloned. An amount below 1 appends the block once.
func (s *Sequence) AddBulk(instructions []Instruction, amount int) *Sequence {
	if amount <= 0 {
		amount = 1
	}

	// Copy first so a block taken from s itself is not read while growing.
	block := make([]Instruction, len(instructions))
	copy(block, instructions)

	for i := 0; i < amount; i++ {
		s.instructions = append(s.instructions, block...)
	}
	return s
}

// Instructions returns a copy of the instruction list.
func (s *Sequence) Instructions() []Instruction {
	out := make([]Instruction, len(s.instructions))
	copy(out, s.instructions)
	return out
}

// Len returns the number of instructions.
func (s *Sequence) Len() int {
	return len(s.instructions)
}

// Async reports the mode currently in effect.
func (s *Sequence) Async() bool {
	return s.async
}
