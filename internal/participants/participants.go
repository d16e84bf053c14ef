// Package participants iterates over the currently connected participants of
// a host.
package participants

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opencode-ai/taskutils/internal/models"
)

// Registry errors.
var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrNameRequired        = errors.New("participant name is required")
)

// Source returns the participants connected right now. Order is unspecified
// and the result may be empty.
type Source[T any] interface {
	Participants() []T
}

// SourceFunc adapts a plain accessor to Source.
type SourceFunc[T any] func() []T

// Participants implements Source.
func (f SourceFunc[T]) Participants() []T {
	return f()
}

// ForEach calls fn for every participant, in the order the source returns
// them. The first error stops the iteration and is returned as is.
func ForEach[T any](src Source[T], fn func(T) error) error {
	if src == nil {
		return nil
	}
	for _, p := range src.Participants() {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

// Registry is an in-memory Source of connected participants.
type Registry struct {
	mu      sync.RWMutex
	members map[string]models.Participant
	now     func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		members: make(map[string]models.Participant),
		now:     time.Now,
	}
}

// Connect adds a participant and returns it.
func (r *Registry) Connect(name string) (models.Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Participant{}, ErrNameRequired
	}

	p := models.Participant{
		ID:          uuid.New().String(),
		Name:        name,
		ConnectedAt: r.now().UTC(),
	}

	r.mu.Lock()
	r.members[p.ID] = p
	r.mu.Unlock()

	return p, nil
}

// Disconnect removes a participant by ID.
func (r *Registry) Disconnect(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[id]; !ok {
		return ErrParticipantNotFound
	}
	delete(r.members, id)
	return nil
}

// Len returns the number of connected participants.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Participants implements Source with a snapshot sorted by connection time.
// A nil Registry has no participants.
func (r *Registry) Participants() []models.Participant {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	out := make([]models.Participant, 0, len(r.members))
	for _, p := range r.members {
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}
