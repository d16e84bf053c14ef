package participants

import (
	"errors"
	"testing"
	"time"

	"github.com/opencode-ai/taskutils/internal/models"
	"github.com/stretchr/testify/require"
)

func TestForEachVisitsAll(t *testing.T) {
	src := SourceFunc[string](func() []string { return []string{"ann", "bob", "cy"} })

	var seen []string
	err := ForEach[string](src, func(name string) error {
		seen = append(seen, name)
		return nil
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"ann", "bob", "cy"}, seen)
}

func TestForEachEmptyAndNil(t *testing.T) {
	calls := 0
	fn := func(string) error {
		calls++
		return nil
	}

	require.NoError(t, ForEach[string](SourceFunc[string](func() []string { return nil }), fn))
	require.NoError(t, ForEach[string](nil, fn))
	require.Zero(t, calls)
}

func TestForEachStopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	src := SourceFunc[int](func() []int { return []int{1, 2, 3} })

	var seen []int
	err := ForEach[int](src, func(n int) error {
		seen = append(seen, n)
		if n == 2 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, []int{1, 2}, seen)
}

func TestRegistryConnectDisconnect(t *testing.T) {
	reg := NewRegistry()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	reg.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	ann, err := reg.Connect("ann")
	require.NoError(t, err)
	bob, err := reg.Connect(" bob ")
	require.NoError(t, err)
	require.Equal(t, "bob", bob.Name)
	require.NotEqual(t, ann.ID, bob.ID)

	_, err = reg.Connect("  ")
	require.ErrorIs(t, err, ErrNameRequired)

	list := reg.Participants()
	require.Len(t, list, 2)
	require.Equal(t, "ann", list[0].Name)

	require.NoError(t, reg.Disconnect(ann.ID))
	require.ErrorIs(t, reg.Disconnect(ann.ID), ErrParticipantNotFound)
	require.Equal(t, 1, reg.Len())

	var names []string
	require.NoError(t, ForEach[models.Participant](reg, func(p models.Participant) error {
		names = append(names, p.Name)
		return nil
	}))
	require.Equal(t, []string{"bob"}, names)
}

func TestNilRegistryAsSource(t *testing.T) {
	var reg *Registry
	var src Source[models.Participant] = reg

	calls := 0
	err := ForEach(src, func(models.Participant) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Zero(t, calls)
	require.Zero(t, reg.Len())
}
