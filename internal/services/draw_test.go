package services

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secretsanta/internal/models"
)

func usersNamed(names ...string) []models.User {
	users := make([]models.User, 0, len(names))
	for _, n := range names {
		users = append(users, models.User{Name: n, Password: "pw-" + n})
	}
	return users
}

// assertSingleCycle checks that every user gives once, receives once, never
// to themselves, and that following the assignments visits everybody.
func assertSingleCycle(t *testing.T, users []models.User, assignments []models.Assignment) {
	t.Helper()
	require.Len(t, assignments, len(users))

	next := make(map[string]string, len(assignments))
	received := make(map[string]int, len(assignments))
	for _, a := range assignments {
		assert.NotEqual(t, a.Giver, a.Receiver, "%s gives to themselves", a.Giver)
		_, dup := next[a.Giver]
		assert.False(t, dup, "%s gives twice", a.Giver)
		next[a.Giver] = a.Receiver
		received[a.Receiver]++
	}
	for _, u := range users {
		assert.Contains(t, next, u.Name)
		assert.Equal(t, 1, received[u.Name], "%s should receive exactly once", u.Name)
	}

	start := users[0].Name
	current := start
	seen := make(map[string]bool)
	for range users {
		seen[current] = true
		current = next[current]
	}
	assert.Equal(t, start, current, "cycle should return to its start")
	assert.Len(t, seen, len(users), "cycle should visit every participant")
}

func TestDrawEngine_Draw(t *testing.T) {
	names := []string{"Ana", "Bruno", "Carla", "Dana", "Eva", "Félix", "Gus", "Hugo"}

	t.Run("Test single cycle for every size", func(t *testing.T) {
		for n := 2; n <= len(names); n++ {
			for seed := uint64(0); seed < 20; seed++ {
				t.Run(fmt.Sprintf("n=%d/seed=%d", n, seed), func(t *testing.T) {
					engine := NewDrawEngine(rand.NewPCG(seed, seed+1))
					users := usersNamed(names[:n]...)
					assignments, err := engine.Draw(users)
					require.NoError(t, err)
					assertSingleCycle(t, users, assignments)
				})
			}
		}
	})

	t.Run("Test two participants give to each other", func(t *testing.T) {
		assignments, err := NewDrawEngine(rand.NewPCG(7, 7)).Draw(usersNamed("Ana", "Bruno"))
		require.NoError(t, err)
		got := map[string]string{}
		for _, a := range assignments {
			got[a.Giver] = a.Receiver
		}
		assert.Equal(t, map[string]string{"Ana": "Bruno", "Bruno": "Ana"}, got)
	})

	t.Run("Test fewer than two participants is rejected", func(t *testing.T) {
		engine := NewDrawEngine(nil)
		for _, users := range [][]models.User{nil, {}, usersNamed("Ana")} {
			assignments, err := engine.Draw(users)
			assert.ErrorIs(t, err, ErrNotEnoughParticipants)
			assert.Nil(t, assignments)
		}
	})

	t.Run("Test global generator is used without a source", func(t *testing.T) {
		users := usersNamed(names...)
		assignments, err := NewDrawEngine(nil).Draw(users)
		require.NoError(t, err)
		assertSingleCycle(t, users, assignments)
	})

	t.Run("Test input is not reordered", func(t *testing.T) {
		users := usersNamed("Ana", "Bruno", "Carla")
		_, err := NewDrawEngine(rand.NewPCG(1, 2)).Draw(users)
		require.NoError(t, err)
		assert.Equal(t, usersNamed("Ana", "Bruno", "Carla"), users)
	})
}

func TestGetAssignment(t *testing.T) {
	ev := models.Event{
		Users: usersNamed("Ana", "Bruno"),
		Assignments: []models.Assignment{
			{Giver: "Ana", Receiver: "Bruno"},
			{Giver: "Bruno", Receiver: "Ana"},
		},
		IsDrawComplete: true,
	}

	receiver, ok := GetAssignment(ev, "Ana")
	assert.True(t, ok)
	assert.Equal(t, "Bruno", receiver)

	receiver, ok = GetAssignment(ev, "Dana")
	assert.False(t, ok)
	assert.Empty(t, receiver)

	_, ok = GetAssignment(models.NewEvent(), "Ana")
	assert.False(t, ok)
}
