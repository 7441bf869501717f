package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"secretsanta/internal/models"
	"secretsanta/internal/store"
)

func openEvent(names ...string) models.Event {
	ev := models.NewEvent()
	for _, n := range names {
		ev.Users = append(ev.Users, models.User{Name: n})
	}
	return ev
}

func drawnEvent(names ...string) models.Event {
	ev := openEvent(names...)
	for i, n := range names {
		ev.Assignments = append(ev.Assignments, models.Assignment{Giver: n, Receiver: names[(i+1)%len(names)]})
	}
	ev.IsDrawComplete = true
	return ev
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name     string
		ev       models.Event
		identity string
		want     Screen
	}{
		{"no identity", openEvent("Ana"), "", ScreenLogin},
		{"no identity after draw", drawnEvent("Ana", "Bruno"), "", ScreenLogin},
		{"identity before draw", openEvent("Ana"), "Ana", ScreenLobby},
		{"identity after draw", drawnEvent("Ana", "Bruno"), "Ana", ScreenResult},
		{"unregistered identity after draw", drawnEvent("Ana", "Bruno"), "Dana", ScreenResult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, prev := range []Screen{ScreenLogin, ScreenLobby, ScreenResult} {
				assert.Equal(t, tt.want, Derive(tt.ev, tt.identity, prev))
			}
		})
	}
}

func TestMachine(t *testing.T) {
	t.Run("Test loading until the first snapshot", func(t *testing.T) {
		m := NewMachine("Ana")
		assert.False(t, m.Loaded())
		assert.Equal(t, ConditionLoading, m.State().Condition)
		assert.Equal(t, ScreenLogin, m.State().Screen)

		tr := m.ApplyEvent(openEvent("Ana"))
		assert.True(t, m.Loaded())
		assert.Equal(t, ConditionReady, m.State().Condition)
		assert.Equal(t, Transition{From: ScreenLogin, To: ScreenLobby}, tr)
	})

	t.Run("Test login, draw, reset and logout", func(t *testing.T) {
		m := NewMachine("")
		m.ApplyEvent(openEvent("Ana", "Bruno"))
		assert.Equal(t, ScreenLogin, m.State().Screen)

		tr := m.SetIdentity("Ana")
		assert.Equal(t, Transition{From: ScreenLogin, To: ScreenLobby}, tr)

		tr = m.ApplyEvent(drawnEvent("Ana", "Bruno"))
		assert.Equal(t, Transition{From: ScreenLobby, To: ScreenResult}, tr)

		tr = m.ApplyEvent(openEvent())
		assert.Equal(t, Transition{From: ScreenResult, To: ScreenLobby, Reopened: true}, tr)

		tr = m.SetIdentity("")
		assert.Equal(t, Transition{From: ScreenLobby, To: ScreenLogin}, tr)
	})

	t.Run("Test snapshots that keep the draw are not reopenings", func(t *testing.T) {
		m := NewMachine("Ana")
		m.ApplyEvent(drawnEvent("Ana", "Bruno", "Carla"))
		tr := m.ApplyEvent(drawnEvent("Ana", "Bruno"))
		assert.Equal(t, Transition{From: ScreenResult, To: ScreenResult}, tr)
	})

	t.Run("Test transient errors clear on the next snapshot", func(t *testing.T) {
		m := NewMachine("Ana")
		m.ApplyError(errors.New("connection reset"))
		assert.True(t, m.Loaded())
		assert.Equal(t, ConditionError, m.State().Condition)
		assert.Equal(t, "connection reset", m.State().ErrorMessage)

		m.ApplyEvent(openEvent("Ana"))
		assert.Equal(t, ConditionReady, m.State().Condition)
		assert.Empty(t, m.State().ErrorMessage)
	})

	t.Run("Test setup needed lasts until the next snapshot", func(t *testing.T) {
		m := NewMachine("Ana")
		m.ApplyError(fmt.Errorf("get event: %w", store.ErrNotProvisioned))
		assert.Equal(t, ConditionSetupNeeded, m.State().Condition)

		m.ApplyError(errors.New("connection reset"))
		assert.Equal(t, ConditionSetupNeeded, m.State().Condition)

		m.ApplyEvent(openEvent("Ana"))
		assert.Equal(t, ConditionReady, m.State().Condition)
		assert.Equal(t, ScreenLobby, m.State().Screen)
	})
}

func TestMemorySlot(t *testing.T) {
	var slot MemorySlot
	assert.Empty(t, slot.Load())
	slot.Save("Ana")
	assert.Equal(t, "Ana", slot.Load())
	slot.Clear()
	assert.Empty(t, slot.Load())
}
