package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secretsanta/internal/models"
	"secretsanta/internal/store"
	"secretsanta/internal/store/memory"
)

func TestEventRepository_Read(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	repo := NewEventRepository(db, testEventKey)

	_, err := db.Get(ctx, testEventKey)
	require.ErrorIs(t, err, store.ErrNotFound)

	ev, err := repo.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.NewEvent(), ev)

	stored, err := db.Get(ctx, testEventKey)
	require.NoError(t, err, "Read should create the missing event")
	assert.Equal(t, models.NewEvent(), stored)
}

func TestEventRepository_Subscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	db := memory.New()
	repo := NewEventRepository(db, testEventKey)

	updates := make(chan models.Event, 16)
	unsubscribe := repo.Subscribe(ctx, func(ev models.Event) { updates <- ev }, func(err error) {
		t.Errorf("unexpected feed error: %v", err)
	})
	defer unsubscribe()

	first := receive(t, updates)
	assert.Equal(t, models.NewEvent(), first, "a missing event is created and delivered")

	require.NoError(t, repo.ReplaceUsers(ctx, usersNamed("Ana")))
	require.Eventually(t, func() bool {
		for {
			select {
			case ev := <-updates:
				if len(ev.Users) == 1 && ev.Users[0].Name == "Ana" {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 10*time.Millisecond)
}

type readOnlyStore struct {
	store.DocumentStore
	err error
}

func (r readOnlyStore) Set(context.Context, string, models.Event) error {
	return r.err
}

func TestEventRepository_SubscribeCreateFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	denied := errors.New("permission denied")
	repo := NewEventRepository(readOnlyStore{DocumentStore: memory.New(), err: denied}, testEventKey)

	updates := make(chan models.Event, 4)
	errs := make(chan error, 4)
	unsubscribe := repo.Subscribe(ctx, func(ev models.Event) { updates <- ev }, func(err error) { errs <- err })
	defer unsubscribe()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, denied)
	case <-time.After(time.Second):
		t.Fatal("creation failure was not reported")
	}
	assert.Equal(t, models.NewEvent(), receive(t, updates), "the empty event is delivered even though creating it failed")

	_, err := repo.Read(ctx)
	assert.ErrorIs(t, err, denied)
}

func receive(t *testing.T, ch <-chan models.Event) models.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for an event")
		return models.Event{}
	}
}

func TestEventRepository_ReplaceAssignments(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(memory.New(), testEventKey)
	err := repo.ReplaceUsers(ctx, usersNamed("Ana", "Bruno"))
	require.ErrorIs(t, err, store.ErrNotFound, "field updates need an existing event")

	_, err = repo.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceUsers(ctx, usersNamed("Ana", "Bruno")))

	assignments := []models.Assignment{{Giver: "Ana", Receiver: "Bruno"}, {Giver: "Bruno", Receiver: "Ana"}}
	require.NoError(t, repo.ReplaceAssignments(ctx, assignments, true))

	ev, err := repo.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, usersNamed("Ana", "Bruno"), ev.Users, "replacing assignments keeps the users")
	assert.Equal(t, assignments, ev.Assignments)
	assert.True(t, ev.IsDrawComplete)
}

// Two writers that both read before either writes: the second replacement
// wins and the first registration is lost. There is no compare-and-swap.
func TestEventRepository_RacingWritersLoseUpdates(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(memory.New(), testEventKey)

	first, err := repo.Read(ctx)
	require.NoError(t, err)
	second, err := repo.Read(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.ReplaceUsers(ctx, append(first.Users, models.User{Name: "Ana", Password: "a"})))
	require.NoError(t, repo.ReplaceUsers(ctx, append(second.Users, models.User{Name: "Bruno", Password: "b"})))

	ev, err := repo.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.User{{Name: "Bruno", Password: "b"}}, ev.Users)
}
