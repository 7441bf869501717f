package services

import (
	"context"
	"strings"
	"sync"

	"github.com/google/logger"

	"secretsanta/internal/models"
)

// LoginResult is the outcome of RegisterOrLogin.
type LoginResult string

const (
	LoginSuccess       LoginResult = "SUCCESS"
	LoginWrongPassword LoginResult = "WRONG_PASSWORD"
	LoginGameClosed    LoginResult = "GAME_CLOSED"
	LoginError         LoginResult = "ERROR"
	LoginInvalid       LoginResult = "INVALID"
	LoginInProgress    LoginResult = "IN_PROGRESS"
)

// HintGenerator produces the decorative message for a receiver. It must not
// fail; implementations fall back to a fixed string.
type HintGenerator interface {
	GenerateHint(ctx context.Context, receiverName string) string
}

// AdminConfig holds the reserved administrator identity.
type AdminConfig struct {
	Name     string
	Password string
}

// ExchangeService implements the gift exchange actions on top of the shared
// event. Administrator-only operations are not checked here; callers decide
// who may trigger them.
type ExchangeService struct {
	repo   *EventRepository
	engine *DrawEngine
	admin  AdminConfig
	hints  HintGenerator
	guard  *ActionGuard

	mu        sync.Mutex
	hintCache map[string]string // receiver -> hint
}

// NewExchangeService creates the service. The administrator name is
// normalized so it compares against normalized identities.
func NewExchangeService(repo *EventRepository, engine *DrawEngine, admin AdminConfig, hints HintGenerator) *ExchangeService {
	admin.Name = NormalizeName(admin.Name)
	return &ExchangeService{
		repo:      repo,
		engine:    engine,
		admin:     admin,
		hints:     hints,
		guard:     NewActionGuard(),
		hintCache: make(map[string]string),
	}
}

// Repository returns the event repository the service writes to.
func (s *ExchangeService) Repository() *EventRepository {
	return s.repo
}

// AdminName returns the normalized administrator identity.
func (s *ExchangeService) AdminName() string {
	return s.admin.Name
}

// Event returns the current shared event.
func (s *ExchangeService) Event(ctx context.Context) (models.Event, error) {
	return s.repo.Read(ctx)
}

// IsAdministrator reports whether name is the reserved administrator.
func (s *ExchangeService) IsAdministrator(name string) bool {
	return s.admin.Name != "" && NormalizeName(name) == s.admin.Name
}

// RegisterOrLogin logs an existing participant in, or registers a new one
// while the draw has not happened. Passwords are compared byte for byte.
func (s *ExchangeService) RegisterOrLogin(ctx context.Context, name, password string) LoginResult {
	normalized := NormalizeName(name)
	if normalized == "" || password == "" {
		return LoginInvalid
	}
	if normalized == s.admin.Name && password != s.admin.Password {
		return LoginWrongPassword
	}

	done, err := s.guard.Begin(ActionRegister, normalized)
	if err != nil {
		return LoginInProgress
	}
	defer done()

	ev, err := s.repo.Read(ctx)
	if err != nil {
		logger.Errorf("Error registering %q: %v", normalized, err)
		return LoginError
	}

	for _, u := range ev.Users {
		if u.Name == normalized {
			if u.Password == password {
				return LoginSuccess
			}
			return LoginWrongPassword
		}
	}

	if ev.IsDrawComplete {
		return LoginGameClosed
	}

	users := append(ev.Clone().Users, models.User{Name: normalized, Password: password})
	if err := s.repo.ReplaceUsers(ctx, users); err != nil {
		logger.Errorf("Error registering %q: %v", normalized, err)
		return LoginError
	}
	logger.Infof("Registered participant %q (%d total)", normalized, len(users))
	return LoginSuccess
}

// UserExists reports whether the normalized name is already registered.
func (s *ExchangeService) UserExists(ctx context.Context, name string) (bool, error) {
	ev, err := s.repo.Read(ctx)
	if err != nil {
		return false, err
	}
	normalized := NormalizeName(name)
	for _, u := range ev.Users {
		if u.Name == normalized {
			return true, nil
		}
	}
	return false, nil
}

// RemoveUser drops every user whose name matches, ignoring case and
// surrounding whitespace. Assignments are left as they are even after a
// draw, so removing a participant then breaks one edge of the cycle.
func (s *ExchangeService) RemoveUser(ctx context.Context, name string) error {
	done, err := s.guard.Begin(ActionRemove, NormalizeName(name))
	if err != nil {
		return err
	}
	defer done()

	ev, err := s.repo.Read(ctx)
	if err != nil {
		return err
	}
	filtered := make([]models.User, 0, len(ev.Users))
	for _, u := range ev.Users {
		if !sameName(u.Name, name) {
			filtered = append(filtered, u)
		}
	}
	if len(filtered) == len(ev.Users) {
		logger.Infof("Remove %q: no such participant", strings.TrimSpace(name))
		return nil
	}
	if err := s.repo.ReplaceUsers(ctx, filtered); err != nil {
		return err
	}
	logger.Infof("Removed participant %q", strings.TrimSpace(name))
	return nil
}

// PerformDraw assigns every participant a receiver and closes registration.
// Calling it again re-draws and overwrites the previous pairing.
func (s *ExchangeService) PerformDraw(ctx context.Context) ([]models.Assignment, error) {
	done, err := s.guard.Begin(ActionDraw, s.admin.Name)
	if err != nil {
		return nil, err
	}
	defer done()

	ev, err := s.repo.Read(ctx)
	if err != nil {
		return nil, err
	}
	assignments, err := s.engine.Draw(ev.Users)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceAssignments(ctx, assignments, true); err != nil {
		return nil, err
	}
	s.clearHints()
	logger.Infof("Draw complete: %d assignments", len(assignments))
	return assignments, nil
}

// ResetEvent replaces the event with the empty one, deleting all users and
// assignments.
func (s *ExchangeService) ResetEvent(ctx context.Context) error {
	if err := s.repo.ReplaceAll(ctx, models.NewEvent()); err != nil {
		return err
	}
	s.clearHints()
	logger.Infof("Event %q reset", s.repo.Key())
	return nil
}

// Hint returns the decorative message for receiver, generating it once.
func (s *ExchangeService) Hint(ctx context.Context, receiver string) string {
	s.mu.Lock()
	cached, ok := s.hintCache[receiver]
	s.mu.Unlock()
	if ok {
		return cached
	}

	text := s.hints.GenerateHint(ctx, receiver)

	s.mu.Lock()
	s.hintCache[receiver] = text
	s.mu.Unlock()
	return text
}

func (s *ExchangeService) clearHints() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hintCache = make(map[string]string)
}
