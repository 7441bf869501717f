// Package sqlstore keeps the event document as a JSON column in SQLite or
// Postgres. Subscriptions poll the row and are kicked immediately after
// writes made through the same Store, so several server processes sharing
// one database still converge.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/logger"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"secretsanta/internal/models"
	"secretsanta/internal/store"
)

// Dialect selects the SQL driver and placeholder style.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// DefaultPollInterval is used when Open gets a non-positive interval.
const DefaultPollInterval = 2 * time.Second

// Store is a DocumentStore backed by database/sql.
type Store struct {
	db           *sql.DB
	dialect      Dialect
	pollInterval time.Duration

	mu       sync.Mutex
	watchers map[string]map[chan struct{}]struct{}
}

// Open connects to the database. It does not create the schema; a missing
// table surfaces as store.ErrNotProvisioned until CreateSchema runs.
func Open(dialect Dialect, dsn string, pollInterval time.Duration) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database dsn is required")
	}
	if dialect != SQLite && dialect != Postgres {
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}
	if dialect == SQLite {
		// One connection keeps SQLite writers from tripping over each other.
		db.SetMaxOpenConns(1)
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Store{
		db:           db,
		dialect:      dialect,
		pollInterval: pollInterval,
		watchers:     make(map[string]map[chan struct{}]struct{}),
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get implements store.DocumentStore.
func (s *Store) Get(ctx context.Context, key string) (models.Event, error) {
	raw, err := s.getRaw(ctx, s.db, key)
	if err != nil {
		return models.Event{}, err
	}
	return decode(raw)
}

// Set implements store.DocumentStore.
func (s *Store) Set(ctx context.Context, key string, ev models.Event) error {
	raw, err := encode(ev)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO events (id, doc) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET doc = excluded.doc
	`), key, raw)
	if err != nil {
		return s.classify("set event", err)
	}
	s.kick(key)
	return nil
}

// Update implements store.DocumentStore. The field merge runs in a
// transaction; callers that read before calling Update still race.
func (s *Store) Update(ctx context.Context, key string, fields store.Fields) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.classify("begin update", err)
	}
	defer tx.Rollback()

	raw, err := s.getRaw(ctx, tx, key)
	if err != nil {
		return err
	}
	ev, err := decode(raw)
	if err != nil {
		return err
	}
	next, err := encode(fields.Apply(ev))
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE events SET doc = ? WHERE id = ?`), next, key); err != nil {
		return s.classify("update event", err)
	}
	if err := tx.Commit(); err != nil {
		return s.classify("commit update", err)
	}
	s.kick(key)
	return nil
}

// Subscribe implements store.DocumentStore. The row is polled every poll
// interval; a snapshot is delivered when the stored document changes, and
// again after a failed poll recovers.
func (s *Store) Subscribe(ctx context.Context, key string, onSnapshot func(store.Snapshot), onError func(error)) func() {
	feed := store.NewFeed(onSnapshot, onError)
	kick := make(chan struct{}, 1)
	s.mu.Lock()
	if s.watchers[key] == nil {
		s.watchers[key] = make(map[chan struct{}]struct{})
	}
	s.watchers[key][kick] = struct{}{}
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	go s.watch(ctx, key, feed, kick)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			s.mu.Lock()
			delete(s.watchers[key], kick)
			s.mu.Unlock()
			feed.Close()
		})
	}
}

func (s *Store) watch(ctx context.Context, key string, feed *store.Feed, kick <-chan struct{}) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var (
		last    *string
		lastErr string
	)
	poll := func() {
		raw, err := s.getRaw(ctx, s.db, key)
		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			if err.Error() != lastErr {
				logger.Warningf("sqlstore: poll %q: %v", key, err)
				feed.Fail(err)
				lastErr = err.Error()
			}
			return
		}
		current := ""
		if err == nil {
			current = raw
		}
		if last != nil && *last == current && lastErr == "" {
			return
		}
		lastErr = ""
		last = &current
		if current == "" {
			feed.Push(store.Snapshot{Exists: false})
			return
		}
		ev, derr := decode(current)
		if derr != nil {
			feed.Fail(derr)
			return
		}
		feed.Push(store.Snapshot{Event: ev, Exists: true})
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		case <-kick:
			poll()
		}
	}
}

func (s *Store) kick(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.watchers[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) getRaw(ctx context.Context, q queryer, key string) (string, error) {
	var raw string
	err := q.QueryRowContext(ctx, s.rebind(`SELECT doc FROM events WHERE id = ?`), key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", s.classify("get event", err)
	}
	return raw, nil
}

// classify wraps driver errors, marking a missing table as not provisioned.
func (s *Store) classify(op string, err error) error {
	if isUndefinedTable(err) {
		return fmt.Errorf("%s: %w: %v", op, store.ErrNotProvisioned, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	return strings.Contains(err.Error(), "no such table")
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func encode(ev models.Event) (string, error) {
	if ev.Users == nil {
		ev.Users = []models.User{}
	}
	if ev.Assignments == nil {
		ev.Assignments = []models.Assignment{}
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}
	return string(b), nil
}

func decode(raw string) (models.Event, error) {
	var ev models.Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return models.Event{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}
