package assistant

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Quota tracks a per-user monthly message allowance.
type Quota interface {
	UseToken(ctx context.Context, uid string) error
	EnsureUser(ctx context.Context, uid string) error
}

// Store handles ai_usage persistence.
type Store struct {
	db      *pgxpool.Pool
	monthly int
}

// NewStore returns a Store granting monthly tokens per user; zero means DefaultTokens.
func NewStore(db *pgxpool.Pool, monthly int) *Store {
	if monthly <= 0 {
		monthly = DefaultTokens
	}
	return &Store{db: db, monthly: monthly}
}

// UseToken atomically checks the monthly quota and deducts one token.
// It resets the counter when last_reset_month is behind the current month.
// Returns ErrInsufficientTokens when 0 rows are updated (quota exhausted or user absent).
func (s *Store) UseToken(ctx context.Context, uid string) error {
	now := time.Now().Format("2006-01")

	tag, err := s.db.Exec(ctx, `
		UPDATE ai_usage SET
			tokens_remaining = CASE WHEN last_reset_month != $1 THEN $2 - 1 ELSE tokens_remaining - 1 END,
			last_reset_month = $1
		WHERE uid = $3 AND (last_reset_month < $1 OR tokens_remaining > 0)
	`, now, s.monthly, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientTokens
	}
	return nil
}

// EnsureUser inserts a new ai_usage row for uid with the full allowance.
func (s *Store) EnsureUser(ctx context.Context, uid string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ai_usage (uid, tokens_remaining, last_reset_month)
		VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO NOTHING
	`, uid, s.monthly, time.Now().Format("2006-01"))
	return err
}

type usage struct {
	remaining int
	month     string
}

// MemoryQuota is an in-process Quota with the same reset rules as Store.
type MemoryQuota struct {
	mu      sync.Mutex
	monthly int
	users   map[string]usage
	now     func() time.Time
}

func NewMemoryQuota(monthly int) *MemoryQuota {
	if monthly <= 0 {
		monthly = DefaultTokens
	}
	return &MemoryQuota{monthly: monthly, users: make(map[string]usage), now: time.Now}
}

func (m *MemoryQuota) UseToken(ctx context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[uid]
	if !ok {
		return ErrInsufficientTokens
	}
	month := m.now().Format("2006-01")
	if u.month < month {
		u = usage{remaining: m.monthly, month: month}
	}
	if u.remaining <= 0 {
		return ErrInsufficientTokens
	}
	u.remaining--
	m.users[uid] = u
	return nil
}

func (m *MemoryQuota) EnsureUser(ctx context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[uid]; !ok {
		m.users[uid] = usage{remaining: m.monthly, month: m.now().Format("2006-01")}
	}
	return nil
}

func (m *MemoryQuota) Remaining(uid string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[uid].remaining
}
