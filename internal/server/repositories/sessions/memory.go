package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/loginsys/authd/internal/common"
	"github.com/loginsys/authd/internal/server/models"
)

// UserLookup is the part of the users repository the in-memory join needs.
type UserLookup interface {
	FindActiveByID(ctx context.Context, id int64) (*models.User, error)
}

// MemoryRepository is a map-backed Repository for tests and local tooling.
type MemoryRepository struct {
	mu      sync.Mutex
	users   UserLookup
	ttl     time.Duration
	now     func() time.Time
	nextID  int64
	byToken map[string]*models.Session
}

func NewMemoryRepository(users UserLookup, ttl time.Duration) *MemoryRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryRepository{
		users:   users,
		ttl:     ttl,
		now:     time.Now,
		byToken: make(map[string]*models.Session),
	}
}

// WithClock replaces the time source used for expiry computation and checks.
func (r *MemoryRepository) WithClock(now func() time.Time) *MemoryRepository {
	r.now = now
	return r
}

func (r *MemoryRepository) Create(ctx context.Context, userID int64, token, ip, userAgent string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byToken[token]; dup {
		return 0, fmt.Errorf("error performing sql request: duplicate token")
	}
	r.nextID++
	createdAt := r.now()
	r.byToken[token] = &models.Session{
		ID:        r.nextID,
		UserID:    userID,
		Token:     token,
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(r.ttl),
	}
	return r.nextID, nil
}

func (r *MemoryRepository) FindValidUserByToken(ctx context.Context, token string) (*models.User, error) {
	r.mu.Lock()
	s, ok := r.byToken[token]
	valid := ok && s.ValidAt(r.now())
	r.mu.Unlock()
	if !valid {
		return nil, common.ErrorNotFound
	}
	return r.users.FindActiveByID(ctx, s.UserID)
}

func (r *MemoryRepository) DeleteByToken(ctx context.Context, token string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byToken[token]; !ok {
		return 0, nil
	}
	delete(r.byToken, token)
	return 1, nil
}

func (r *MemoryRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for token, s := range r.byToken {
		if s.ExpiresAt.Before(now) {
			delete(r.byToken, token)
			n++
		}
	}
	return n, nil
}

// Get returns a copy of the session stored for token.
func (r *MemoryRepository) Get(token string) (models.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byToken[token]
	if !ok {
		return models.Session{}, false
	}
	return *s, true
}

// Expire moves the expiry of token's session to at.
func (r *MemoryRepository) Expire(token string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byToken[token]; ok {
		s.ExpiresAt = at
	}
}

// Len reports how many sessions are stored, expired or not.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byToken)
}
