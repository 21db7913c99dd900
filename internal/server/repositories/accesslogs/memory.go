package accesslogs

import (
	"context"
	"sync"
	"time"

	"github.com/loginsys/authd/internal/server/models"
)

// MemoryRepository keeps entries in a slice. Err, when set, is returned by
// Append instead of storing the entry.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []models.AccessLogEntry
	Err     error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Append(ctx context.Context, entry *models.AccessLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now()
	}
	entry.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, *entry)
	return nil
}

// Entries returns a copy of everything appended so far, oldest first.
func (r *MemoryRepository) Entries() []models.AccessLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AccessLogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
