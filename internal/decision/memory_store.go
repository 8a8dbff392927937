package decision

import (
	"context"
	"sort"
	"sync"

	"github.com/mbd888/sentinel/internal/pagination"
)

// MemoryStore is an in-memory assessment store for tests and development.
type MemoryStore struct {
	mu            sync.RWMutex
	byID          map[string]*AssessmentResult
	byTransaction map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:          make(map[string]*AssessmentResult),
		byTransaction: make(map[string]string),
	}
}

func (s *MemoryStore) Insert(_ context.Context, a *AssessmentResult) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byTransaction[a.TransactionID]; exists {
		return false, nil
	}
	cp := *a
	s.byID[a.AssessmentID] = &cp
	s.byTransaction[a.TransactionID] = a.AssessmentID
	return true, nil
}

func (s *MemoryStore) GetByTransaction(_ context.Context, transactionID string) (*AssessmentResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byTransaction[transactionID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryStore) ListByDecision(_ context.Context, d Decision, limit int, cursor *pagination.Cursor) ([]*AssessmentResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*AssessmentResult
	for _, a := range s.byID {
		if a.Decision != d {
			continue
		}
		if cursor != nil && !beforeCursor(a, cursor) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].AssessmentID > out[j].AssessmentID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// beforeCursor reports whether a sorts strictly after the cursor position in
// the newest-first ordering on (created_at, id).
func beforeCursor(a *AssessmentResult, c *pagination.Cursor) bool {
	if a.CreatedAt.Equal(c.CreatedAt) {
		return a.AssessmentID < c.ID
	}
	return a.CreatedAt.Before(c.CreatedAt)
}

func (s *MemoryStore) UpdateReview(_ context.Context, assessmentID string, upd ReviewUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[assessmentID]
	if !ok {
		return ErrNotFound
	}
	a.ReviewStatus = upd.Status
	a.ReviewNotes = upd.Notes
	a.ReviewerID = upd.ReviewerID
	at := upd.ReviewedAt
	a.ReviewedAt = &at
	return nil
}
