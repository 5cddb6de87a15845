package convstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
)

type memoryStore struct {
	mu   sync.RWMutex
	recs map[string][]byte
}

func NewMemoryStore() Store {
	return &memoryStore{recs: map[string][]byte{}}
}

func memKey(ownerID, id string) string { return ownerID + "/" + id }

// Records are stored encoded so callers never share slices with the store.
func (s *memoryStore) Save(_ context.Context, rec *Record) error {
	if rec == nil || rec.ID == "" || rec.OwnerID == "" {
		return fmt.Errorf("%w: conversation id and owner required", apperr.ErrInvalidArgument)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.recs[memKey(rec.OwnerID, rec.ID)] = raw
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Get(_ context.Context, ownerID, id string) (*Record, error) {
	s.mu.RLock()
	raw, ok := s.recs[memKey(ownerID, id)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, apperr.ErrNotFound)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *memoryStore) List(_ context.Context, ownerID string) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Summary{}
	for _, raw := range s.recs {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, err
		}
		if rec.OwnerID == ownerID {
			out = append(out, rec.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *memoryStore) Delete(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey(ownerID, id)
	if _, ok := s.recs[k]; !ok {
		return fmt.Errorf("conversation %s: %w", id, apperr.ErrNotFound)
	}
	delete(s.recs, k)
	return nil
}

func (s *memoryStore) Ping(context.Context) error { return nil }

func (s *memoryStore) Close() error { return nil }
