package store

import (
	"context"
	"sync"
	"time"

	"burn.note/internal/models"
)

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

type MemoryStore struct {
	messages      map[string]*models.Message
	responses     map[string][]*models.Response
	mu            sync.RWMutex
	cleanupCancel context.CancelFunc
}

func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	ctx, cancel := context.WithCancel(context.Background())
	store := &MemoryStore{
		messages:      make(map[string]*models.Message),
		responses:     make(map[string][]*models.Response),
		cleanupCancel: cancel,
	}
	go store.cleanupLoop(ctx, cleanupInterval)
	return store
}

func (s *MemoryStore) SaveMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *msg
	s.messages[msg.ID] = &cp
	return nil
}

func (s *MemoryStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok || time.Now().After(msg.ExpiresAt) {
		return nil, ErrNotFound
	}

	cp := *msg
	return &cp, nil
}

func (s *MemoryStore) UpdateMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.messages[msg.ID]
	if !ok || time.Now().After(existing.ExpiresAt) {
		return ErrNotFound
	}

	cp := *msg
	s.messages[msg.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteMessage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[id]; !ok {
		return ErrNotFound
	}

	// Both maps are cleared under the same lock; no caller can observe the
	// message gone with its responses still present.
	delete(s.messages, id)
	delete(s.responses, id)
	return nil
}

func (s *MemoryStore) SaveResponse(ctx context.Context, resp *models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent, ok := s.messages[resp.MessageID]
	if !ok || time.Now().After(parent.ExpiresAt) {
		return ErrNotFound
	}

	cp := *resp
	s.responses[resp.MessageID] = append(s.responses[resp.MessageID], &cp)
	return nil
}

func (s *MemoryStore) ListResponses(ctx context.Context, messageID string) ([]*models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.responses[messageID]
	out := make([]*models.Response, 0, len(stored))
	for _, resp := range stored {
		cp := *resp
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	if s.cleanupCancel != nil {
		s.cleanupCancel()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.responses = nil
	return nil
}

func (s *MemoryStore) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, msg := range s.messages {
		if now.After(msg.ExpiresAt) {
			delete(s.messages, id)
			delete(s.responses, id)
		}
	}
}
