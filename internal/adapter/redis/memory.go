package redis

import (
	"context"
	"sync"

	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	"github.com/Temutjin2k/driver-engine/internal/domain/types"
	"github.com/google/uuid"
)

// MemoryIntentStore is used when no Redis is configured. The intent is lost
// on restart.
type MemoryIntentStore struct {
	mu     sync.RWMutex
	intent models.Intent
}

func NewMemoryIntentStore() *MemoryIntentStore {
	return &MemoryIntentStore{}
}

func (s *MemoryIntentStore) Load(context.Context) (models.Intent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.intent, nil
}

func (s *MemoryIntentStore) SetOnline(_ context.Context, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intent.Online = online
	return nil
}

func (s *MemoryIntentStore) SetDriver(_ context.Context, driverID uuid.UUID) error {
	if driverID == uuid.Nil {
		return types.ErrNoDriverID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intent.DriverID = driverID
	return nil
}

func (s *MemoryIntentStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intent = models.Intent{}
	return nil
}
