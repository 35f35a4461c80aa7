// Package session holds the per-sender wallet snapshot that makes
// follow-up questions stateful. A sender has at most one snapshot; each
// successful lookup replaces it wholesale, and last write wins when the
// same sender races itself.
package session

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/solsage/solsage/internal/models"
)

// Store is the per-sender snapshot cache. Implementations are injected
// into the router at construction time; the router never touches a
// hidden global.
type Store interface {
	// Get returns the sender's snapshot, with false when the sender has
	// no session yet.
	Get(ctx context.Context, senderID string) (*models.WalletSnapshot, bool, error)

	// Set replaces the sender's snapshot.
	Set(ctx context.Context, senderID string, snapshot *models.WalletSnapshot) error
}

// Capacity bound for the in-memory store. Sessions live for the process
// lifetime in practice; the bound only protects a public chat surface
// from unbounded growth.
const defaultCapacity = 16384

// MemoryStore is the default in-process Store.
type MemoryStore struct {
	cache *lru.Cache[string, *models.WalletSnapshot]
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore() (*MemoryStore, error) {
	cache, err := lru.New[string, *models.WalletSnapshot](defaultCapacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &MemoryStore{cache: cache}, nil
}

// Get returns the sender's snapshot, if any.
func (s *MemoryStore) Get(_ context.Context, senderID string) (*models.WalletSnapshot, bool, error) {
	snapshot, ok := s.cache.Get(senderID)
	return snapshot, ok, nil
}

// Set replaces the sender's snapshot.
func (s *MemoryStore) Set(_ context.Context, senderID string, snapshot *models.WalletSnapshot) error {
	s.cache.Add(senderID, snapshot)
	return nil
}
