package identity

import (
	"context"
	"maps"
	"sync"

	"ezfin/internal/core"
)

// Memory is an in-process Provider for development and tests. Unknown
// users are created on first write.
type Memory struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	metadata map[string]map[string]any
}

var _ Provider = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		profiles: make(map[string]Profile),
		metadata: make(map[string]map[string]any),
	}
}

// PutProfile registers or replaces a user's profile.
func (m *Memory) PutProfile(p Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
}

func (m *Memory) Profile(_ context.Context, userID string) (Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		if _, known := m.metadata[userID]; !known {
			return Profile{}, core.ErrNotFound
		}
		return Profile{ID: userID}, nil
	}
	return p, nil
}

func (m *Memory) PublicMetadata(_ context.Context, userID string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.metadata[userID]), nil
}

func (m *Memory) MergePublicMetadata(_ context.Context, userID string, patch map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	md, ok := m.metadata[userID]
	if !ok {
		md = make(map[string]any, len(patch))
		m.metadata[userID] = md
	}
	for k, v := range patch {
		if v == nil {
			delete(md, k)
			continue
		}
		md[k] = v
	}
	return nil
}
