package database

import (
	"sync"
)

// MemPresenceCache 进程内在线表，重启即清零
type MemPresenceCache struct {
	mu    sync.RWMutex
	peers map[string]string
}

// NewMemPresenceCache NewMemPresenceCache
func NewMemPresenceCache() *MemPresenceCache {
	return &MemPresenceCache{
		peers: make(map[string]string),
	}
}

// AddPresence AddPresence
func (c *MemPresenceCache) AddPresence(handle, peerID string) error {
	c.mu.Lock()
	c.peers[handle] = peerID
	c.mu.Unlock()
	return nil
}

// DelPresence DelPresence
func (c *MemPresenceCache) DelPresence(handle string) error {
	c.mu.Lock()
	delete(c.peers, handle)
	c.mu.Unlock()
	return nil
}

// GetPresence returns the peerID, empty when offline
func (c *MemPresenceCache) GetPresence(handle string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.peers[handle], nil
}

// AllPresence all online handles
func (c *MemPresenceCache) AllPresence() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	handles := make([]string, 0, len(c.peers))
	for handle := range c.peers {
		handles = append(handles, handle)
	}
	return handles, nil
}
