package memory

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// memStore implements both PresenceStore and SnapshotStore. One mutex
// guards both maps: join and disconnect touch presence and snapshots
// together, and handlers for distinct sockets may run on different
// goroutines.
type memStore struct {
	mu        sync.RWMutex
	usernames map[string]string
	snapshots map[string]string
}

func NewStore() *memStore {
	return &memStore{
		usernames: make(map[string]string),
		snapshots: make(map[string]string),
	}
}

// PresenceStore implementation

func (s *memStore) Set(socketID, username string) {
	s.mu.Lock()
	s.usernames[socketID] = username
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"socket_id": socketID,
		"username":  username,
	}).Debug("Presence recorded")
}

func (s *memStore) Get(socketID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	username, ok := s.usernames[socketID]
	return username, ok
}

func (s *memStore) Remove(socketID string) {
	s.mu.Lock()
	delete(s.usernames, socketID)
	s.mu.Unlock()

	logrus.WithField("socket_id", socketID).Debug("Presence removed")
}

// SnapshotStore implementation

func (s *memStore) Save(roomID, code string) {
	s.mu.Lock()
	s.snapshots[roomID] = code
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"room_id":     roomID,
		"code_length": len(code),
	}).Debug("Snapshot saved")
}

func (s *memStore) Load(roomID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	code, ok := s.snapshots[roomID]
	return code, ok
}

// Clear drops a room's snapshot. Called when the last member leaves so
// a long-lived process does not accumulate one stale snapshot per
// ever-used room.
func (s *memStore) Clear(roomID string) {
	s.mu.Lock()
	delete(s.snapshots, roomID)
	s.mu.Unlock()

	logrus.WithField("room_id", roomID).Debug("Snapshot cleared")
}
