package stores

import (
	"codesync-server/core"
	"codesync-server/stores/memory"

	"github.com/sirupsen/logrus"
)

// Store is a union interface covering everything the event router
// needs: who is connected, and the last code snapshot per room.
type Store interface {
	core.PresenceStore
	core.SnapshotStore
}

// GetStore returns the backing store for presence and snapshots. Both
// live and die with the process, so the only backend is in-memory;
// anything durable would have to survive restarts, which this relay
// deliberately does not promise.
func GetStore() Store {
	store := memory.NewStore()
	logrus.WithField("storageType", "in-memory").Info("Use storage")
	return store
}
