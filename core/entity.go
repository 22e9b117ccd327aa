package core

type (
	// Client is one roster entry: a live socket and the display name it
	// registered on join. Usernames carry no identity guarantee; two
	// connections may share one.
	Client struct {
		SocketID string `json:"socketId"`
		Username string `json:"username"`
	}

	// PresenceStore maps a live connection to its display name. Entries
	// exist from join to disconnect, at most one per connection.
	PresenceStore interface {
		Set(socketID, username string)
		Get(socketID string) (string, bool)
		Remove(socketID string)
	}

	// SnapshotStore holds the last-known full document text per room.
	// Save overwrites wholesale; the latest write wins, no history is
	// kept.
	SnapshotStore interface {
		Save(roomID, code string)
		Load(roomID string) (string, bool)
		Clear(roomID string)
	}
)
