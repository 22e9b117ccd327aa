package memory

import (
	"fmt"
	"sync"
	"testing"
)

func TestNewStore(t *testing.T) {
	store := NewStore()
	if store == nil {
		t.Fatal("NewStore() returned nil")
	}
}

func TestPresence_SetGet(t *testing.T) {
	store := NewStore()

	store.Set("socket-1", "alice")

	username, ok := store.Get("socket-1")
	if !ok {
		t.Fatal("Get() did not find socket-1")
	}
	if username != "alice" {
		t.Errorf("Get() returned %q, want %q", username, "alice")
	}
}

func TestPresence_GetUnknown(t *testing.T) {
	store := NewStore()

	if _, ok := store.Get("nonexistent"); ok {
		t.Error("Get() found an entry for an unknown socket")
	}
}

func TestPresence_OneUsernamePerSocket(t *testing.T) {
	store := NewStore()

	store.Set("socket-1", "alice")
	store.Set("socket-1", "bob")

	username, ok := store.Get("socket-1")
	if !ok {
		t.Fatal("Get() did not find socket-1")
	}
	if username != "bob" {
		t.Errorf("Get() returned %q, want the latest name %q", username, "bob")
	}
}

func TestPresence_SharedUsernames(t *testing.T) {
	store := NewStore()

	// Display names carry no identity guarantee; two sockets may use
	// the same one.
	store.Set("socket-1", "alice")
	store.Set("socket-2", "alice")

	for _, id := range []string{"socket-1", "socket-2"} {
		username, ok := store.Get(id)
		if !ok || username != "alice" {
			t.Errorf("Get(%s) = %q, %v; want %q, true", id, username, ok, "alice")
		}
	}
}

func TestPresence_Remove(t *testing.T) {
	store := NewStore()

	store.Set("socket-1", "alice")
	store.Remove("socket-1")

	if _, ok := store.Get("socket-1"); ok {
		t.Error("Get() found socket-1 after Remove()")
	}
}

func TestSnapshot_SaveLoad(t *testing.T) {
	store := NewStore()

	store.Save("room-1", "print('hi')")

	code, ok := store.Load("room-1")
	if !ok {
		t.Fatal("Load() did not find room-1")
	}
	if code != "print('hi')" {
		t.Errorf("Load() returned %q, want %q", code, "print('hi')")
	}
}

func TestSnapshot_LoadUnknownRoom(t *testing.T) {
	store := NewStore()

	if _, ok := store.Load("nonexistent"); ok {
		t.Error("Load() found a snapshot for an unknown room")
	}
}

func TestSnapshot_LastWriteWins(t *testing.T) {
	store := NewStore()

	store.Save("room-1", "X")
	store.Save("room-1", "Y")

	code, ok := store.Load("room-1")
	if !ok {
		t.Fatal("Load() did not find room-1")
	}
	if code != "Y" {
		t.Errorf("Load() returned %q, want the last write %q", code, "Y")
	}
}

func TestSnapshot_Clear(t *testing.T) {
	store := NewStore()

	store.Save("room-1", "X")
	store.Clear("room-1")

	if _, ok := store.Load("room-1"); ok {
		t.Error("Load() found room-1 after Clear()")
	}
}

func TestSnapshot_RoomsAreIsolated(t *testing.T) {
	store := NewStore()

	store.Save("room-1", "one")
	store.Save("room-2", "two")
	store.Clear("room-1")

	if _, ok := store.Load("room-1"); ok {
		t.Error("room-1 snapshot survived Clear()")
	}
	code, ok := store.Load("room-2")
	if !ok || code != "two" {
		t.Errorf("Load(room-2) = %q, %v; want %q, true", code, ok, "two")
	}
}

func TestSnapshot_EmptyCode(t *testing.T) {
	store := NewStore()

	// An empty document is still a snapshot; absence and emptiness are
	// distinct.
	store.Save("room-1", "")

	code, ok := store.Load("room-1")
	if !ok {
		t.Fatal("Load() did not find an empty snapshot")
	}
	if code != "" {
		t.Errorf("Load() returned %q, want empty string", code)
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewStore()

	numGoroutines := 20
	var wg sync.WaitGroup

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()

			socketID := fmt.Sprintf("socket-%d", index)
			roomID := fmt.Sprintf("room-%d", index%5)

			store.Set(socketID, "user")
			store.Save(roomID, "code")
			store.Load(roomID)
			store.Get(socketID)
			store.Remove(socketID)
		}(i)
	}

	wg.Wait()

	for i := 0; i < numGoroutines; i++ {
		if _, ok := store.Get(fmt.Sprintf("socket-%d", i)); ok {
			t.Errorf("socket-%d still present after Remove()", i)
		}
	}
	for i := 0; i < 5; i++ {
		if _, ok := store.Load(fmt.Sprintf("room-%d", i)); !ok {
			t.Errorf("room-%d snapshot missing after concurrent writes", i)
		}
	}
}
