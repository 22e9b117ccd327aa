package websocket

import (
	"sync"

	"codesync-server/config"
	"codesync-server/core"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

// fallbackUsername is broadcast when a connection disconnects without
// ever having joined, so recipients never see a blank name.
const fallbackUsername = "A user"

var (
	activeRooms = make(map[string]int)
	roomsMutex  sync.RWMutex
)

// GetActiveRooms returns a copy of the room membership counts.
func GetActiveRooms() map[string]int {
	roomsMutex.RLock()
	defer roomsMutex.RUnlock()

	rooms := make(map[string]int, len(activeRooms))
	for k, v := range activeRooms {
		rooms[k] = v
	}
	return rooms
}

func trackRoom(roomID string, users int) {
	roomsMutex.Lock()
	activeRooms[roomID] = users
	roomsMutex.Unlock()
}

// releaseRoom records that a member left a tracked room. It reports
// whether the room just became empty; untracked rooms (such as every
// socket's personal id room) report false.
func releaseRoom(roomID string, remaining int) bool {
	roomsMutex.Lock()
	defer roomsMutex.Unlock()

	if _, ok := activeRooms[roomID]; !ok {
		return false
	}
	if remaining == 0 {
		delete(activeRooms, roomID)
		return true
	}
	activeRooms[roomID] = remaining
	return false
}

// eventPayload pulls the single object argument out of a socket.io
// event. Clients emit one JSON object per event; anything else is
// treated as malformed.
func eventPayload(datas []any) map[string]any {
	if len(datas) == 0 {
		return nil
	}
	payload, _ := datas[0].(map[string]any)
	return payload
}

func stringField(payload map[string]any, key string) string {
	value, _ := payload[key].(string)
	return value
}

// syncPayload validates a sync-code event: a non-empty target and a
// string code. An explicit empty string is a valid resend; only an
// absent or non-string code skips the send.
func syncPayload(payload map[string]any) (targetID, code string, ok bool) {
	targetID = stringField(payload, "socketId")
	code, hasCode := payload["code"].(string)
	return targetID, code, targetID != "" && hasCode
}

func resolveUsername(presence core.PresenceStore, socketID string) string {
	if username, ok := presence.Get(socketID); ok {
		return username
	}
	return fallbackUsername
}

// buildRoster resolves the full member list of a room into roster
// entries, in membership-index order.
func buildRoster(presence core.PresenceStore, socketIDs []string) []core.Client {
	roster := make([]core.Client, 0, len(socketIDs))
	for _, id := range socketIDs {
		username, _ := presence.Get(id)
		roster = append(roster, core.Client{SocketID: id, Username: username})
	}
	return roster
}

// SetupSocketIO builds the socket.io server and registers the event
// router. The transport's adapter owns room membership; presence and
// snapshots live in the injected stores and are mutated only here.
func SetupSocketIO(cfg *config.Config, presence core.PresenceStore, snapshots core.SnapshotStore) *socketio.Server {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(5000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)

	origins := make([]any, 0, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		origins = append(origins, origin)
	}
	opts.SetCors(&types.Cors{
		Origin:      origins,
		Credentials: cfg.AllowCredentials(),
	})

	srv := socketio.NewServer(nil, opts)

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}

		me := string(socket.Id())
		logrus.WithField("socket_id", me).Debug("Socket connected")

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("join", func(datas ...any) {
			payload := eventPayload(datas)
			roomID := stringField(payload, "roomId")
			username := stringField(payload, "username")
			if roomID == "" || username == "" {
				logrus.WithFields(logrus.Fields{
					"socket_id": me,
					"room_id":   roomID,
				}).Warn("Dropping malformed join event")
				return
			}

			log := logrus.WithFields(logrus.Fields{
				"socket_id": me,
				"room_id":   roomID,
				"username":  username,
			})
			log.Info("User joining room")

			presence.Set(me, username)
			room := socketio.Room(roomID)
			socket.Join(room)

			srv.In(room).FetchSockets()(func(users []*socketio.RemoteSocket, fetchErr error) {
				if fetchErr != nil {
					// Roll the join back rather than leave the socket
					// in the room with no roster ever announced.
					log.WithError(fetchErr).Error("Failed to fetch room members, aborting join")
					socket.Leave(room)
					presence.Remove(me)
					return
				}

				trackRoom(roomID, len(users))

				memberIDs := make([]string, 0, len(users))
				for _, user := range users {
					memberIDs = append(memberIDs, string(user.Id()))
				}
				roster := buildRoster(presence, memberIDs)
				log.WithField("members", memberIDs).Debug("Room roster changed")

				// Every member, the joiner included, gets the same
				// full roster.
				_ = srv.In(room).Emit("joined", map[string]any{
					"clients":  roster,
					"username": username,
					"socketId": me,
				})

				// Late joiners catch up on the current document, sent
				// to the joining socket alone.
				if code, ok := snapshots.Load(roomID); ok {
					_ = socket.Emit("code-change", map[string]any{"code": code})
				}
			})
		})

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("code-change", func(datas ...any) {
			payload := eventPayload(datas)
			roomID := stringField(payload, "roomId")
			if roomID == "" {
				logrus.WithField("socket_id", me).Warn("Dropping code-change without room id")
				return
			}
			code, ok := payload["code"].(string)
			if !ok {
				logrus.WithFields(logrus.Fields{
					"socket_id": me,
					"room_id":   roomID,
				}).Warn("Dropping code-change without code")
				return
			}

			// Everyone but the sender; the sender already has the text.
			_ = socket.Broadcast().To(socketio.Room(roomID)).Emit("code-change", map[string]any{"code": code})
			snapshots.Save(roomID, code)
		})

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("sync-code", func(datas ...any) {
			targetID, code, ok := syncPayload(eventPayload(datas))
			if !ok {
				if targetID == "" {
					logrus.WithField("socket_id", me).Warn("Dropping sync-code without target")
				}
				return
			}

			// Directed resend: each socket is a member of its own id
			// room, so this reaches the target and nobody else.
			_ = srv.To(socketio.Room(targetID)).Emit("code-change", map[string]any{"code": code})
		})

		socket.On("disconnecting", func(datas ...any) {
			username := resolveUsername(presence, me)

			for _, currentRoom := range socket.Rooms().Keys() {
				roomID := string(currentRoom)
				srv.In(currentRoom).FetchSockets()(func(users []*socketio.RemoteSocket, _ error) {
					remaining := 0
					for _, userInRoom := range users {
						if string(userInRoom.Id()) != me {
							remaining++
						}
					}

					logrus.WithFields(logrus.Fields{
						"socket_id": me,
						"room_id":   roomID,
						"remaining": remaining,
					}).Debug("Socket leaving room")

					if remaining > 0 {
						_ = socket.Broadcast().To(currentRoom).Emit("disconnected", map[string]any{
							"socketId": me,
							"username": username,
						})
					}

					if releaseRoom(roomID, remaining) {
						snapshots.Clear(roomID)
					}
				})
			}

			presence.Remove(me)
		})

		socket.On("disconnect", func(datas ...any) {
			socket.RemoveAllListeners("")
			socket.Disconnect(true)
		})
	})

	return srv
}
