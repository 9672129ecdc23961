package chat

import (
	"sync"

	"github.com/dalemusser/ghostwire/internal/app/system/auth"
	"go.uber.org/zap"
)

// Registry maps live connections to identities and room memberships.
//
// All mutations are serialized under one mutex, so a concurrent join and
// disconnect for the same room cannot lose updates. Room membership only
// grows per connection (there is no single-room leave); LeaveAll on
// disconnect is the sole teardown path.
type Registry struct {
	mu         sync.RWMutex
	identities map[*Client]*auth.Identity
	rooms      map[string]map[*Client]struct{}
	log        *zap.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		identities: make(map[*Client]*auth.Identity),
		rooms:      make(map[string]map[*Client]struct{}),
		log:        logger,
	}
}

// Bind attaches the authenticated identity to the connection and auto-joins
// the identity's private room (keyed by the user id) so direct messages can
// be delivered without an explicit subscription. Called exactly once per
// connection, at successful handshake.
func (reg *Registry) Bind(c *Client, id *auth.Identity) {
	reg.mu.Lock()
	reg.identities[c] = id
	reg.joinLocked(c, id.ID)
	total := len(reg.identities)
	reg.mu.Unlock()

	reg.log.Info("connection bound",
		zap.String("user_id", id.ID),
		zap.String("username", id.Username),
		zap.Int("connections", total))
}

// Identity returns the identity bound to the connection, if any.
func (reg *Registry) Identity(c *Client) (*auth.Identity, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	id, ok := reg.identities[c]
	return id, ok
}

// Join adds the connection to a room. Idempotent: joining twice leaves the
// same single membership, so broadcasts are never duplicated for one call.
func (reg *Registry) Join(c *Client, roomKey string) {
	reg.mu.Lock()
	reg.joinLocked(c, roomKey)
	reg.mu.Unlock()
}

func (reg *Registry) joinLocked(c *Client, roomKey string) {
	room, ok := reg.rooms[roomKey]
	if !ok {
		room = make(map[*Client]struct{})
		reg.rooms[roomKey] = room
	}
	room[c] = struct{}{}
}

// LeaveAll removes the connection from every room and drops its identity
// binding. Called on disconnect; empty rooms are deleted.
func (reg *Registry) LeaveAll(c *Client) {
	reg.mu.Lock()
	for key, room := range reg.rooms {
		delete(room, c)
		if len(room) == 0 {
			delete(reg.rooms, key)
		}
	}
	id := reg.identities[c]
	delete(reg.identities, c)
	total := len(reg.identities)
	reg.mu.Unlock()

	if id != nil {
		reg.log.Info("connection released",
			zap.String("user_id", id.ID),
			zap.Int("connections", total))
	}
}

// RoomSize returns the number of connections currently in a room.
func (reg *Registry) RoomSize(roomKey string) int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms[roomKey])
}

// InRoom reports whether the connection is a member of the room.
func (reg *Registry) InRoom(c *Client, roomKey string) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	_, ok := reg.rooms[roomKey][c]
	return ok
}

// Broadcast delivers the frame to every connection currently in the room,
// at most once per connection per call. Connections whose send buffers are
// full are dropped from the registry; their pumps notice the closed channel
// and tear down the socket.
func (reg *Registry) Broadcast(roomKey string, frame []byte) {
	if frame == nil {
		return
	}

	reg.mu.RLock()
	members := make([]*Client, 0, len(reg.rooms[roomKey]))
	for c := range reg.rooms[roomKey] {
		members = append(members, c)
	}
	reg.mu.RUnlock()

	var stalled []*Client
	for _, c := range members {
		if !c.trySend(frame) {
			stalled = append(stalled, c)
		}
	}
	for _, c := range stalled {
		reg.log.Warn("dropping connection with full send buffer",
			zap.String("room", roomKey))
		reg.LeaveAll(c)
		c.close()
	}
}
