package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/bingoparty-backend/internal/entity"
)

// Sender is the transport-side message sink for one connection. Delivery is
// best-effort; implementations must not block the caller.
type Sender interface {
	Send(event string, payload any)
}

type connection struct {
	id           string
	sender       Sender
	identity     string
	admin        bool
	connectedAt  time.Time
	lastActivity time.Time
}

// Registry maps ephemeral connections to durable player identities. At most
// one connection resolves for an identity at a time; a newly bound connection
// supersedes the previous one, which stays open but orphaned.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*connection
	byIdentity  map[string]string
}

func New() *Registry {
	return &Registry{
		connections: make(map[string]*connection),
		byIdentity:  make(map[string]string),
	}
}

// Register creates a connection record with no identity bound yet and returns
// its id.
func (that *Registry) Register(sender Sender) string {
	that.mu.Lock()
	defer that.mu.Unlock()

	now := time.Now()
	conn := &connection{
		id:           uuid.NewString(),
		sender:       sender,
		connectedAt:  now,
		lastActivity: now,
	}
	that.connections[conn.id] = conn

	return conn.id
}

// Unregister removes the connection record. Durable player state is untouched;
// the identity simply becomes unreachable until the next bind.
func (that *Registry) Unregister(connID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	conn, ok := that.connections[connID]
	if !ok {
		return
	}

	delete(that.connections, connID)

	if conn.identity != "" && that.byIdentity[conn.identity] == connID {
		delete(that.byIdentity, conn.identity)
	}
}

// Bind associates a connection with a durable identity token, superseding any
// previous connection bound to that token. Rebinding the same pair is a no-op.
// The superseded connection remains open but is no longer the delivery target.
func (that *Registry) Bind(connID, identityToken string, admin bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	conn, ok := that.connections[connID]
	if !ok {
		return
	}

	if conn.identity == identityToken {
		conn.admin = conn.admin || admin
		return
	}

	if prevID, ok := that.byIdentity[identityToken]; ok && prevID != connID {
		if prev, ok := that.connections[prevID]; ok {
			prev.identity = ""
		}
	}

	if conn.identity != "" && that.byIdentity[conn.identity] == connID {
		delete(that.byIdentity, conn.identity)
	}

	conn.identity = identityToken
	conn.admin = admin
	that.byIdentity[identityToken] = connID
}

// ConnectionByIdentity resolves the current connection for an identity.
// A false return means the player is currently unreachable, not an error.
func (that *Registry) ConnectionByIdentity(identityToken string) (string, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	connID, ok := that.byIdentity[identityToken]
	return connID, ok
}

// IdentityByConnection resolves the identity bound to a connection, if any.
func (that *Registry) IdentityByConnection(connID string) (string, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	conn, ok := that.connections[connID]
	if !ok || conn.identity == "" {
		return "", false
	}

	return conn.identity, true
}

// IsAdmin reports whether the connection was bound with admin rights.
func (that *Registry) IsAdmin(connID string) bool {
	that.mu.RLock()
	defer that.mu.RUnlock()

	conn, ok := that.connections[connID]
	return ok && conn.admin
}

// Touch updates the connection's last-activity timestamp.
func (that *Registry) Touch(connID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if conn, ok := that.connections[connID]; ok {
		conn.lastActivity = time.Now()
	}
}

// SenderFor returns the message sink for a connection.
func (that *Registry) SenderFor(connID string) (Sender, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	conn, ok := that.connections[connID]
	if !ok {
		return nil, false
	}

	return conn.sender, true
}

// Senders returns every connection's message sink keyed by connection id.
func (that *Registry) Senders() map[string]Sender {
	that.mu.RLock()
	defer that.mu.RUnlock()

	out := make(map[string]Sender, len(that.connections))
	for id, conn := range that.connections {
		out[id] = conn.sender
	}

	return out
}

// Players returns a snapshot of connected participants with a bound identity.
func (that *Registry) Players() []*entity.Player {
	that.mu.RLock()
	defer that.mu.RUnlock()

	players := make([]*entity.Player, 0, len(that.connections))

	for _, conn := range that.connections {
		if conn.identity == "" {
			continue
		}

		if that.byIdentity[conn.identity] != conn.id {
			continue
		}

		players = append(players, &entity.Player{
			ID:           conn.identity,
			ConnectionID: conn.id,
			Admin:        conn.admin,
			LastActivity: conn.lastActivity,
		})
	}

	return players
}
