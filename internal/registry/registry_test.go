package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopSender struct{}

func (nopSender) Send(_ string, _ any) {}

func TestRegistry_RegisterAndBind(t *testing.T) {
	// Given: a registry with one registered connection
	reg := New()
	connID := reg.Register(nopSender{})
	require.NotEmpty(t, connID)

	// When: the connection binds a durable identity
	reg.Bind(connID, "alice", false)

	// Then: both directions resolve
	resolved, ok := reg.ConnectionByIdentity("alice")
	require.True(t, ok)
	assert.Equal(t, connID, resolved)

	identity, ok := reg.IdentityByConnection(connID)
	require.True(t, ok)
	assert.Equal(t, "alice", identity)
}

func TestRegistry_RebindSupersedes(t *testing.T) {
	// Given: an identity bound to a first connection
	reg := New()
	first := reg.Register(nopSender{})
	reg.Bind(first, "alice", false)

	// When: a second connection binds the same identity
	second := reg.Register(nopSender{})
	reg.Bind(second, "alice", false)

	// Then: only the new connection resolves for the identity
	resolved, ok := reg.ConnectionByIdentity("alice")
	require.True(t, ok)
	assert.Equal(t, second, resolved)

	// Then: the old connection is orphaned but still registered
	_, ok = reg.IdentityByConnection(first)
	assert.False(t, ok)
	_, ok = reg.SenderFor(first)
	assert.True(t, ok)
}

func TestRegistry_RebindSamePairIsNoop(t *testing.T) {
	// Given: a bound admin connection
	reg := New()
	connID := reg.Register(nopSender{})
	reg.Bind(connID, "alice", true)

	// When: the same pair binds again without the admin flag
	reg.Bind(connID, "alice", false)

	// Then: the binding and its admin right survive
	resolved, ok := reg.ConnectionByIdentity("alice")
	require.True(t, ok)
	assert.Equal(t, connID, resolved)
	assert.True(t, reg.IsAdmin(connID))
}

func TestRegistry_Unregister(t *testing.T) {
	// Given: a bound connection
	reg := New()
	connID := reg.Register(nopSender{})
	reg.Bind(connID, "alice", false)

	// When: the connection goes away
	reg.Unregister(connID)

	// Then: the identity is unreachable, not an error
	_, ok := reg.ConnectionByIdentity("alice")
	assert.False(t, ok)
	_, ok = reg.SenderFor(connID)
	assert.False(t, ok)
}

func TestRegistry_UnregisterSupersededConnection(t *testing.T) {
	// Given: an identity rebound from a first connection to a second
	reg := New()
	first := reg.Register(nopSender{})
	reg.Bind(first, "alice", false)
	second := reg.Register(nopSender{})
	reg.Bind(second, "alice", false)

	// When: the orphaned first connection disconnects
	reg.Unregister(first)

	// Then: the identity still resolves to the second connection
	resolved, ok := reg.ConnectionByIdentity("alice")
	require.True(t, ok)
	assert.Equal(t, second, resolved)
}

func TestRegistry_Players(t *testing.T) {
	// Given: one bound connection and one anonymous connection
	reg := New()
	bound := reg.Register(nopSender{})
	reg.Bind(bound, "alice", false)
	reg.Register(nopSender{})

	// When: connected players are listed
	players := reg.Players()

	// Then: only bound identities appear
	require.Len(t, players, 1)
	assert.Equal(t, "alice", players[0].ID)
	assert.Equal(t, bound, players[0].ConnectionID)
	assert.True(t, players[0].IsOnline())
}

func TestRegistry_Canonicalize(t *testing.T) {
	reg := New()
	connID := reg.Register(nopSender{})
	reg.Bind(connID, "alice", false)

	t.Run("identity token resolves as identity", func(t *testing.T) {
		ref := reg.Canonicalize("alice")
		assert.Equal(t, IdentityRef, ref.Kind)
		assert.Equal(t, "alice", ref.Identity)
	})

	t.Run("raw connection id falls back to its bound identity", func(t *testing.T) {
		ref := reg.Canonicalize(connID)
		assert.Equal(t, ConnectionRef, ref.Kind)
		assert.Equal(t, "alice", ref.Identity)
	})

	t.Run("unknown value is treated as a durable identity", func(t *testing.T) {
		ref := reg.Canonicalize("offline-player")
		assert.Equal(t, IdentityRef, ref.Kind)
		assert.Equal(t, "offline-player", ref.Identity)
	})

	t.Run("identity resolution wins over connection resolution", func(t *testing.T) {
		// Given: a connection whose raw id doubles as someone's identity token
		other := reg.Register(nopSender{})
		reg.Bind(other, connID, false)

		// Then: the durable namespace is tried first
		ref := reg.Canonicalize(connID)
		assert.Equal(t, IdentityRef, ref.Kind)
		assert.Equal(t, connID, ref.Identity)
	})
}
