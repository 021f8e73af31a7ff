package registry

// RefKind tags how a client-supplied id was resolved. Legacy clients send a
// raw connection id where newer clients send a durable identity token; both
// namespaces coexist on the wire.
type RefKind int

const (
	IdentityRef RefKind = iota
	ConnectionRef
)

// Ref is the canonical form of an ambiguous client id: the durable identity
// token it stands for, plus how the resolution happened.
type Ref struct {
	Kind     RefKind
	Identity string
}

// Canonicalize resolves a client-supplied id into a durable identity. This is
// the single place the legacy fallback happens: the value is taken as an
// identity token unless it matches a live connection that is bound to some
// other identity, in which case it was a raw connection id. Identity tokens
// are durable, so an unknown value still canonicalizes as an identity — the
// board store decides whether anything exists under it.
func (that *Registry) Canonicalize(clientID string) Ref {
	that.mu.RLock()
	defer that.mu.RUnlock()

	if _, ok := that.byIdentity[clientID]; ok {
		return Ref{Kind: IdentityRef, Identity: clientID}
	}

	if conn, ok := that.connections[clientID]; ok && conn.identity != "" {
		return Ref{Kind: ConnectionRef, Identity: conn.identity}
	}

	return Ref{Kind: IdentityRef, Identity: clientID}
}
