package udp

import (
	"net/netip"
	"time"
)

// connectionKey identifies one issued connection: the ID the server handed
// out and the address it was handed to. A connection is only ever honored
// for the peer address it was issued to.
type connectionKey struct {
	id   ConnectionID
	addr netip.AddrPort
}

// connectionTable maps (ConnectionID, PeerAddr) to its expiry. It is owned
// exclusively by one socket worker and is never shared; no locking is
// needed since all reads and writes happen on that worker's goroutine.
type connectionTable struct {
	entries map[connectionKey]ValidUntil
}

func newConnectionTable() *connectionTable {
	return &connectionTable{entries: make(map[connectionKey]ValidUntil)}
}

// Insert records a freshly issued connection ID, overwriting any prior
// entry for the same key; the newest deadline always wins.
func (t *connectionTable) Insert(id ConnectionID, addr netip.AddrPort, validUntil ValidUntil) {
	t.entries[connectionKey{id: id, addr: addr}] = validUntil
}

// Contains reports whether (id, addr) was issued and has not yet been swept
// by Clean. It deliberately does not check ValidUntil on lookup: Clean is
// solely responsible for eviction, matching the cheaper of the two
// behaviors the design allows.
func (t *connectionTable) Contains(id ConnectionID, addr netip.AddrPort) bool {
	_, ok := t.entries[connectionKey{id: id, addr: addr}]
	return ok
}

// Clean evicts every entry whose deadline has passed.
func (t *connectionTable) Clean(now time.Time) {
	for k, validUntil := range t.entries {
		if validUntil.Expired(now) {
			delete(t.entries, k)
		}
	}
}

// Len reports the number of entries not yet swept by Clean, expired or not,
// used by tests.
func (t *connectionTable) Len() int { return len(t.entries) }
