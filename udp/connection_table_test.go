package udp

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnectionTable_InsertAndContains(t *testing.T) {
	table := newConnectionTable()
	addr := netip.MustParseAddrPort("10.0.0.1:1234")
	now := time.Now()

	require.False(t, table.Contains(ConnectionID(1), addr))

	table.Insert(ConnectionID(1), addr, ValidUntil(now.Add(time.Minute)))
	require.True(t, table.Contains(ConnectionID(1), addr))

	// A connection ID is only honored for the address it was issued to.
	other := netip.MustParseAddrPort("10.0.0.2:1234")
	require.False(t, table.Contains(ConnectionID(1), other))
}

func TestConnectionTable_ContainsIgnoresExpiry(t *testing.T) {
	table := newConnectionTable()
	addr := netip.MustParseAddrPort("10.0.0.1:1234")
	now := time.Now()

	table.Insert(ConnectionID(1), addr, ValidUntil(now.Add(-time.Minute)))
	// Contains alone never evicts; only Clean does.
	require.True(t, table.Contains(ConnectionID(1), addr))
	require.Equal(t, 1, table.Len())
}

func TestConnectionTable_Clean(t *testing.T) {
	table := newConnectionTable()
	now := time.Now()

	live := netip.MustParseAddrPort("10.0.0.1:1111")
	dead := netip.MustParseAddrPort("10.0.0.2:2222")

	table.Insert(ConnectionID(1), live, ValidUntil(now.Add(time.Minute)))
	table.Insert(ConnectionID(2), dead, ValidUntil(now.Add(-time.Minute)))
	require.Equal(t, 2, table.Len())

	table.Clean(now)
	require.Equal(t, 1, table.Len())
	require.True(t, table.Contains(ConnectionID(1), live))
	require.False(t, table.Contains(ConnectionID(2), dead))
}

func TestConnectionIDGenerator_Generate(t *testing.T) {
	gen := newConnectionIDGenerator(42)
	a := gen.Generate()
	b := gen.Generate()
	require.NotEqual(t, a, b)
}
