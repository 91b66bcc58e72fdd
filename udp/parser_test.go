package udp

import (
	"encoding/binary"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chihaya/swarmd/bittorrent"
)

func buildConnectRequest(txID uint32) []byte {
	buf := make([]byte, connectRequestSize)
	binary.BigEndian.PutUint64(buf[0:8], initialConnectionID)
	binary.BigEndian.PutUint32(buf[8:12], uint32(connectAction))
	binary.BigEndian.PutUint32(buf[12:16], txID)
	return buf
}

func TestDecodeRequest_Connect(t *testing.T) {
	packet := buildConnectRequest(42)
	req, err := decodeRequest(packet)
	require.NoError(t, err)

	connect, ok := req.(*connectRequestMsg)
	require.True(t, ok)
	require.Equal(t, TransactionID(42), connect.txID)
}

func TestDecodeRequest_ConnectRejectsBadConnectionID(t *testing.T) {
	packet := buildConnectRequest(1)
	binary.BigEndian.PutUint64(packet[0:8], 0)

	_, err := decodeRequest(packet)
	require.Equal(t, errBadConnectionID, err)
}

func TestDecodeRequest_TooShortIsMalformed(t *testing.T) {
	_, err := decodeRequest(make([]byte, 4))
	require.Equal(t, errMalformedPacket, err)
}

func buildAnnounceRequest(connID uint64, txID uint32, event byte, numWant int32, port uint16) []byte {
	buf := make([]byte, announceRequestSize)
	binary.BigEndian.PutUint64(buf[0:8], connID)
	binary.BigEndian.PutUint32(buf[8:12], uint32(announceAction))
	binary.BigEndian.PutUint32(buf[12:16], txID)
	for i := 16; i < 36; i++ {
		buf[i] = byte(i)
	}
	for i := 36; i < 56; i++ {
		buf[i] = byte(i)
	}
	buf[83] = event
	binary.BigEndian.PutUint32(buf[92:96], uint32(numWant))
	binary.BigEndian.PutUint16(buf[96:98], port)
	return buf
}

func TestDecodeRequest_Announce(t *testing.T) {
	packet := buildAnnounceRequest(7, 42, 2, 50, 6881)
	req, err := decodeRequest(packet)
	require.NoError(t, err)

	announce, ok := req.(*announceRequestMsg)
	require.True(t, ok)
	require.Equal(t, ConnectionID(7), announce.connID)
	require.Equal(t, TransactionID(42), announce.txID)
	require.Equal(t, bittorrent.Started, announce.event)
	require.Equal(t, int32(50), announce.numWant)
	require.Equal(t, uint16(6881), announce.port)
}

func TestDecodeRequest_AnnounceRejectsBadEvent(t *testing.T) {
	packet := buildAnnounceRequest(7, 42, 9, 50, 6881)
	_, err := decodeRequest(packet)

	pe, ok := err.(*parseError)
	require.True(t, ok)
	require.Equal(t, errMalformedEvent, pe.err)
	require.Equal(t, ConnectionID(7), pe.connID)
	require.Equal(t, TransactionID(42), pe.txID)
}

func buildScrapeRequest(connID uint64, txID uint32, hashes []bittorrent.InfoHash) []byte {
	buf := make([]byte, scrapeRequestHeaderSize+20*len(hashes))
	binary.BigEndian.PutUint64(buf[0:8], connID)
	binary.BigEndian.PutUint32(buf[8:12], uint32(scrapeAction))
	binary.BigEndian.PutUint32(buf[12:16], txID)
	for i, h := range hashes {
		copy(buf[scrapeRequestHeaderSize+i*20:], h[:])
	}
	return buf
}

func TestDecodeRequest_Scrape(t *testing.T) {
	var ih1, ih2 bittorrent.InfoHash
	ih1[0], ih2[0] = 1, 2

	packet := buildScrapeRequest(7, 42, []bittorrent.InfoHash{ih1, ih2})
	req, err := decodeRequest(packet)
	require.NoError(t, err)

	scrape, ok := req.(*scrapeRequestMsg)
	require.True(t, ok)
	require.Equal(t, []bittorrent.InfoHash{ih1, ih2}, scrape.infoHashes)
}

func TestNormalizeSourceAddr_UnmapsIPv4MappedIPv6(t *testing.T) {
	mapped := netip.MustParseAddrPort("[::ffff:10.0.0.1]:1234")
	normalized := normalizeSourceAddr(mapped)
	require.True(t, normalized.Addr().Is4())
	require.Equal(t, "10.0.0.1", normalized.Addr().String())
}

func TestAddressFamily(t *testing.T) {
	require.Equal(t, bittorrent.IPv4, addressFamily(netip.MustParseAddr("10.0.0.1")))
	require.Equal(t, bittorrent.IPv6, addressFamily(netip.MustParseAddr("2001:db8::1")))
}
