package udp

import (
	"encoding/binary"
	"net/netip"

	"github.com/chihaya/swarmd/bittorrent"
)

// headerSize is the shared connection-id/action/transaction-id prefix every
// request after Connect begins with.
const headerSize = 16

// connectRequestMsg is a decoded Connect request.
type connectRequestMsg struct {
	txID TransactionID
}

// announceRequestMsg is a decoded Announce request, still address-family
// agnostic: peerIP is filled in by the caller from the packet's source
// address, already normalized.
type announceRequestMsg struct {
	connID     ConnectionID
	txID       TransactionID
	infoHash   bittorrent.InfoHash
	peerID     bittorrent.PeerID
	downloaded uint64
	left       uint64
	uploaded   uint64
	event      bittorrent.Event
	port       uint16
	numWant    int32
}

// scrapeRequestMsg is a decoded Scrape request.
type scrapeRequestMsg struct {
	connID     ConnectionID
	txID       TransactionID
	infoHashes []bittorrent.InfoHash
}

// parseError wraps a parser failure that occurred after the shared
// connection-id/transaction-id header was already read, which is exactly
// the "sendable kind" of parse error §4.6/§7 describe: the caller can
// still look up (connID, addr) in the connection table and, if known,
// answer with an ErrorResponse carrying the wrapped message. A plain
// (unwrapped) error means the header itself couldn't be read, so no
// connID/txID exists to answer with - those are always silently dropped.
type parseError struct {
	connID ConnectionID
	txID   TransactionID
	err    bittorrent.ClientError
}

func (e *parseError) Error() string { return e.err.Error() }

// decodeRequest inspects the action field of a datagram and dispatches to
// the appropriate fixed-layout decoder. The returned value is one of
// *connectRequestMsg, *announceRequestMsg or *scrapeRequestMsg.
func decodeRequest(packet []byte) (interface{}, error) {
	if len(packet) < headerSize {
		return nil, errMalformedPacket
	}

	connID := ConnectionID(binary.BigEndian.Uint64(packet[0:8]))
	act := action(binary.BigEndian.Uint32(packet[8:12]))
	txID := TransactionID(binary.BigEndian.Uint32(packet[12:16]))

	switch act {
	case connectAction:
		if connID != ConnectionID(initialConnectionID) {
			return nil, errBadConnectionID
		}
		return &connectRequestMsg{txID: txID}, nil
	case announceAction:
		return decodeAnnounce(packet, connID, txID)
	case scrapeAction:
		return decodeScrape(packet, connID, txID)
	default:
		return nil, &parseError{connID: connID, txID: txID, err: errMalformedPacket}
	}
}

func decodeAnnounce(packet []byte, connID ConnectionID, txID TransactionID) (*announceRequestMsg, error) {
	if len(packet) < announceRequestSize {
		return nil, &parseError{connID: connID, txID: txID, err: errMalformedPacket}
	}

	eventID := int(packet[83])
	if eventID >= len(eventIDs) {
		return nil, &parseError{connID: connID, txID: txID, err: errMalformedEvent}
	}

	return &announceRequestMsg{
		connID:     connID,
		txID:       txID,
		infoHash:   bittorrent.InfoHashFromBytes(packet[16:36]),
		peerID:     bittorrent.PeerIDFromBytes(packet[36:56]),
		downloaded: binary.BigEndian.Uint64(packet[56:64]),
		left:       binary.BigEndian.Uint64(packet[64:72]),
		uploaded:   binary.BigEndian.Uint64(packet[72:80]),
		event:      eventIDs[eventID],
		port:       binary.BigEndian.Uint16(packet[96:98]),
		numWant:    int32(binary.BigEndian.Uint32(packet[92:96])),
	}, nil
}

func decodeScrape(packet []byte, connID ConnectionID, txID TransactionID) (*scrapeRequestMsg, error) {
	if len(packet) < scrapeRequestHeaderSize {
		return nil, &parseError{connID: connID, txID: txID, err: errMalformedPacket}
	}

	body := packet[scrapeRequestHeaderSize:]
	if len(body)%20 != 0 || len(body) == 0 {
		return nil, &parseError{connID: connID, txID: txID, err: errMalformedPacket}
	}

	hashes := make([]bittorrent.InfoHash, 0, len(body)/20)
	for len(body) >= 20 {
		hashes = append(hashes, bittorrent.InfoHashFromBytes(body[:20]))
		body = body[20:]
	}

	return &scrapeRequestMsg{connID: connID, txID: txID, infoHashes: hashes}, nil
}

// normalizeSourceAddr canonicalizes an IPv4-mapped IPv6 source address to
// its IPv4 form, per BEP 15's ingress-normalization requirement. Addresses
// that are not IPv4-mapped are returned unchanged.
func normalizeSourceAddr(addr netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port())
}

func addressFamily(addr netip.Addr) bittorrent.AddressFamily {
	if addr.Is4() || addr.Is4In6() {
		return bittorrent.IPv4
	}
	return bittorrent.IPv6
}
