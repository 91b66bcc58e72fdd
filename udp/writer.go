package udp

import (
	"bytes"
	"encoding/binary"

	"github.com/chihaya/swarmd/bittorrent"
)

// writeHeader writes the action and transaction ID shared by every
// response.
func writeHeader(buf *bytes.Buffer, txID TransactionID, act action) {
	var hdr [8]byte
	putUint32(hdr[0:4], uint32(act))
	putUint32(hdr[4:8], uint32(txID))
	buf.Write(hdr[:])
}

// encodeConnect encodes a Connect response.
func encodeConnect(txID TransactionID, connID ConnectionID) []byte {
	var buf bytes.Buffer
	writeHeader(&buf, txID, connectAction)
	var cid [8]byte
	putUint64(cid[:], uint64(connID))
	buf.Write(cid[:])
	return buf.Bytes()
}

// encodeError encodes an Error response carrying a short ASCII diagnostic.
func encodeError(txID TransactionID, message string) []byte {
	var buf bytes.Buffer
	writeHeader(&buf, txID, errorAction)
	buf.WriteString(message)
	return buf.Bytes()
}

// encodeAnnounce encodes an Announce response. interval is in seconds.
func encodeAnnounce(txID TransactionID, interval uint32, leechers, seeders uint32, peers []bittorrent.Peer) []byte {
	var buf bytes.Buffer
	writeHeader(&buf, txID, announceAction)

	var counts [12]byte
	putUint32(counts[0:4], interval)
	putUint32(counts[4:8], leechers)
	putUint32(counts[8:12], seeders)
	buf.Write(counts[:])

	for _, p := range peers {
		ip4 := p.IP.IP.To4()
		if ip4 == nil {
			continue
		}
		buf.Write(ip4)
		var port [2]byte
		binary.BigEndian.PutUint16(port[:], p.Port)
		buf.Write(port[:])
	}

	return buf.Bytes()
}

// encodeScrape encodes a Scrape response carrying stats in the order the
// hashes were requested.
func encodeScrape(txID TransactionID, stats []ScrapeStats) []byte {
	var buf bytes.Buffer
	writeHeader(&buf, txID, scrapeAction)

	for _, s := range stats {
		var block [12]byte
		putUint32(block[0:4], s.Seeders)
		putUint32(block[4:8], s.Completed)
		putUint32(block[8:12], s.Leechers)
		buf.Write(block[:])
	}

	return buf.Bytes()
}
