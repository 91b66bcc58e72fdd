// Copyright 2016 Jimmy Zelinskie
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package udp implements a concurrent BEP 15 UDP BitTorrent tracker: a pool
// of socket workers that own their own sockets and connection state, handing
// Announce and Scrape work off to a pool of request workers that each own a
// shard of the swarm store.
package udp

import (
	"encoding/binary"
	"time"

	"github.com/chihaya/swarmd/bittorrent"
)

// action identifies the kind of request or response carried by a datagram,
// as specified by BEP 15.
type action uint32

const (
	connectAction action = iota
	announceAction
	scrapeAction
	errorAction
)

// Protocol limits from BEP 15 and this tracker's own operating envelope.
const (
	// maxPacketSize is the largest datagram this tracker will attempt to
	// decode or encode.
	maxPacketSize = 8192

	// connectRequestSize is the fixed size, in bytes, of a Connect request.
	connectRequestSize = 16

	// announceRequestSize is the fixed-size prefix of an Announce request,
	// before any BEP 41 extension data.
	announceRequestSize = 98

	// scrapeRequestHeaderSize is the fixed-size prefix of a Scrape request,
	// before the list of info-hashes.
	scrapeRequestHeaderSize = 16
)

// initialConnectionID is the magic constant a client must send as the
// connection ID of its very first Connect request.
const initialConnectionID uint64 = 0x41727101980

// TransactionID is the client-supplied correlation token echoed verbatim in
// every response to a given request.
type TransactionID uint32

// ConnectionID is an opaque, randomly generated 64-bit token proving that a
// client previously completed a Connect handshake from its current source
// address. It carries no meaning beyond table membership.
type ConnectionID uint64

// eventIDs maps the wire event values specified by BEP 15 to bittorrent.Event.
var eventIDs = [...]bittorrent.Event{
	bittorrent.None,
	bittorrent.Completed,
	bittorrent.Started,
	bittorrent.Stopped,
}

// ClientError classes returned by the parser or raised by the socket worker,
// surfaced to clients verbatim in an Error response when the peer's
// connection is known.
var (
	errMalformedPacket = bittorrent.ClientError("malformed packet")
	errMalformedEvent  = bittorrent.ClientError("malformed event")
	errBadConnectionID = bittorrent.ClientError("bad connection ID")
	errTooManyHashes   = bittorrent.ClientError("too many info hashes in scrape")
	errInfoHashBanned  = bittorrent.ClientError("info hash not allowed")
)

func putUint64(b []byte, v uint64) { binary.BigEndian.PutUint64(b, v) }
func putUint32(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }

// ValidUntil wraps a monotonic deadline. Values are always derived from
// time.Now(), never from a duration added to a unix timestamp read off the
// wire, so the embedded monotonic reading used by time.Time's comparison
// methods is preserved.
type ValidUntil time.Time

// Expired reports whether the deadline has passed as of now.
func (v ValidUntil) Expired(now time.Time) bool {
	return !now.Before(time.Time(v))
}
