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

// Package bittorrent holds the wire-independent data model shared by the
// tracker core: info-hashes, peer identifiers, peers and the events a
// BitTorrent client can report.
package bittorrent

import (
	"encoding/hex"
	"fmt"
	"net"
)

// PeerID represents a peer ID.
type PeerID [20]byte

// PeerIDFromBytes creates a PeerID from a byte slice.
//
// It panics if b is not 20 bytes long.
func PeerIDFromBytes(b []byte) PeerID {
	if len(b) != 20 {
		panic("peer ID must be 20 bytes")
	}

	var buf [20]byte
	copy(buf[:], b)
	return PeerID(buf)
}

// String implements fmt.Stringer for a PeerID.
func (p PeerID) String() string {
	return hex.EncodeToString(p[:])
}

// InfoHash represents the 20-byte identifier of a swarm.
type InfoHash [20]byte

// InfoHashFromBytes creates an InfoHash from a byte slice.
//
// It panics if b is not 20 bytes long.
func InfoHashFromBytes(b []byte) InfoHash {
	if len(b) != 20 {
		panic("infohash must be 20 bytes")
	}

	var buf [20]byte
	copy(buf[:], b)
	return InfoHash(buf)
}

// String implements fmt.Stringer for an InfoHash.
func (i InfoHash) String() string {
	return hex.EncodeToString(i[:])
}

// AddressFamily describes whether a Peer was announced over IPv4 or IPv6.
type AddressFamily uint8

const (
	// IPv4 is the address family for IPv4 peers.
	IPv4 AddressFamily = iota
	// IPv6 is the address family for IPv6 peers.
	IPv6
)

// String implements fmt.Stringer for an AddressFamily.
func (af AddressFamily) String() string {
	switch af {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	default:
		return "unknown"
	}
}

// IP wraps a net.IP with the AddressFamily it was classified as at ingress.
// IPv4-mapped IPv6 addresses are canonicalized to 4-byte form before being
// stored here; see the udp package's ingress normalization.
type IP struct {
	net.IP
	AddressFamily
}

// Equal reports whether two IPs are the same.
func (ip IP) Equal(x IP) bool {
	return ip.AddressFamily == x.AddressFamily && ip.IP.Equal(x.IP)
}

// Peer represents the connection details of a peer returned in an announce
// response.
type Peer struct {
	ID   PeerID
	IP   IP
	Port uint16
}

// Equal reports whether p and x are the same peer.
func (p Peer) Equal(x Peer) bool { return p.EqualEndpoint(x) && p.ID == x.ID }

// EqualEndpoint reports whether p and x have the same endpoint.
func (p Peer) EqualEndpoint(x Peer) bool { return p.Port == x.Port && p.IP.Equal(x.IP) }

// String implements fmt.Stringer for a Peer.
func (p Peer) String() string {
	return fmt.Sprintf("%s@[%s]:%d", p.ID, p.IP.IP, p.Port)
}

// ClientError represents an error that should be exposed to the client over
// the BitTorrent wire protocol, as opposed to an internal failure.
type ClientError string

// Error implements the error interface for ClientError.
func (c ClientError) Error() string { return string(c) }
