package udp

import (
	"time"
)

// ScrapeStats are the per-torrent counters returned by a Scrape, zeroed for
// any info-hash the tracker has never seen.
type ScrapeStats struct {
	Seeders   uint32
	Completed uint32
	Leechers  uint32
}

// pendingScrapeKey identifies one multi-shard scrape in flight by its
// transaction ID alone, per spec.md's prepare(tx_id, ...) keying. The table
// is scoped to one socket worker; two of its clients that use the same
// transaction ID for overlapping scrapes share one entry, the later Prepare
// overwriting the earlier.
type pendingScrapeKey struct {
	txID TransactionID
}

// pendingScrape accumulates the per-shard partial responses to one Scrape
// request until every shard has answered.
type pendingScrape struct {
	numPending int
	partials   []ScrapeStats // indexed by the original request order
	validUntil ValidUntil
}

// pendingScrapeTable is owned exclusively by one socket worker, mirroring
// the connection table: it is populated when a multi-shard Scrape is
// dispatched and drained as request workers answer.
type pendingScrapeTable struct {
	entries map[pendingScrapeKey]*pendingScrape
}

func newPendingScrapeTable() *pendingScrapeTable {
	return &pendingScrapeTable{entries: make(map[pendingScrapeKey]*pendingScrape)}
}

// Prepare registers a new in-flight scrape, overwriting any prior entry for
// the same transaction ID, and pre-sizes the ordered partials slice so
// later merges can write directly by index.
func (t *pendingScrapeTable) Prepare(txID TransactionID, numHashes, numPending int, validUntil ValidUntil) {
	t.entries[pendingScrapeKey{txID: txID}] = &pendingScrape{
		numPending: numPending,
		partials:   make([]ScrapeStats, numHashes),
		validUntil: validUntil,
	}
}

// scrapePartial is one request worker's contribution to a multi-shard
// scrape: the stats it found, keyed by the index each info-hash held in the
// original request.
type scrapePartial struct {
	txID    TransactionID
	indices []int
	stats   []ScrapeStats
}

// AddAndGetFinished merges one shard's partial result into its pending
// entry. It returns the completed, index-ordered stats and true once every
// shard has reported; otherwise it returns nil, false. A partial with no
// matching entry is dropped: the scrape either already completed or its
// transaction id has been swept.
func (t *pendingScrapeTable) AddAndGetFinished(p scrapePartial) ([]ScrapeStats, bool) {
	entry, ok := t.entries[pendingScrapeKey{txID: p.txID}]
	if !ok {
		return nil, false
	}

	for i, idx := range p.indices {
		entry.partials[idx] = p.stats[i]
	}
	entry.numPending--

	if entry.numPending > 0 {
		return nil, false
	}

	delete(t.entries, pendingScrapeKey{txID: p.txID})
	return entry.partials, true
}

// Clean drops every pending scrape whose deadline has passed; these are
// scrapes for which at least one shard never answered in time.
func (t *pendingScrapeTable) Clean(now time.Time) {
	for k, entry := range t.entries {
		if entry.validUntil.Expired(now) {
			delete(t.entries, k)
		}
	}
}

// Len reports the number of in-flight scrapes, used by tests.
func (t *pendingScrapeTable) Len() int { return len(t.entries) }
