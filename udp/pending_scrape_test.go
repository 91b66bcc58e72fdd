package udp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPendingScrapeTable_AggregatesOutOfOrderShards(t *testing.T) {
	table := newPendingScrapeTable()
	validUntil := ValidUntil(time.Now().Add(time.Minute))

	// Three info-hashes were requested; the socket worker split them into
	// two shards (indices 0,2 go to one shard, index 1 to the other).
	table.Prepare(TransactionID(7), 3, 2, validUntil)
	require.Equal(t, 1, table.Len())

	// The second shard answers first.
	stats, done := table.AddAndGetFinished(scrapePartial{
		txID:    TransactionID(7),
		indices: []int{1},
		stats:   []ScrapeStats{{Seeders: 5}},
	})
	require.False(t, done)
	require.Nil(t, stats)

	// Then the first shard answers, completing the aggregate.
	stats, done = table.AddAndGetFinished(scrapePartial{
		txID:    TransactionID(7),
		indices: []int{0, 2},
		stats:   []ScrapeStats{{Seeders: 1}, {Seeders: 2}},
	})
	require.True(t, done)
	require.Equal(t, []ScrapeStats{{Seeders: 1}, {Seeders: 5}, {Seeders: 2}}, stats)
	require.Equal(t, 0, table.Len())
}

func TestPendingScrapeTable_UnknownTransactionIsDropped(t *testing.T) {
	table := newPendingScrapeTable()
	stats, done := table.AddAndGetFinished(scrapePartial{txID: TransactionID(99)})
	require.False(t, done)
	require.Nil(t, stats)
}

func TestPendingScrapeTable_Clean(t *testing.T) {
	table := newPendingScrapeTable()
	now := time.Now()

	table.Prepare(TransactionID(1), 1, 1, ValidUntil(now.Add(-time.Second)))
	table.Prepare(TransactionID(2), 1, 1, ValidUntil(now.Add(time.Minute)))
	require.Equal(t, 2, table.Len())

	table.Clean(now)
	require.Equal(t, 1, table.Len())
}
