package udp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfig_ValidateSubstitutesDefaults(t *testing.T) {
	var cfg Config
	validated := cfg.Validate()

	require.Equal(t, defaultSocketWorkers, validated.SocketWorkers)
	require.Equal(t, defaultRequestWorkers, validated.RequestWorkers)
	require.Equal(t, defaultQueueDepth, validated.QueueDepth)
	require.Equal(t, uint32(defaultMaxNumWant), validated.Protocol.MaxNumWant)
	require.Equal(t, uint32(defaultDefaultNumWant), validated.Protocol.DefaultNumWant)
	require.Equal(t, defaultCleaningInterval, validated.Cleaning.Interval)
}

func TestConfig_ValidateKeepsValidValues(t *testing.T) {
	cfg := Config{
		SocketWorkers:  4,
		RequestWorkers: 8,
		QueueDepth:     1024,
	}
	cfg.Protocol.MaxScrapeTorrents = 10
	cfg.Protocol.MaxNumWant = 30
	cfg.Protocol.DefaultNumWant = 20
	cfg.Cleaning.Interval = 0 // left invalid to confirm only this field falls back

	validated := cfg.Validate()
	require.Equal(t, 4, validated.SocketWorkers)
	require.Equal(t, 8, validated.RequestWorkers)
	require.Equal(t, 1024, validated.QueueDepth)
	require.Equal(t, uint32(30), validated.Protocol.MaxNumWant)
	require.Equal(t, defaultCleaningInterval, validated.Cleaning.Interval)
}
