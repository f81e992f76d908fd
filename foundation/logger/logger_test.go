package logger_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/adamwoolhether/rollup/foundation/logger"
)

func TestNew(t *testing.T) {
	log, err := logger.New("TEST", "debug")
	require.NoError(t, err)
	require.True(t, log.Desugar().Core().Enabled(zap.DebugLevel))

	log, err = logger.New("TEST", "")
	require.NoError(t, err)
	require.False(t, log.Desugar().Core().Enabled(zap.DebugLevel))

	_, err = logger.New("TEST", "loud")
	require.Error(t, err)
}

func TestEvHandler(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	ev := logger.EvHandler(zap.New(core).Sugar(), "00000000-0000-0000-0000-000000000000")
	ev("devnet: sealed block[%d]", 4)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	require.Equal(t, "devnet: sealed block[4]", entry.Message)
	require.Equal(t, "00000000-0000-0000-0000-000000000000", entry.ContextMap()["traceid"])
}
