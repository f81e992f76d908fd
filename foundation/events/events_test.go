package events_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adamwoolhether/rollup/foundation/events"
)

func TestSendReceive(t *testing.T) {
	evts := events.New[int]()

	id1, ch1 := evts.Acquire(2)
	_, ch2 := evts.Acquire(1)
	require.Equal(t, 2, evts.Len())

	require.Equal(t, 0, evts.Send(1))
	require.Equal(t, 1, evts.Send(2))

	require.Equal(t, 1, <-ch1)
	require.Equal(t, 2, <-ch1)
	require.Equal(t, 1, <-ch2)

	require.NoError(t, evts.Release(id1))
	require.Error(t, evts.Release(id1))

	_, open := <-ch1
	require.False(t, open)
	require.Equal(t, 1, evts.Len())
}

func TestSendWithoutSubscribers(t *testing.T) {
	evts := events.New[string]()
	require.Equal(t, 0, evts.Send("nobody listening"))
}

func TestShutdown(t *testing.T) {
	evts := events.New[int]()
	_, ch := evts.Acquire(0)

	evts.Shutdown()

	_, open := <-ch
	require.False(t, open)
	require.Equal(t, 0, evts.Len())
	require.Equal(t, 0, evts.Send(1))
}
