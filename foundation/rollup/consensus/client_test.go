package consensus_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adamwoolhether/rollup/foundation/rollup/consensus"
)

func newClient(t *testing.T) (*consensus.Memory, *consensus.Client) {
	t.Helper()

	seq := consensus.NewMemory(clockwork.NewFakeClock())
	srv := httptest.NewServer(seq.Handler())
	t.Cleanup(func() {
		seq.Close()
		srv.Close()
	})

	cfg := consensus.ClientConfig{
		RetryMax:     1,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 10 * time.Millisecond,
	}

	client, err := consensus.NewClient(srv.URL, cfg, zap.NewNop().Sugar())
	require.NoError(t, err)

	return seq, client
}

func TestClientSubmitAndProve(t *testing.T) {
	ctx := context.Background()
	seq, client := newClient(t)

	require.NoError(t, client.Submit(ctx, consensus.Transaction{Namespace: 7, Payload: []byte(`{"tx":1}`)}))
	require.NoError(t, client.Submit(ctx, consensus.Transaction{Namespace: 3, Payload: []byte("other")}))
	require.Equal(t, 2, seq.Pending())

	header, err := seq.Produce()
	require.NoError(t, err)

	got, err := client.Header(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, header.Height, got.Height)
	require.Equal(t, header.TransactionsRoot, got.TransactionsRoot)
	require.True(t, header.Timestamp.Equal(got.Timestamp))

	proof, err := client.NamespaceProof(ctx, 0, 7)
	require.NoError(t, err)
	require.NoError(t, proof.Verify(header.TransactionsRoot, 7))
	require.Equal(t, [][]byte{[]byte(`{"tx":1}`)}, proof.Payloads())

	_, err = client.NamespaceProof(ctx, 5, 7)
	require.ErrorIs(t, err, consensus.ErrNotFound)
}

func TestClientSubscribeHeaders(t *testing.T) {
	seq, client := newClient(t)

	_, err := seq.Produce()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	headers, err := client.SubscribeHeaders(ctx, 0)
	require.NoError(t, err)

	require.Equal(t, uint64(0), receive(t, headers).Header.Height)

	_, err = seq.Produce()
	require.NoError(t, err)
	hr := receive(t, headers)
	require.NoError(t, hr.Err)
	require.Equal(t, uint64(1), hr.Header.Height)

	cancel()
	for range headers {
	}
}

func TestClientStreamEndsWithSequencer(t *testing.T) {
	seq, client := newClient(t)

	headers, err := client.SubscribeHeaders(context.Background(), 0)
	require.NoError(t, err)

	seq.Close()

	select {
	case hr, open := <-headers:
		if open {
			require.Error(t, hr.Err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream didn't end")
	}
}

func TestNewClientInvalidAddress(t *testing.T) {
	_, err := consensus.NewClient("ftp://sequencer", consensus.ClientConfig{}, zap.NewNop().Sugar())
	require.Error(t, err)
}
