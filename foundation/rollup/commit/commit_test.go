package commit_test

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adamwoolhether/rollup/foundation/rollup/commit"
)

func TestBuilderDeterministic(t *testing.T) {
	build := func() commit.Commitment {
		return commit.NewBuilder("test").
			U64("height", 10).
			Var("payload", []byte("hello")).
			Finalize()
	}

	require.Equal(t, build(), build())
	require.False(t, build().IsZero())
}

func TestBuilderFieldsMatter(t *testing.T) {
	base := commit.NewBuilder("test").U64("a", 1).Finalize()

	require.NotEqual(t, base, commit.NewBuilder("test").U64("a", 2).Finalize())
	require.NotEqual(t, base, commit.NewBuilder("test").U64("b", 1).Finalize())
	require.NotEqual(t, base, commit.NewBuilder("other").U64("a", 1).Finalize())

	// Moving bytes between adjacent variable fields must change the result.
	left := commit.NewBuilder("test").Var("x", []byte("ab")).Var("y", []byte("c")).Finalize()
	right := commit.NewBuilder("test").Var("x", []byte("a")).Var("y", []byte("bc")).Finalize()
	require.NotEqual(t, left, right)
}

func TestOptionalArray(t *testing.T) {
	c := commit.NewBuilder("x").Finalize()

	none := commit.NewBuilder("state").Array("prev", commit.Optional(nil)).Finalize()
	some := commit.NewBuilder("state").Array("prev", commit.Optional(&c)).Finalize()
	require.NotEqual(t, none, some)
}

func TestU256(t *testing.T) {
	c := commit.NewBuilder("u256").U64("v", 42).Finalize()

	back, err := commit.FromBig(c.Big())
	require.NoError(t, err)
	require.Equal(t, c, back)

	tooBig := new(big.Int).Lsh(big.NewInt(1), 256)
	_, err = commit.FromBig(tooBig)
	require.ErrorIs(t, err, commit.ErrInvalidCommitment)

	_, err = commit.FromBig(big.NewInt(-1))
	require.ErrorIs(t, err, commit.ErrInvalidCommitment)
}

func TestJSON(t *testing.T) {
	c := commit.NewBuilder("json").Finalize()

	data, err := json.Marshal(c)
	require.NoError(t, err)
	require.Equal(t, `"`+c.String()+`"`, string(data))

	var got commit.Commitment
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, c, got)

	require.Error(t, json.Unmarshal([]byte(`"0x1234"`), &got))
}
