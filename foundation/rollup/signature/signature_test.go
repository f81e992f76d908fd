package signature_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/adamwoolhether/rollup/foundation/rollup/signature"
)

func TestSignRecover(t *testing.T) {
	privateKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	data := []byte(`{"amount":100}`)

	sig, err := signature.Sign(data, privateKey)
	require.NoError(t, err)
	require.Len(t, sig, signature.Length)
	require.Contains(t, []byte{27, 28}, sig[64])

	addr, err := signature.Recover(data, sig)
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(privateKey.PublicKey), addr)

	// The signature must not be modified by recovery.
	again, err := signature.Recover(data, sig)
	require.NoError(t, err)
	require.Equal(t, addr, again)
}

func TestRecoverOtherData(t *testing.T) {
	privateKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	sig, err := signature.Sign([]byte("one"), privateKey)
	require.NoError(t, err)

	addr, err := signature.Recover([]byte("two"), sig)
	if err == nil {
		require.NotEqual(t, crypto.PubkeyToAddress(privateKey.PublicKey), addr)
	}
}

func TestRecoverInvalid(t *testing.T) {
	_, err := signature.Recover([]byte("data"), []byte{1, 2, 3})
	require.ErrorIs(t, err, signature.ErrInvalidSignature)

	sig := make([]byte, signature.Length)
	sig[64] = 40
	_, err = signature.Recover([]byte("data"), sig)
	require.ErrorIs(t, err, signature.ErrInvalidSignature)

	sig[64] = 27
	_, err = signature.Recover([]byte("data"), sig)
	require.ErrorIs(t, err, signature.ErrInvalidSignature)
}
