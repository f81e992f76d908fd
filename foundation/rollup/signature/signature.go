// Package signature provides helper functions for handling the rollup
// signature needs. Messages are signed the way an ethereum wallet signs
// text, so any wallet can produce rollup transactions.
package signature

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Length is the size of a signature in bytes: R || S || V.
const Length = crypto.SignatureLength

// recoveryOffset is added to the recovery id so V is 27 or 28.
const recoveryOffset = 27

// ErrInvalidSignature is returned for any signature that can't be used to
// recover a public key.
var ErrInvalidSignature = errors.New("invalid signature")

// Sign signs the data with the private key, returning a signature with
// the V value set to 27 or 28.
func Sign(data []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(data), privateKey)
	if err != nil {
		return nil, err
	}

	sig[crypto.RecoveryIDOffset] += recoveryOffset

	return sig, nil
}

// Recover returns the address of the account that signed the data.
func Recover(data []byte, sig []byte) (common.Address, error) {
	if len(sig) != Length {
		return common.Address{}, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}

	// Work on a copy since the V value needs to be adjusted.
	rsv := make([]byte, Length)
	copy(rsv, sig)

	v := rsv[crypto.RecoveryIDOffset]
	if v >= recoveryOffset {
		v -= recoveryOffset
	}
	if v > 1 {
		return common.Address{}, fmt.Errorf("%w: recovery id %d", ErrInvalidSignature, rsv[crypto.RecoveryIDOffset])
	}
	rsv[crypto.RecoveryIDOffset] = v

	publicKey, err := crypto.SigToPub(accounts.TextHash(data), rsv)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	return crypto.PubkeyToAddress(*publicKey), nil
}
