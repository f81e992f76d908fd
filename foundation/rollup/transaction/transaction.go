// Package transaction defines the transfers users submit to the rollup and
// their canonical encoding.
package transaction

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/adamwoolhether/rollup/foundation/rollup/signature"
)

// Transaction is the transactional data signed by the sender. The sender
// isn't part of the data, it is recovered from the signature.
type Transaction struct {
	Amount      uint64         `json:"amount"`      // Value moved to the destination.
	Destination common.Address `json:"destination"` // Account receiving the value.
	Nonce       uint64         `json:"nonce"`       // Must be the sender's nonce plus one.
}

// Encode returns the canonical encoding of the transaction, the bytes
// that are signed.
func (tx Transaction) Encode() []byte {

	// Marshal can't fail for a struct of fixed size fields.
	data, _ := json.Marshal(tx)
	return data
}

// Decode parses the canonical encoding of a transaction.
func Decode(data []byte) (Transaction, error) {
	var tx Transaction
	if err := strictUnmarshal(data, &tx); err != nil {
		return Transaction{}, fmt.Errorf("decoding transaction: %w", err)
	}

	return tx, nil
}

// Sign signs the transaction with the private key of the sender.
func (tx Transaction) Sign(privateKey *ecdsa.PrivateKey) (SignedTransaction, error) {
	sig, err := signature.Sign(tx.Encode(), privateKey)
	if err != nil {
		return SignedTransaction{}, err
	}

	signedTx := SignedTransaction{
		Transaction: tx,
		Signature:   sig,
	}

	return signedTx, nil
}

// =============================================================================

// SignedTransaction is a transaction with the sender's signature over its
// canonical encoding. This is what's sequenced in the rollup namespace.
type SignedTransaction struct {
	Transaction Transaction   `json:"transaction"`
	Signature   hexutil.Bytes `json:"signature"`
}

// Encode returns the canonical encoding of the signed transaction.
func (stx SignedTransaction) Encode() []byte {
	data, _ := json.Marshal(stx)
	return data
}

// DecodeSigned parses the canonical encoding of a signed transaction.
func DecodeSigned(data []byte) (SignedTransaction, error) {
	var stx SignedTransaction
	if err := strictUnmarshal(data, &stx); err != nil {
		return SignedTransaction{}, fmt.Errorf("decoding signed transaction: %w", err)
	}

	return stx, nil
}

// Recover returns the address of the account that signed the transaction.
func (stx SignedTransaction) Recover() (common.Address, error) {
	return signature.Recover(stx.Transaction.Encode(), stx.Signature)
}

// strictUnmarshal rejects unknown fields and trailing data.
func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after value")
	}

	return nil
}
