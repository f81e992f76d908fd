package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/rollup/foundation/rollup/transaction"
)

var (
	nonce uint64
	to    string
	value uint64
)

var sendCmd = &cobra.Command{
	Use:   "send <name>",
	Short: "Sign a transfer and submit it to the rollup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := cmd.Flags().GetString("account-path")
		if err != nil {
			return err
		}

		url, err := cmd.Flags().GetString("url")
		if err != nil {
			return err
		}

		return runSend(cmd, url, keyPath(args[0], path))
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().Uint64VarP(&nonce, "nonce", "n", 0, "Nonce of the transaction, zero asks the node for the next one.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address receiving the value.")
	sendCmd.Flags().Uint64VarP(&value, "value", "v", 0, "Value to send.")
}

func runSend(cmd *cobra.Command, url string, user string) error {
	if !common.IsHexAddress(to) {
		return errors.New("a valid --to address is required")
	}

	privateKey, err := crypto.LoadECDSA(user)
	if err != nil {
		return err
	}

	n := nonce
	if n == 0 {
		from := crypto.PubkeyToAddress(privateKey.PublicKey)
		last, err := query(url, "nonce", from.Hex())
		if err != nil {
			return fmt.Errorf("reading nonce: %w", err)
		}
		n = last + 1
	}

	tx := transaction.Transaction{
		Amount:      value,
		Destination: common.HexToAddress(to),
		Nonce:       n,
	}

	signedTx, err := tx.Sign(privateKey)
	if err != nil {
		return err
	}

	data, err := json.Marshal(signedTx)
	if err != nil {
		return err
	}

	resp, err := newClient().Post(fmt.Sprintf("%s/v1/rollup/submit", url), "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}

	var result struct {
		Status string `json:"status"`
	}
	if err := decodeResponse(resp, &result); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s nonce %d\n", result.Status, n)

	return nil
}
