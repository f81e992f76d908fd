package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

type amount struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

// balanceCmd represents the balance command
var balanceCmd = &cobra.Command{
	Use:   "balance <name|address>",
	Args:  cobra.ExactArgs(1),
	Short: "Print the balance of an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, "balance", args[0])
	},
}

// nonceCmd represents the nonce command
var nonceCmd = &cobra.Command{
	Use:   "nonce <name|address>",
	Args:  cobra.ExactArgs(1),
	Short: "Print the nonce of the last transaction applied for an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, "nonce", args[0])
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(nonceCmd)
}

func runQuery(cmd *cobra.Command, kind string, arg string) error {
	addr, err := resolve(cmd, arg)
	if err != nil {
		return err
	}

	url, err := cmd.Flags().GetString("url")
	if err != nil {
		return err
	}

	v, err := query(url, kind, addr.Hex())
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), v)

	return nil
}

func query(url string, kind string, address string) (uint64, error) {
	resp, err := newClient().Get(fmt.Sprintf("%s/v1/rollup/%s/%s", url, kind, address))
	if err != nil {
		return 0, err
	}

	var a amount
	if err := decodeResponse(resp, &a); err != nil {
		return 0, err
	}

	return a.Amount, nil
}
