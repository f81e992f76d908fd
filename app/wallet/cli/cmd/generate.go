package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate <name>",
	Args:  cobra.ExactArgs(1),
	Short: "Generate new key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := cmd.Flags().GetString("account-path")
		if err != nil {
			return err
		}

		return runKeyGen(cmd, keyPath(args[0], path))
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func runKeyGen(cmd *cobra.Command, dest string) error {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return err
	}

	if err := crypto.SaveECDSA(dest, privateKey); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), crypto.PubkeyToAddress(privateKey.PublicKey).Hex())

	return nil
}
