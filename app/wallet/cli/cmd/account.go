package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// accountCmd represents the account command
var accountCmd = &cobra.Command{
	Use:   "account <name>",
	Args:  cobra.ExactArgs(1),
	Short: "Print the address of the specific wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := resolve(cmd, args[0])
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), addr.Hex())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(accountCmd)
}
