// Package cmd contains wallet app commands.
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/cobra"
)

const keyExt = ".ecdsa"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "wallet",
	Short:        "Rollup wallet",
	SilenceUsage: true,
}

// Execute runs the wallet with the command line arguments.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("account-path", "p", "zblock/accounts/", "Path to the directory with private keys.")
	rootCmd.PersistentFlags().StringP("url", "u", "http://localhost:8080", "Url of the rollup node.")
}

func keyPath(acctName, path string) string {
	if !strings.HasSuffix(acctName, keyExt) {
		acctName += keyExt
	}

	return filepath.Join(path, acctName)
}

// resolve accepts an address or the name of a key file.
func resolve(cmd *cobra.Command, arg string) (common.Address, error) {
	if common.IsHexAddress(arg) {
		return common.HexToAddress(arg), nil
	}

	path, err := cmd.Flags().GetString("account-path")
	if err != nil {
		return common.Address{}, err
	}

	privateKey, err := crypto.LoadECDSA(keyPath(arg, path))
	if err != nil {
		return common.Address{}, err
	}

	return crypto.PubkeyToAddress(privateKey.PublicKey), nil
}

func newClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	return client
}

// decodeResponse reads the node's reply into v, turning error replies
// into errors.
func decodeResponse(resp *http.Response, v any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var er struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		if err := json.Unmarshal(body, &er); err != nil || er.Error == "" {
			return fmt.Errorf("node replied %s", resp.Status)
		}
		if len(er.Fields) > 0 {
			return fmt.Errorf("%s: %v", er.Error, er.Fields)
		}
		return errors.New(er.Error)
	}

	return json.Unmarshal(body, v)
}
