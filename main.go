package main

import (
	"fmt"
	"os"

	"github.com/brickbee/go-trade-vault/cmd/keygen"
	"github.com/brickbee/go-trade-vault/cmd/server"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trade-vault",
	Short: "Local credential vault and execution session manager for the brickbee trading dashboard",
	Long: `trade-vault keeps marketplace API keys encrypted at rest, exchanges them
for short-lived execution tokens with the brickbee backend, and keeps those
tokens fresh for the lifetime of the dashboard. Plaintext keys never touch
disk and never appear in any HTTP response.`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func main() {
	rootCmd.AddCommand(server.New())
	rootCmd.AddCommand(keygen.New())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
