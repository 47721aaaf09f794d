package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "checkout-demo",
		Short: "Checkout demo server",
		Long:  `Serves the checkout demo assets and proxies payment requests to the payment gateway.`,
		RunE:  runServe,
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newVersionCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
