package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/timothe-chaumont/automatic-receipts/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "factures",
	Short: "Facture generation for the CS Design order sheet",
	Long: `factures automates the club's print-service billing: it reads the
order rows of the accounting spreadsheet, generates a PDF facture for every
unpaid, uninvoiced order, writes the allocated invoice numbers back to the
sheet, and can email each recipient their factures.

Use "factures summary" to see what is pending and "factures generate" to
produce the documents.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
