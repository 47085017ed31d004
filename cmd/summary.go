package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/timothe-chaumont/automatic-receipts/internal/config"
	"github.com/timothe-chaumont/automatic-receipts/internal/directory"
	"github.com/timothe-chaumont/automatic-receipts/internal/logger"
	"github.com/timothe-chaumont/automatic-receipts/internal/order"
	"github.com/timothe-chaumont/automatic-receipts/internal/sheet"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the pending orders of the spreadsheet",
	Long: `Read the spreadsheet and print every unpaid, uninvoiced service
order grouped by recipient, with a breakdown of how many can be processed
automatically and how many need manual handling.`,
	Example: `  factures summary`,
	Args:    cobra.NoArgs,
	RunE:    runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().Int("timeout", 120, "Run timeout in seconds")
}

func runSummary(cmd *cobra.Command, args []string) error {
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	log := logger.WithRunID(uuid.NewString()).With().Str("component", "summary").Logger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := newRunContext(timeoutSecs, log)
	defer cancel()

	dir, err := directory.Load(cfg.AssociationDirectoryPath)
	if err != nil {
		return err
	}

	repo, err := sheet.NewService(ctx, cfg.SpreadsheetID, cfg.SheetName)
	if err != nil {
		return handleGenerateError(err, log)
	}

	orders, err := repo.FetchOrders(ctx)
	if err != nil {
		return handleGenerateError(err, log)
	}

	eligible, _ := order.FilterEligible(orders)

	fmt.Println("----- Summary of the spreadsheet -----")
	fmt.Printf("\n%d commande(s) sans facture ni paiement.\n\n", len(eligible))

	for _, g := range order.GroupByRecipient(eligible) {
		fmt.Printf("%s (%d orders)\n", g.Name, len(g.Orders))
	}

	// breakdown of what generate could handle without manual work
	assoOrders := order.FilterByRecipientCategory(eligible, order.CategoryAssociation)
	knownAssos, unknownAssos := order.FilterKnownAssociations(assoOrders, dir)
	withContact, badContact := order.FilterValidContact(eligible)
	internal := order.FilterByRecipientCategory(withContact, order.CategoryInternal)
	external := order.FilterByRecipientCategory(withContact, order.CategoryExternal)

	fmt.Printf("\nTraitables automatiquement : %d pour des associations, %d pour des étudiants, %d pour des clients extérieurs.\n",
		len(knownAssos), len(internal), len(external))

	manual := len(unknownAssos)
	for _, e := range badContact {
		if e.Order.RecipientCategory != order.CategoryAssociation {
			manual++
		}
	}
	if manual > 0 {
		fmt.Printf("À traiter manuellement (association inconnue ou contact invalide) : %d.\n", manual)
	}

	return nil
}
