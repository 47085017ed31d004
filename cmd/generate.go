package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/timothe-chaumont/automatic-receipts/internal/config"
	"github.com/timothe-chaumont/automatic-receipts/internal/directory"
	"github.com/timothe-chaumont/automatic-receipts/internal/logger"
	"github.com/timothe-chaumont/automatic-receipts/internal/mail"
	"github.com/timothe-chaumont/automatic-receipts/internal/numbering"
	"github.com/timothe-chaumont/automatic-receipts/internal/order"
	"github.com/timothe-chaumont/automatic-receipts/internal/process"
	"github.com/timothe-chaumont/automatic-receipts/internal/render"
	"github.com/timothe-chaumont/automatic-receipts/internal/sheet"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate factures for unpaid, uninvoiced orders",
	Long: `Generate a PDF facture for every eligible order of the selected
recipients, allocate sequential invoice numbers for the current month, and
write each number back to the spreadsheet row once its document exists.

Exactly one selection mode is required:
  -a, --association NAME   one association, by name
      --associations       every association known to the directory
      --individuals        every student and external client with a valid
                           contact address

Bulk modes print an overview and ask for confirmation before proceeding.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  SPREADSHEET_ID - The accounting spreadsheet ID
  RECEIPTS_PATH - Root directory where factures are stored by month`,
	Example: `  # All pending orders of one association
  factures generate -a "Hyris"

  # Every association known to the directory, then email the treasurers
  factures generate --associations --send

  # Students and external clients, skipping the confirmation prompt
  factures generate --individuals --yes`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP("association", "a", "", "Process all entries for the given association")
	generateCmd.Flags().Bool("associations", false, "Process all eligible association orders")
	generateCmd.Flags().Bool("individuals", false, "Process all eligible student and external orders")
	generateCmd.Flags().Bool("send", false, "Email each recipient their factures after generation")
	generateCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	generateCmd.Flags().Int("timeout", 300, "Run timeout in seconds")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	assoName, _ := cmd.Flags().GetString("association")
	allAssos, _ := cmd.Flags().GetBool("associations")
	allIndividuals, _ := cmd.Flags().GetBool("individuals")
	send, _ := cmd.Flags().GetBool("send")
	yes, _ := cmd.Flags().GetBool("yes")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	modes := 0
	for _, set := range []bool{assoName != "", allAssos, allIndividuals} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return fmt.Errorf("exactly one of -a, --associations or --individuals is required")
	}

	log := logger.WithRunID(uuid.NewString()).With().Str("component", "generate").Logger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if send {
		if err := cfg.ValidateMail(); err != nil {
			return err
		}
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
	fmt.Printf("%d commande(s) sans facture ni paiement.\n", len(eligible))

	selected, overview := selectOrders(eligible, dir, assoName, allAssos, allIndividuals, log)
	if len(selected) == 0 {
		fmt.Println("Rien à traiter.")
		return nil
	}

	groups := order.GroupByRecipient(selected)

	bulk := allAssos || allIndividuals
	if bulk && !yes {
		fmt.Print(overview)
		if !confirm(os.Stdin) {
			fmt.Println("Ok!")
			return nil
		}
		fmt.Println("Let's go!")
	}

	processor := process.New(
		repo,
		dir,
		numbering.NewAllocator(cfg.ReceiptsRootPath),
		render.NewPDFRenderer(render.Config{
			IssuerOfficialName: cfg.IssuerOfficialName,
			IssuerInfo:         cfg.IssuerInfo,
			ARCSTreasurerName:  cfg.ARCSTreasurerName,
			ClubTreasurerName:  cfg.TreasurerName,
			IBAN:               cfg.IssuerIBAN,
			AccountNumber:      cfg.IssuerAccount,
		}),
		mail.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SenderEmail, cfg.SenderPassword,
			cfg.TreasurerName, cfg.TreasurerPhone),
	)

	report, err := processor.Run(ctx, orders, groups, process.Options{SendMail: send})
	// Run always returns a usable report, even on error; print what was
	// exported before reporting the abort so the operator knows which rows
	// already carry a facture.
	for _, path := range report.Generated {
		fmt.Printf(" - Facture %s exportée.\n", strings.TrimSuffix(filepath.Base(path), ".pdf"))
	}
	if err != nil {
		return handleGenerateError(err, log)
	}

	fmt.Printf("%d facture(s) générée(s)", report.Invoiced)
	if send {
		fmt.Printf(", %d email(s) envoyé(s)", report.Notified)
		if report.NotifyFailures > 0 {
			fmt.Printf(", %d envoi(s) en échec", report.NotifyFailures)
		}
	}
	fmt.Println(".")
	return nil
}

// selectOrders applies the mode's refinements on top of the base
// eligibility filter and builds the pre-confirmation overview text.
func selectOrders(eligible []order.Order, dir *directory.Directory, assoName string, allAssos, allIndividuals bool, log zerolog.Logger) ([]order.Order, string) {
	switch {
	case assoName != "":
		selected := order.FilterByRecipientName(eligible, assoName)
		fmt.Printf("%d ligne(s) trouvée(s) pour %s.\n", len(selected), assoName)
		return selected, ""

	case allAssos:
		assoOrders := order.FilterByRecipientCategory(eligible, order.CategoryAssociation)
		selected, dropped := order.FilterKnownAssociations(assoOrders, dir)
		logExclusions(dropped, log)
		overview := fmt.Sprintf("\n%d prestation(s) peuvent être traitées pour des associations.\n", len(selected))
		return selected, overview

	case allIndividuals:
		withContact, dropped := order.FilterValidContact(eligible)
		logExclusions(dropped, log)
		internal := order.FilterByRecipientCategory(withContact, order.CategoryInternal)
		external := order.FilterByRecipientCategory(withContact, order.CategoryExternal)
		selected := append(internal, external...)
		overview := fmt.Sprintf("\n%d prestation(s) peuvent être traitées, dont:\n"+
			" - %d pour des étudiants,\n - %d pour des clients extérieurs.\n",
			len(selected), len(internal), len(external))
		return selected, overview

	default:
		return nil, ""
	}
}

func logExclusions(excluded []order.Excluded, log zerolog.Logger) {
	for _, e := range excluded {
		log.Info().
			Int("row", e.Order.Row).
			Str("recipient", e.Order.Recipient).
			Str("reason", string(e.Reason)).
			Msg("Order left for manual handling")
	}
}

// confirm asks the operator whether the batch may proceed (O/N).
func confirm(in io.Reader) bool {
	fmt.Print("\nVoulez-vous continuer? (O/N)\n")
	reader := bufio.NewReader(in)
	answer, err := reader.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), "o")
}

// newRunContext creates a context with timeout and signal handling
func newRunContext(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling run")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// handleGenerateError translates run failures into operator-friendly
// messages.
func handleGenerateError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Generation run failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("the run timed out; try increasing --timeout")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("the run was canceled")
	case errors.Is(err, numbering.ErrSequenceExhausted):
		return fmt.Errorf("more than %d factures this month; the numbering scheme has no rollover: %w",
			numbering.MaxSequence, err)
	case errors.Is(err, directory.ErrUnknownAssociation):
		return fmt.Errorf("add the association to the directory file and re-run: %w", err)
	case errors.Is(err, sheet.ErrColumnNotFound):
		return fmt.Errorf("the spreadsheet structure changed; check the column names on line 2: %w", err)
	default:
		return err
	}
}
