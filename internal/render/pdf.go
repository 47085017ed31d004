// Package render turns a priced order into the invoice PDF sent to the
// recipient: title, issuer and recipient blocks, invoice details, the
// order table and the bank footer.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"

	"github.com/timothe-chaumont/automatic-receipts/internal/logger"
	"github.com/timothe-chaumont/automatic-receipts/internal/pricing"
)

// Invoice carries everything printed on one invoice page.
type Invoice struct {
	Number         string
	RecipientBlock string // official name + postal address, or plain display name
	Items          []pricing.LineItem
	Total          string // verbatim sheet total, TTC-labeled
	IssueDate      time.Time
}

// Config is the static issuer identity printed on every invoice.
type Config struct {
	IssuerOfficialName string
	IssuerInfo         string
	ARCSTreasurerName  string
	ClubTreasurerName  string
	IBAN               string
	AccountNumber      string
}

// PDFRenderer renders invoices with fpdf.
type PDFRenderer struct {
	cfg Config
	log zerolog.Logger
}

func NewPDFRenderer(cfg Config) *PDFRenderer {
	return &PDFRenderer{
		cfg: cfg,
		log: logger.WithComponent("render"),
	}
}

// paymentTermWeeks is the delay between issue and due date.
const paymentTermWeeks = 2

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

func frenchDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), frenchMonths[t.Month()-1], t.Year())
}

// Render writes the invoice PDF to path. The document is built fully in
// memory first, so a failure leaves no partial file behind.
func (r *PDFRenderer) Render(ctx context.Context, inv Invoice, path string) error {
	const op = "render.Render"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Title and issuer block ────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(contentW*0.5, 12, "FACTURE", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW*0.5, 5, tr(r.cfg.IssuerOfficialName), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	x := pdf.GetX()
	pdf.SetX(x + contentW*0.5)
	pdf.MultiCell(contentW*0.5, 4, tr(r.cfg.IssuerInfo), "", "R", false)
	pdf.Ln(4)

	// ── Recipient ────────────────────────────────────────────────────────
	r.heading(pdf, tr, "Facturé à")
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(contentW, 4.5, tr(inv.RecipientBlock), "", "L", false)
	pdf.Ln(4)

	// ── Details ──────────────────────────────────────────────────────────
	r.heading(pdf, tr, "Détails")
	due := inv.IssueDate.AddDate(0, 0, paymentTermWeeks*7)
	pdf.SetFont("Helvetica", "", 9)
	for _, line := range []string{
		"Numéro de facture ...............  " + inv.Number,
		"Date de la facture ................  " + frenchDate(inv.IssueDate),
		"Mode de règlement .............  chèque ou virement",
		"Date d'échéance .................  " + frenchDate(due),
	} {
		pdf.CellFormat(contentW, 4.5, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// ── Responsables ─────────────────────────────────────────────────────
	r.heading(pdf, tr, "Responsables")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 4.5,
		tr(r.cfg.ARCSTreasurerName+" en qualité de Trésorier de l'ARCS"), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4.5,
		tr(r.cfg.ClubTreasurerName+" en qualité de Trésorier du club CS Design"), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	r.ordersTable(pdf, tr, contentW, inv)

	// ── Bank footer ──────────────────────────────────────────────────────
	pdf.Ln(14)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(100, 100, 100)
	for _, line := range []string{
		"Établir tous les chèques à l'ordre de ARCS - CS Design",
		"Domiciliation bancaire pour les règlements par virement : " + r.cfg.AccountNumber,
		"IBAN : " + r.cfg.IBAN,
	} {
		pdf.CellFormat(contentW, 4, tr(line), "", 1, "C", false, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return fmt.Errorf("%s: failed to build PDF: %w", op, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("%s: failed to write %s: %w", op, path, err)
	}

	r.log.Info().
		Str("number", inv.Number).
		Str("path", path).
		Int("items", len(inv.Items)).
		Msg("Invoice PDF generated")
	return nil
}

func (r *PDFRenderer) heading(pdf *fpdf.Fpdf, tr func(string) string, text string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, tr(text), "", 1, "L", false, 0, "")
}

// ordersTable draws the 5-column line-item table: quantity, designation,
// unit price, TVA (never applicable in this domain), line total, then two
// blank rows and the bold "Net à payer" row carrying the verbatim total.
func (r *PDFRenderer) ordersTable(pdf *fpdf.Fpdf, tr func(string) string, contentW float64, inv Invoice) {
	colQty := contentW * 0.07
	colDesignation := contentW * 0.41
	colUnit := contentW * 0.18
	colTVA := contentW * 0.16
	colTotal := contentW * 0.18

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(colQty, 6, tr("Qté"), "B", 0, "R", false, 0, "")
	pdf.CellFormat(colDesignation, 6, tr("Désignation"), "B", 0, "L", false, 0, "")
	pdf.CellFormat(colUnit, 6, "Prix unitaire", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colTVA, 6, "TVA", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colTotal, 6, "Tot. ligne", "B", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, item := range inv.Items {
		pdf.CellFormat(colQty, 6, item.Quantity, "", 0, "R", false, 0, "")
		pdf.CellFormat(colDesignation, 6, tr(item.Designation), "", 0, "L", false, 0, "")
		pdf.CellFormat(colUnit, 6, tr(item.UnitPrice), "", 0, "L", false, 0, "")
		pdf.CellFormat(colTVA, 6, "Non applicable", "", 0, "L", false, 0, "")
		pdf.CellFormat(colTotal, 6, tr(item.LineTotal), "", 1, "L", false, 0, "")
	}

	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(colQty+colDesignation+colUnit, 6, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(colTVA, 6, tr("Net à payer"), "T", 0, "L", false, 0, "")
	pdf.CellFormat(colTotal, 6, tr(inv.Total), "T", 1, "L", false, 0, "")
}
