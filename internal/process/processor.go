// Package process drives one billing run: for each recipient group it
// prices the orders, allocates invoice numbers, renders the PDFs, writes
// the numbers back to the sheet, and optionally emails the recipient.
package process

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/timothe-chaumont/automatic-receipts/internal/directory"
	"github.com/timothe-chaumont/automatic-receipts/internal/logger"
	"github.com/timothe-chaumont/automatic-receipts/internal/mail"
	"github.com/timothe-chaumont/automatic-receipts/internal/numbering"
	"github.com/timothe-chaumont/automatic-receipts/internal/order"
	"github.com/timothe-chaumont/automatic-receipts/internal/pricing"
	"github.com/timothe-chaumont/automatic-receipts/internal/render"
)

// OrderRepository is the sheet boundary the processor writes through.
type OrderRepository interface {
	WriteInvoiceNumber(ctx context.Context, row int, number string) error
}

// Allocator issues invoice numbers for a period, skipping known ones.
type Allocator interface {
	PeriodDir(period string) string
	Next(period string, known map[string]struct{}) (string, error)
}

// Renderer produces one invoice PDF, with no partial output on failure.
type Renderer interface {
	Render(ctx context.Context, inv render.Invoice, path string) error
}

// Notifier sends one email per recipient group.
type Notifier interface {
	Send(ctx context.Context, n mail.Notification) error
}

// Options selects per-run behavior.
type Options struct {
	SendMail bool
}

// Report summarizes what a run did.
type Report struct {
	Invoiced       int      // orders invoiced and written back
	Generated      []string // paths of the generated PDFs
	Notified       int      // emails sent
	NotifyFailures int      // emails that failed (invoices remain valid)
}

// Processor orchestrates a billing run over recipient groups.
type Processor struct {
	repo     OrderRepository
	dir      *directory.Directory
	alloc    Allocator
	renderer Renderer
	notifier Notifier
	now      func() time.Time
	log      zerolog.Logger
}

func New(repo OrderRepository, dir *directory.Directory, alloc Allocator, renderer Renderer, notifier Notifier) *Processor {
	return &Processor{
		repo:     repo,
		dir:      dir,
		alloc:    alloc,
		renderer: renderer,
		notifier: notifier,
		now:      time.Now,
		log:      logger.WithComponent("process"),
	}
}

// Run bills every group in order. all is the full sheet snapshot, used to
// seed the set of invoice numbers already taken.
//
// A pricing, allocation, rendering or write-back failure aborts the whole
// run: a partially numbered, partially rendered batch is worse than a
// stopped one. The invoice number of a row is only written after its PDF
// exists, so a written number always points at a real document. A failed
// notification is counted and logged but never undoes prior work; the
// generated documents are the durable artifact of record.
func (p *Processor) Run(ctx context.Context, all []order.Order, groups []order.Group, opts Options) (*Report, error) {
	const op = "process.Run"

	known := make(map[string]struct{})
	for _, o := range all {
		if o.InvoiceNumber != "" {
			known[o.InvoiceNumber] = struct{}{}
		}
	}

	period := numbering.PeriodKey(p.now())
	report := &Report{}

	for _, g := range groups {
		if err := p.runGroup(ctx, g, period, known, opts, report); err != nil {
			return report, fmt.Errorf("%s: recipient %s: %w", op, g.Name, err)
		}
	}

	p.log.Info().
		Str("period", period).
		Int("invoiced", report.Invoiced).
		Int("notified", report.Notified).
		Int("notify_failures", report.NotifyFailures).
		Msg("Billing run completed")
	return report, nil
}

func (p *Processor) runGroup(ctx context.Context, g order.Group, period string, known map[string]struct{}, opts Options, report *Report) error {
	first := g.Orders[0]

	recipientBlock, contact, firstName, err := p.resolveRecipient(g.Name, first)
	if err != nil {
		return err
	}

	var paths []string
	var summaries []mail.OrderSummary

	for _, o := range g.Orders {
		items, err := pricing.BuildLineItems(o)
		if err != nil {
			return err
		}

		number, err := p.alloc.Next(period, known)
		if err != nil {
			return err
		}

		path := filepath.Join(p.alloc.PeriodDir(period), number+".pdf")
		inv := render.Invoice{
			Number:         number,
			RecipientBlock: recipientBlock,
			Items:          items,
			Total:          pricing.GrandTotal(o),
			IssueDate:      p.now(),
		}
		if err := p.renderer.Render(ctx, inv, path); err != nil {
			return fmt.Errorf("row %d: %w", o.Row, err)
		}

		// the document exists: the number may now be recorded
		if err := p.repo.WriteInvoiceNumber(ctx, o.Row, number); err != nil {
			return fmt.Errorf("row %d: %w", o.Row, err)
		}

		known[number] = struct{}{}
		paths = append(paths, path)
		summaries = append(summaries, mail.OrderSummary{
			Date:        o.Date,
			Description: o.Description,
			TotalPrice:  o.TotalPrice,
		})
		report.Invoiced++
		report.Generated = append(report.Generated, path)

		p.log.Info().
			Str("number", number).
			Int("row", o.Row).
			Str("recipient", g.Name).
			Msg("Facture générée")
	}

	if !opts.SendMail {
		return nil
	}

	n := mail.Notification{
		RecipientName:     g.Name,
		Address:           contact,
		RecipientCategory: first.RecipientCategory,
		FirstName:         firstName,
		Attachments:       paths,
		Orders:            summaries,
	}
	if err := p.notifier.Send(ctx, n); err != nil {
		p.log.Error().
			Err(err).
			Str("recipient", g.Name).
			Str("to", contact).
			Msg("Notification failed; invoices are generated and recorded")
		report.NotifyFailures++
		return nil
	}
	report.Notified++
	return nil
}

// resolveRecipient returns the invoice address block, the email address and
// the greeting first name for a group. Associations resolve through the
// directory; a miss at this point is an error, because the filters should
// only let known associations through.
func (p *Processor) resolveRecipient(name string, first order.Order) (block, contact, firstName string, err error) {
	if first.RecipientCategory == order.CategoryAssociation {
		entry, err := p.dir.Lookup(name)
		if err != nil {
			return "", "", "", err
		}
		return entry.OfficialName + "\n" + entry.Address, entry.TreasurerEmail, entry.TreasurerFirstName, nil
	}
	return name, first.Contact, "", nil
}
