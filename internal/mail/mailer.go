// Package mail sends the generated invoices to their recipients: one email
// per recipient group, invoices attached as PDF, with a body that varies by
// recipient category.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog"

	"github.com/timothe-chaumont/automatic-receipts/internal/logger"
	"github.com/timothe-chaumont/automatic-receipts/internal/order"
)

const subject = "Facture(s) CS Design"

// OrderSummary is one line of the email body, describing one invoiced
// order.
type OrderSummary struct {
	Date        string
	Description string
	TotalPrice  string
}

// Notification is one outgoing email: who, where, which invoices.
type Notification struct {
	RecipientName     string // canonical display name of the group
	Address           string
	RecipientCategory string // order.CategoryAssociation, CategoryInternal or CategoryExternal
	FirstName         string // treasurer first name for associations, empty otherwise
	Attachments       []string
	Orders            []OrderSummary
}

// Mailer sends notifications over SMTP-SSL (implicit TLS, Gmail-style
// port 465 with an app password).
type Mailer struct {
	host           string
	port           int
	sender         string
	password       string
	treasurerName  string
	treasurerPhone string
	log            zerolog.Logger
}

func NewMailer(host string, port int, sender, password, treasurerName, treasurerPhone string) *Mailer {
	return &Mailer{
		host:           host,
		port:           port,
		sender:         sender,
		password:       password,
		treasurerName:  treasurerName,
		treasurerPhone: treasurerPhone,
		log:            logger.WithComponent("mail"),
	}
}

// Send builds and sends one notification email with its PDF attachments.
func (m *Mailer) Send(ctx context.Context, n Notification) error {
	const op = "mail.Send"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	e := email.NewEmail()
	e.From = m.sender
	e.To = []string{n.Address}
	e.Subject = subject
	e.Text = []byte(m.body(n))

	for _, path := range n.Attachments {
		if _, err := e.AttachFile(path); err != nil {
			return fmt.Errorf("%s: failed to attach %s: %w", op, path, err)
		}
	}

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.sender, m.password, m.host)
	if err := e.SendWithTLS(addr, auth, &tls.Config{ServerName: m.host}); err != nil {
		return fmt.Errorf("%s: failed to send to %s: %w", op, n.Address, err)
	}

	m.log.Info().
		Str("to", n.Address).
		Str("recipient", n.RecipientName).
		Int("attachments", len(n.Attachments)).
		Msg("Invoice email sent")
	return nil
}

// body renders the French message for the notification. Associations are
// greeted through their treasurer, students informally, external clients
// formally; all three list the invoiced orders and sign with the club
// treasurer's contact details.
func (m *Mailer) body(n Notification) string {
	var b strings.Builder

	count := len(n.Orders)
	switch n.RecipientCategory {
	case order.CategoryAssociation:
		fmt.Fprintf(&b, "Hello %s,\n\n", n.FirstName)
		fmt.Fprintf(&b, "%d prestation(s) ont été réalisées par CS Design pour l'association %s :\n",
			count, n.RecipientName)
	case order.CategoryInternal:
		fmt.Fprintf(&b, "Hello %s,\n\n", n.RecipientName)
		fmt.Fprintf(&b, "%d prestation(s) ont été réalisées par CS Design pour toi :\n", count)
	default:
		b.WriteString("Bonjour,\n\n")
		fmt.Fprintf(&b, "%d prestation(s) ont été réalisées par CS Design pour %s :\n",
			count, n.RecipientName)
	}

	for _, o := range n.Orders {
		fmt.Fprintf(&b, "- %s : %s, %s\n", o.Date, o.Description, o.TotalPrice)
	}

	if n.RecipientCategory == order.CategoryExternal {
		b.WriteString("\nVous trouverez en pièces jointes les factures correspondantes.\n\n")
		b.WriteString("Cordialement,\n")
	} else {
		b.WriteString("\nTu trouveras en pièces jointes les factures correspondantes.\n\n")
		b.WriteString("Bonne journée,\n")
	}
	fmt.Fprintf(&b, "%s\nTrésorier de CS Design\n%s", m.treasurerName, m.treasurerPhone)

	return b.String()
}
