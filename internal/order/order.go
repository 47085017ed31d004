// Package order holds the order records read from the accounting
// spreadsheet and the pure classification logic deciding which of them can
// be billed automatically: the eligibility filter, its refinements, and the
// per-recipient grouper.
package order

// Row types found in the "Type" column. Only service rows are billable;
// the sheet also carries expense rows ("Note de frais") and others.
const TypePrestation = "Prestation"

// Recipient categories found in the "Inté / Exté" column.
const (
	CategoryAssociation = "Asso"
	CategoryInternal    = "Inté"
	CategoryExternal    = "Exté"
)

// SettlementMethods are the values the "Encaissement" column takes once an
// order has been paid. An empty marker means unpaid.
var SettlementMethods = []string{"Virement", "Lydia Pro", "Chèque"}

// ServiceSlots is the number of per-service quantity columns
// (A1, A2, A3, Sticker, T-shirt), in that fixed order.
const ServiceSlots = 5

// Order is one row of the order sheet. All fields are raw cell text; absent
// trailing cells are normalized to "" by the repository. Row is the 1-based
// sheet line and the only stable identity: recipient names repeat.
type Order struct {
	Row int

	Date              string
	Category          string // row type, TypePrestation for billable rows
	RecipientCategory string // CategoryAssociation, CategoryInternal or CategoryExternal
	Recipient         string // display name, not unique across rows
	Contact           string // optional email-shaped contact address
	Description       string
	Quantities        [ServiceSlots]string
	TotalPrice        string // pre-formatted by the sheet, authoritative
	InvoiceNumber     string // empty until an invoice is generated
	PaymentMarker     string // empty, or one of SettlementMethods
}

// Eligible reports whether the row is an unpaid, uninvoiced service order.
// This is the single base predicate every processing mode starts from.
func (o Order) Eligible() bool {
	return o.Category == TypePrestation && o.InvoiceNumber == "" && o.PaymentMarker == ""
}
