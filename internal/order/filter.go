package order

import (
	"regexp"
	"strings"
)

// ExclusionReason tags why a record was left out of an automated batch.
// Exclusion is a classification, not an error: excluded rows stay in the
// sheet for manual handling and operators can tell "nothing to do" apart
// from silently lost work.
type ExclusionReason string

const (
	// ReasonWrongCategory marks rows that are not service orders.
	ReasonWrongCategory ExclusionReason = "wrong_category"

	// ReasonAlreadyInvoiced marks rows that already carry an invoice number.
	ReasonAlreadyInvoiced ExclusionReason = "already_invoiced"

	// ReasonAlreadyPaid marks rows whose payment marker is set.
	ReasonAlreadyPaid ExclusionReason = "already_paid"

	// ReasonUnknownRecipient marks association rows whose recipient is not
	// in the association directory.
	ReasonUnknownRecipient ExclusionReason = "unknown_recipient"

	// ReasonInvalidContact marks individual/external rows with an empty or
	// malformed contact address.
	ReasonInvalidContact ExclusionReason = "invalid_contact"
)

// Excluded pairs a dropped record with the reason it was dropped.
type Excluded struct {
	Order  Order
	Reason ExclusionReason
}

// RecipientDirectory is the membership view of the association directory
// needed by the known-association refinement.
type RecipientDirectory interface {
	// Has reports whether the directory knows the association. The key is
	// already lower-cased by the caller; implementations may treat it as an
	// exact lookup.
	Has(name string) bool
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

// FilterEligible keeps the unpaid, uninvoiced service orders. Rows failing
// the predicate are returned with a tagged reason; the first failing check
// wins (wrong category, then already invoiced, then already paid).
func FilterEligible(orders []Order) ([]Order, []Excluded) {
	var eligible []Order
	var excluded []Excluded
	for _, o := range orders {
		switch {
		case o.Category != TypePrestation:
			excluded = append(excluded, Excluded{o, ReasonWrongCategory})
		case o.InvoiceNumber != "":
			excluded = append(excluded, Excluded{o, ReasonAlreadyInvoiced})
		case o.PaymentMarker != "":
			excluded = append(excluded, Excluded{o, ReasonAlreadyPaid})
		default:
			eligible = append(eligible, o)
		}
	}
	return eligible, excluded
}

// FilterByRecipientCategory keeps the orders whose recipient category
// matches. A pure mode selection: dropped rows are simply out of scope for
// the requested batch, so no reasons are reported.
func FilterByRecipientCategory(orders []Order, category string) []Order {
	var kept []Order
	for _, o := range orders {
		if o.RecipientCategory == category {
			kept = append(kept, o)
		}
	}
	return kept
}

// FilterKnownAssociations keeps the orders whose recipient resolves
// (case-insensitively) in the association directory. Unknown associations
// need manual handling and are excluded with ReasonUnknownRecipient.
func FilterKnownAssociations(orders []Order, dir RecipientDirectory) ([]Order, []Excluded) {
	var kept []Order
	var excluded []Excluded
	for _, o := range orders {
		if dir.Has(strings.ToLower(o.Recipient)) {
			kept = append(kept, o)
		} else {
			excluded = append(excluded, Excluded{o, ReasonUnknownRecipient})
		}
	}
	return kept, excluded
}

// FilterValidContact keeps the orders whose contact field is a plausible
// email address. Empty or malformed contacts cannot be notified and are
// excluded with ReasonInvalidContact.
func FilterValidContact(orders []Order) ([]Order, []Excluded) {
	var kept []Order
	var excluded []Excluded
	for _, o := range orders {
		if emailPattern.MatchString(o.Contact) {
			kept = append(kept, o)
		} else {
			excluded = append(excluded, Excluded{o, ReasonInvalidContact})
		}
	}
	return kept, excluded
}

// FilterByRecipientName keeps the orders of one recipient, compared
// case-insensitively.
func FilterByRecipientName(orders []Order, name string) []Order {
	var kept []Order
	for _, o := range orders {
		if strings.EqualFold(o.Recipient, name) {
			kept = append(kept, o)
		}
	}
	return kept
}
