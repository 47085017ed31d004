package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timothe-chaumont/automatic-receipts/internal/directory"
	"github.com/timothe-chaumont/automatic-receipts/internal/mail"
	"github.com/timothe-chaumont/automatic-receipts/internal/numbering"
	"github.com/timothe-chaumont/automatic-receipts/internal/order"
	"github.com/timothe-chaumont/automatic-receipts/internal/render"
)

// ── In-memory stubs ──────────────────────────────────────────────────────

type stubRepo struct {
	written map[int]string // row -> invoice number
	failRow int            // row whose write fails, 0 for none
}

func newStubRepo() *stubRepo {
	return &stubRepo{written: make(map[int]string)}
}

func (r *stubRepo) WriteInvoiceNumber(_ context.Context, row int, number string) error {
	if r.failRow != 0 && row == r.failRow {
		return errors.New("write refused")
	}
	r.written[row] = number
	return nil
}

var _ OrderRepository = (*stubRepo)(nil)

type stubRenderer struct {
	rendered  []render.Invoice
	failAfter int // fail on the N-th call (1-based), 0 for never
}

func (r *stubRenderer) Render(_ context.Context, inv render.Invoice, path string) error {
	if r.failAfter != 0 && len(r.rendered)+1 == r.failAfter {
		return errors.New("export failed")
	}
	r.rendered = append(r.rendered, inv)
	return os.WriteFile(path, []byte("%PDF"), 0644)
}

var _ Renderer = (*stubRenderer)(nil)

type stubNotifier struct {
	sent []mail.Notification
	err  error
}

func (n *stubNotifier) Send(_ context.Context, notif mail.Notification) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notif)
	return nil
}

var _ Notifier = (*stubNotifier)(nil)

// ── Fixtures ─────────────────────────────────────────────────────────────

func testDirectory(t *testing.T) *directory.Directory {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assos.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"hyris": {
			"official name": "Association Hyris",
			"address": "3 rue Joliot-Curie\n91190 Gif-sur-Yvette",
			"tresurer first name": "Camille",
			"tresurer mail": "camille@hyris.example.fr"
		}
	}`), 0644))
	dir, err := directory.Load(path)
	require.NoError(t, err)
	return dir
}

func hyrisOrders() []order.Order {
	return []order.Order{
		{Row: 3, Category: order.TypePrestation, RecipientCategory: order.CategoryAssociation,
			Recipient: "Hyris", Date: "01/03/2024", Description: "Affiches soirée",
			Quantities: [order.ServiceSlots]string{"2", "", "", "", ""}, TotalPrice: "8,00€"},
		{Row: 5, Category: order.TypePrestation, RecipientCategory: order.CategoryAssociation,
			Recipient: "Hyris", Date: "04/03/2024", Description: "Stickers",
			Quantities: [order.ServiceSlots]string{"", "", "", "10", ""}, TotalPrice: "1,50€"},
		{Row: 8, Category: order.TypePrestation, RecipientCategory: order.CategoryAssociation,
			Recipient: "Hyris", Date: "09/03/2024", Description: "T-shirts",
			Quantities: [order.ServiceSlots]string{"", "", "", "", "3"}, TotalPrice: "18,00€"},
	}
}

func newTestProcessor(t *testing.T, repo *stubRepo, renderer *stubRenderer, notifier *stubNotifier) (*Processor, string) {
	t.Helper()
	root := t.TempDir()
	p := New(repo, testDirectory(t), numbering.NewAllocator(root), renderer, notifier)
	p.now = func() time.Time { return time.Date(2024, time.March, 10, 14, 0, 0, 0, time.UTC) }
	return p, root
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestRunInvoicesAssociationGroup(t *testing.T) {
	repo := newStubRepo()
	renderer := &stubRenderer{}
	notifier := &stubNotifier{}
	p, root := newTestProcessor(t, repo, renderer, notifier)

	orders := hyrisOrders()
	groups := order.GroupByRecipient(orders)

	report, err := p.Run(context.Background(), orders, groups, Options{SendMail: true})
	require.NoError(t, err)

	// three documents, three ascending numbers written to the right rows
	assert.Equal(t, 3, report.Invoiced)
	require.Len(t, report.Generated, 3)
	assert.Equal(t, "2024-03-0001", repo.written[3])
	assert.Equal(t, "2024-03-0002", repo.written[5])
	assert.Equal(t, "2024-03-0003", repo.written[8])

	for _, path := range report.Generated {
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr, path)
		assert.Equal(t, filepath.Join(root, "2024-03"), filepath.Dir(path))
	}

	// invoices carry the directory's official identity
	require.Len(t, renderer.rendered, 3)
	assert.Contains(t, renderer.rendered[0].RecipientBlock, "Association Hyris")
	assert.Equal(t, "8,00€ TTC", renderer.rendered[0].Total)

	// one email to the treasurer with all three attachments
	assert.Equal(t, 1, report.Notified)
	require.Len(t, notifier.sent, 1)
	n := notifier.sent[0]
	assert.Equal(t, "camille@hyris.example.fr", n.Address)
	assert.Equal(t, "Camille", n.FirstName)
	assert.Len(t, n.Attachments, 3)
	assert.Len(t, n.Orders, 3)
	assert.Equal(t, "Affiches soirée", n.Orders[0].Description)
}

func TestRunSkipsNumbersAlreadyInSheet(t *testing.T) {
	repo := newStubRepo()
	p, _ := newTestProcessor(t, repo, &stubRenderer{}, &stubNotifier{})

	orders := hyrisOrders()
	// the snapshot also holds rows invoiced earlier this month
	all := append([]order.Order{
		{Row: 2, Category: order.TypePrestation, InvoiceNumber: "2024-03-0001"},
		{Row: 4, Category: order.TypePrestation, InvoiceNumber: "2024-03-0002", PaymentMarker: "Virement"},
	}, orders...)

	_, err := p.Run(context.Background(), all, order.GroupByRecipient(orders), Options{})
	require.NoError(t, err)

	assert.Equal(t, "2024-03-0003", repo.written[3])
	assert.Equal(t, "2024-03-0004", repo.written[5])
	assert.Equal(t, "2024-03-0005", repo.written[8])
}

func TestRunFailFastOnRenderFailure(t *testing.T) {
	repo := newStubRepo()
	renderer := &stubRenderer{failAfter: 2}
	notifier := &stubNotifier{}
	p, _ := newTestProcessor(t, repo, renderer, notifier)

	orders := hyrisOrders()
	report, err := p.Run(context.Background(), orders, order.GroupByRecipient(orders), Options{SendMail: true})
	require.Error(t, err)

	// first record fully processed, second aborted before its number was
	// written, nothing sent
	assert.Equal(t, 1, report.Invoiced)
	assert.Equal(t, map[int]string{3: "2024-03-0001"}, repo.written)
	assert.Empty(t, notifier.sent)
}

func TestRunFailFastOnWriteBackFailure(t *testing.T) {
	repo := newStubRepo()
	repo.failRow = 5
	p, _ := newTestProcessor(t, repo, &stubRenderer{}, &stubNotifier{})

	orders := hyrisOrders()
	report, err := p.Run(context.Background(), orders, order.GroupByRecipient(orders), Options{})
	require.Error(t, err)
	assert.Equal(t, 1, report.Invoiced)
}

func TestRunNotificationFailureDoesNotAbort(t *testing.T) {
	repo := newStubRepo()
	notifier := &stubNotifier{err: errors.New("smtp down")}
	p, _ := newTestProcessor(t, repo, &stubRenderer{}, notifier)

	orders := hyrisOrders()
	report, err := p.Run(context.Background(), orders, order.GroupByRecipient(orders), Options{SendMail: true})
	require.NoError(t, err)

	// invoices stay written; the failure is only reported
	assert.Equal(t, 3, report.Invoiced)
	assert.Len(t, repo.written, 3)
	assert.Equal(t, 0, report.Notified)
	assert.Equal(t, 1, report.NotifyFailures)
}

func TestRunUnknownAssociationIsAnError(t *testing.T) {
	p, _ := newTestProcessor(t, newStubRepo(), &stubRenderer{}, &stubNotifier{})

	orders := []order.Order{{
		Row: 3, Category: order.TypePrestation,
		RecipientCategory: order.CategoryAssociation, Recipient: "Inconnue",
	}}

	_, err := p.Run(context.Background(), orders, order.GroupByRecipient(orders), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, directory.ErrUnknownAssociation))
}

func TestRunIndividualUsesContactAddress(t *testing.T) {
	repo := newStubRepo()
	renderer := &stubRenderer{}
	notifier := &stubNotifier{}
	p, _ := newTestProcessor(t, repo, renderer, notifier)

	orders := []order.Order{{
		Row: 12, Category: order.TypePrestation,
		RecipientCategory: order.CategoryInternal, Recipient: "Jean Dupont",
		Contact: "jean.dupont@example.fr", Date: "02/03/2024",
		Description: "Affiches A3", Quantities: [order.ServiceSlots]string{"", "", "4", "", ""},
		TotalPrice: "4,00€",
	}}

	report, err := p.Run(context.Background(), orders, order.GroupByRecipient(orders), Options{SendMail: true})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Invoiced)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "jean.dupont@example.fr", notifier.sent[0].Address)
	assert.Equal(t, "", notifier.sent[0].FirstName)
	assert.Equal(t, "Jean Dupont", renderer.rendered[0].RecipientBlock)
}
