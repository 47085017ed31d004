package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timothe-chaumont/automatic-receipts/internal/pricing"
)

func testConfig() Config {
	return Config{
		IssuerOfficialName: "ARCS - CS Design",
		IssuerInfo:         "3 rue Joliot-Curie\n91190 Gif-sur-Yvette",
		ARCSTreasurerName:  "Dominique Martin",
		ClubTreasurerName:  "Camille Durand",
		IBAN:               "FR76 0000 0000 0000 0000 0000 000",
		AccountNumber:      "00000000000",
	}
}

func TestFrenchDate(t *testing.T) {
	assert.Equal(t, "2 mars 2024", frenchDate(time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "15 août 2024", frenchDate(time.Date(2024, time.August, 15, 0, 0, 0, 0, time.UTC)))
}

func TestRenderWritesPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2024-03-0001.pdf")

	inv := Invoice{
		Number:         "2024-03-0001",
		RecipientBlock: "Association Hyris\n3 rue Joliot-Curie\n91190 Gif-sur-Yvette",
		Items: []pricing.LineItem{
			{Quantity: "2", Designation: "Impression affiche A1", UnitPrice: "4,00€ HT", LineTotal: "8,00€ TTC"},
			{Quantity: "10", Designation: "Impression sticker", UnitPrice: "0,15€ HT", LineTotal: "1,50€ TTC"},
		},
		Total:     "9,50€ TTC",
		IssueDate: time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC),
	}

	err := NewPDFRenderer(testConfig()).Render(context.Background(), inv, path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Greater(t, len(data), 500)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestRenderEmptyItemList(t *testing.T) {
	// a record with no service quantities still renders: empty table plus
	// the verbatim total
	path := filepath.Join(t.TempDir(), "2024-03-0002.pdf")

	inv := Invoice{
		Number:         "2024-03-0002",
		RecipientBlock: "Jean Dupont",
		Total:          "0,00€ TTC",
		IssueDate:      time.Now(),
	}

	err := NewPDFRenderer(testConfig()).Render(context.Background(), inv, path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestRenderCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "2024-03-0003.pdf")
	err := NewPDFRenderer(testConfig()).Render(ctx, Invoice{Number: "2024-03-0003"}, path)
	require.Error(t, err)

	// no partial output
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
