// Package sheet is the order repository: it reads the accounting
// spreadsheet's order rows over the Google Sheets API and writes invoice
// numbers back, one cell at a time.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/timothe-chaumont/automatic-receipts/internal/logger"
	"github.com/timothe-chaumont/automatic-receipts/internal/order"
)

// Sheet layout constants. The column names live on line 2; order rows
// start on line 3.
const (
	headerRange  = "A2:R2"
	dataRange    = "A:S"
	firstDataRow = 3
)

// Column names the repository needs to locate. Resolving them by name from
// the header row keeps the tool working when columns are inserted.
const (
	colDate          = "Date"
	colType          = "Type"
	colRecipientKind = "Inté / Exté"
	colRecipient     = "Bénéficiaire"
	colContact       = "Contact eventuel"
	colDescription   = "Description"
	colA1            = "A1"
	colA2            = "A2"
	colA3            = "A3"
	colSticker       = "Sticker"
	colTShirt        = "T-shirt"
	colTotalPrice    = "Prix total"
	colInvoiceNumber = "№ facture"
	colPayment       = "Encaissement"
)

var requiredColumns = []string{
	colDate, colType, colRecipientKind, colRecipient, colContact,
	colDescription, colA1, colA2, colA3, colSticker, colTShirt,
	colTotalPrice, colInvoiceNumber, colPayment,
}

// ErrColumnNotFound is returned when a required column name is missing
// from the header row, i.e. the sheet structure changed under the tool.
var ErrColumnNotFound = errors.New("required column not found in sheet header")

// Service handles order sheet operations.
type Service struct {
	sheetsService *sheets.Service
	spreadsheetID string
	sheetName     string
	cols          map[string]int
	log           zerolog.Logger
}

// NewService creates a sheet repository for one spreadsheet and resolves
// the column layout from the header row.
//
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS (path to a service
// account JSON file) or GOOGLE_CREDENTIALS (inline JSON).
func NewService(ctx context.Context, spreadsheetID, sheetName string) (*Service, error) {
	const op = "sheet.NewService"

	log := logger.WithComponent("sheet")

	var creds []byte
	var err error
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		creds, err = os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read credentials file: %w", op, err)
		}
	} else if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	} else {
		return nil, fmt.Errorf("%s: neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set", op)
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	client := config.Client(ctx)
	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	s := &Service{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		log:           log,
	}

	if err := s.resolveColumns(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

// resolveColumns reads the header row and maps required column names to
// zero-based indexes. A missing name means the sheet structure changed and
// nothing should be trusted.
func (s *Service) resolveColumns(ctx context.Context) error {
	resp, err := s.sheetsService.Spreadsheets.Values.
		Get(s.spreadsheetID, s.rangeSpec(headerRange)).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read header row: %w", err)
	}
	if len(resp.Values) == 0 {
		return fmt.Errorf("header row %s is empty", headerRange)
	}

	header := resp.Values[0]
	names := make(map[string]int, len(header))
	for i, v := range header {
		names[strings.TrimSpace(fmt.Sprint(v))] = i
	}

	cols := make(map[string]int, len(requiredColumns))
	for _, name := range requiredColumns {
		idx, ok := names[name]
		if !ok {
			return fmt.Errorf("%q: %w", name, ErrColumnNotFound)
		}
		cols[name] = idx
	}

	s.cols = cols
	s.log.Debug().
		Int("columns", len(cols)).
		Msg("Resolved sheet columns from header row")
	return nil
}

// FetchOrders reads the whole sheet once and returns its order rows in
// source order. Absent trailing cells are normalized to empty strings.
func (s *Service) FetchOrders(ctx context.Context) ([]order.Order, error) {
	const op = "sheet.FetchOrders"

	resp, err := s.sheetsService.Spreadsheets.Values.
		Get(s.spreadsheetID, s.rangeSpec(dataRange)).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read sheet values: %w", op, err)
	}

	if len(resp.Values) < firstDataRow {
		return nil, nil
	}

	var orders []order.Order
	for i, row := range resp.Values[firstDataRow-1:] {
		o := order.Order{
			Row:               firstDataRow + i,
			Date:              s.cell(row, colDate),
			Category:          s.cell(row, colType),
			RecipientCategory: s.cell(row, colRecipientKind),
			Recipient:         s.cell(row, colRecipient),
			Contact:           s.cell(row, colContact),
			Description:       s.cell(row, colDescription),
			TotalPrice:        s.cell(row, colTotalPrice),
			InvoiceNumber:     s.cell(row, colInvoiceNumber),
			PaymentMarker:     s.cell(row, colPayment),
		}
		for slot, name := range []string{colA1, colA2, colA3, colSticker, colTShirt} {
			o.Quantities[slot] = s.cell(row, name)
		}
		orders = append(orders, o)
	}

	s.log.Info().
		Int("rows", len(orders)).
		Msg("Fetched order rows from sheet")
	return orders, nil
}

// WriteInvoiceNumber writes the invoice number into the "№ facture" cell
// of one row. The write is immediately durable on success; nothing else in
// the row is touched.
func (s *Service) WriteInvoiceNumber(ctx context.Context, row int, number string) error {
	const op = "sheet.WriteInvoiceNumber"

	cellRef := fmt.Sprintf("%s%d", columnLetter(s.cols[colInvoiceNumber]), row)
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{{number}},
	}

	_, err := s.sheetsService.Spreadsheets.Values.
		Update(s.spreadsheetID, s.rangeSpec(cellRef), valueRange).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to update cell %s: %w", op, cellRef, err)
	}

	s.log.Info().
		Int("row", row).
		Str("number", number).
		Msg("Invoice number written back to sheet")
	return nil
}

func (s *Service) rangeSpec(rng string) string {
	if s.sheetName == "" {
		return rng
	}
	return fmt.Sprintf("%s!%s", s.sheetName, rng)
}

// cell returns the trimmed text of a named column in a row, or "" when the
// row is shorter than the column index.
func (s *Service) cell(row []interface{}, column string) string {
	idx := s.cols[column]
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[idx]))
}

// columnLetter converts a zero-based column index to A1 notation.
func columnLetter(idx int) string {
	letters := ""
	for idx >= 0 {
		letters = string(rune('A'+idx%26)) + letters
		idx = idx/26 - 1
	}
	return letters
}
