// Package numbering allocates invoice numbers. Numbers are scoped to a
// billing period (one calendar month, keyed "YYYY-MM") and have the form
// "YYYY-MM-NNNN" with a zero-padded, strictly increasing 4-digit sequence.
//
// The authoritative sequence state is a small counter file persisted in the
// period's output directory. Scanning the directory's PDF filenames is only
// a recovery tool, used to reseed the counter when the file is missing;
// the invoice-number column of the sheet is still consulted on every
// allocation so that a stale or rebuilt counter can never reissue a number
// the sheet already carries.
//
// Allocation is only safe under a single-writer assumption: two concurrent
// runs sharing a period directory can race the counter file and the sheet
// snapshot and assign duplicate numbers.
//
// The counter advances as soon as a number is issued, before the caller has
// exported anything with it, so a run that fails mid-way consumes its
// sequence values and leaves a permanent gap in the period's numbering.
// Gaps are harmless: numbers stay unique and increasing.
package numbering

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/timothe-chaumont/automatic-receipts/internal/logger"
)

// MaxSequence is the operational ceiling of invoices per period. There is
// no rollover policy: exceeding it aborts the run.
const MaxSequence = 9999

// ErrSequenceExhausted is returned when a period would need more than
// MaxSequence invoice numbers.
var ErrSequenceExhausted = errors.New("invoice sequence exhausted for period")

// counterFile is the per-period file holding the last issued sequence.
const counterFile = ".sequence"

var pdfSequencePattern = regexp.MustCompile(`-(\d+)\.pdf$`)

// Allocator issues invoice numbers under a receipts root directory laid out
// as <root>/<period>/<number>.pdf.
type Allocator struct {
	root string
	log  zerolog.Logger
}

// NewAllocator creates an allocator rooted at the receipts directory.
func NewAllocator(root string) *Allocator {
	return &Allocator{
		root: root,
		log:  logger.WithComponent("numbering"),
	}
}

// PeriodKey returns the billing period of a date, "YYYY-MM".
func PeriodKey(t time.Time) string {
	return t.Format("2006-01")
}

// FormatNumber renders an invoice number from its period and sequence.
func FormatNumber(period string, seq int) string {
	return fmt.Sprintf("%s-%04d", period, seq)
}

// PeriodDir returns the output directory of a period.
func (a *Allocator) PeriodDir(period string) string {
	return filepath.Join(a.root, period)
}

// Next returns the next free invoice number for the period, ensuring the
// period's output directory exists and advancing the persisted counter.
//
// known holds every number already recorded in the sheet, plus the numbers
// issued earlier in the same run (folded in by the caller); a candidate
// colliding with it is skipped. The allocator keeps no in-memory state
// across calls, so successive calls informed this way return pairwise
// distinct, increasing numbers.
func (a *Allocator) Next(period string, known map[string]struct{}) (string, error) {
	const op = "numbering.Next"

	dir := a.PeriodDir(period)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%s: failed to create period directory: %w", op, err)
	}

	seq, err := a.seedSequence(dir)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	for {
		if seq > MaxSequence {
			return "", fmt.Errorf("%s: period %s: %w", op, period, ErrSequenceExhausted)
		}
		candidate := FormatNumber(period, seq)
		if _, used := known[candidate]; !used {
			if err := a.writeCounter(dir, seq); err != nil {
				return "", fmt.Errorf("%s: %w", op, err)
			}
			a.log.Debug().
				Str("period", period).
				Str("number", candidate).
				Msg("Invoice number allocated")
			return candidate, nil
		}
		a.log.Debug().
			Str("candidate", candidate).
			Msg("Invoice number already recorded in sheet, skipping")
		seq++
	}
}

// seedSequence returns the first sequence value to try: last counter + 1,
// or a reseed from the directory's PDF filenames when no counter exists.
func (a *Allocator) seedSequence(dir string) (int, error) {
	data, err := os.ReadFile(filepath.Join(dir, counterFile))
	if err == nil {
		last, convErr := strconv.Atoi(strings.TrimSpace(string(data)))
		if convErr != nil {
			return 0, fmt.Errorf("corrupt counter file in %s: %w", dir, convErr)
		}
		return last + 1, nil
	}
	if !os.IsNotExist(err) {
		return 0, fmt.Errorf("failed to read counter file: %w", err)
	}

	seed, err := a.reseedFromFiles(dir)
	if err != nil {
		return 0, err
	}
	a.log.Info().
		Str("dir", dir).
		Int("seed", seed).
		Msg("No sequence counter found, reseeded from existing invoice files")
	return seed, nil
}

// reseedFromFiles recovers the sequence from exported invoice filenames:
// max trailing "-NNNN" of the *.pdf names, plus one. Non-PDF entries are
// ignored.
func (a *Allocator) reseedFromFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to scan period directory: %w", err)
	}

	max := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pdfSequencePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

func (a *Allocator) writeCounter(dir string, seq int) error {
	path := filepath.Join(dir, counterFile)
	if err := os.WriteFile(path, []byte(strconv.Itoa(seq)+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to persist counter: %w", err)
	}
	return nil
}
