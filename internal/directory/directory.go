// Package directory loads the static association directory: the official
// legal name, mailing address and treasurer contact of every association
// the club can invoice without manual handling.
package directory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrUnknownAssociation is returned by Lookup when the association has no
// directory entry.
var ErrUnknownAssociation = errors.New("association not found in directory")

// Entry describes one association. The JSON field names follow the
// historical directory file layout.
type Entry struct {
	OfficialName       string `json:"official name"`
	Address            string `json:"address"`
	TreasurerFirstName string `json:"tresurer first name"`
	TreasurerEmail     string `json:"tresurer mail"`
}

// Directory is an in-memory association directory keyed by lower-cased
// name. Loaded once per run, immutable afterwards.
type Directory struct {
	entries map[string]Entry
}

// Load reads the directory from a JSON file mapping lower-cased association
// names to entries.
func Load(path string) (*Directory, error) {
	const op = "directory.Load"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s: %w", op, path, err)
	}

	raw := make(map[string]Entry)
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: failed to parse %s: %w", op, path, err)
	}

	entries := make(map[string]Entry, len(raw))
	for name, entry := range raw {
		entries[strings.ToLower(name)] = entry
	}

	return &Directory{entries: entries}, nil
}

// Has reports whether the association is known, compared case-insensitively.
func (d *Directory) Has(name string) bool {
	_, ok := d.entries[strings.ToLower(name)]
	return ok
}

// Lookup returns the entry for an association. Unlike the filtering path,
// a miss here is an error: the caller asked for this association by name.
func (d *Directory) Lookup(name string) (Entry, error) {
	entry, ok := d.entries[strings.ToLower(name)]
	if !ok {
		return Entry{}, fmt.Errorf("%q: %w", name, ErrUnknownAssociation)
	}
	return entry, nil
}

// Len returns the number of known associations.
func (d *Directory) Len() int {
	return len(d.entries)
}
