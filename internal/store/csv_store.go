package store

import (
	"encoding/csv"
	"fmt"
	"net/netip"
	"os"

	"github.com/mozilla/classify-client/internal/models"
)

// csvEntry is one attribution range loaded from the file.
type csvEntry struct {
	prefix  netip.Prefix
	country models.Country
}

// CSVStore implements Store over a CSV file of network ranges. It exists for
// development and tests, where shipping a full binary database is overkill.
// All ranges are held in memory; lookup is a linear scan, first containing
// prefix wins.
//
// CSV format: cidr,country_code,country_name
// Example: 203.0.113.0/24,US,United States
type CSVStore struct {
	entries []csvEntry
}

// NewCSVStore reads and parses the file at path. Rows with a malformed CIDR
// are an error: a range silently dropped from attribution data is the kind
// of gap nobody notices until a report looks wrong.
func NewCSVStore(path string) (*CSVStore, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening attribution CSV: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading attribution CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("attribution CSV %s is empty", path)
	}

	store := &CSVStore{entries: make([]csvEntry, 0, len(records))}

	for i, record := range records {
		// Header row.
		if i == 0 && record[0] == "cidr" {
			continue
		}
		if len(record) != 3 {
			return nil, fmt.Errorf("attribution CSV row %d: expected 3 columns, got %d", i+1, len(record))
		}

		prefix, err := netip.ParsePrefix(record[0])
		if err != nil {
			return nil, fmt.Errorf("attribution CSV row %d: invalid CIDR %q: %w", i+1, record[0], err)
		}

		store.entries = append(store.entries, csvEntry{
			prefix:  prefix.Masked(),
			country: models.Country{Code: record[1], Name: record[2]},
		})
	}

	return store, nil
}

// FindCountry implements the Store interface.
func (s *CSVStore) FindCountry(addr netip.Addr) (*models.Country, error) {
	if !addr.IsValid() {
		return nil, ErrNotFound
	}

	addr = addr.Unmap()
	for _, entry := range s.entries {
		if entry.prefix.Contains(addr) {
			country := entry.country
			return &country, nil
		}
	}

	return nil, ErrNotFound
}

// Close implements the Store interface; the CSV store holds no resources.
func (s *CSVStore) Close() error {
	return nil
}
