package store

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/oschwald/geoip2-golang"

	"github.com/mozilla/classify-client/internal/models"
)

// MMDBStore implements Store over a MaxMind Country database. This is the
// production backend: the reader memory-maps the file and supports
// concurrent lookups without locking.
type MMDBStore struct {
	reader *geoip2.Reader
}

// NewMMDBStore opens the database at path. A missing or corrupt file is an
// error here, once, at startup; it must never surface per request.
func NewMMDBStore(path string) (*MMDBStore, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening geoip database at %s: %w", path, err)
	}
	return &MMDBStore{reader: reader}, nil
}

// FindCountry implements the Store interface. Addresses the database does
// not cover come back as an empty record, which maps to ErrNotFound.
func (s *MMDBStore) FindCountry(addr netip.Addr) (*models.Country, error) {
	if !addr.IsValid() {
		return nil, ErrNotFound
	}

	record, err := s.reader.Country(net.IP(addr.Unmap().AsSlice()))
	if err != nil {
		return nil, fmt.Errorf("geoip lookup failed: %w", err)
	}

	if record.Country.IsoCode == "" {
		return nil, ErrNotFound
	}

	return &models.Country{
		Code: record.Country.IsoCode,
		Name: record.Country.Names["en"],
	}, nil
}

// Close closes the underlying database reader.
func (s *MMDBStore) Close() error {
	return s.reader.Close()
}
