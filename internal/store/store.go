// Package store provides the geolocation lookup backends.
package store

import (
	"errors"
	"net/netip"

	"github.com/mozilla/classify-client/internal/models"
)

// ErrNotFound is returned when a store has no attribution for an address.
// Reserved and private ranges simply do not appear in the data sets, so this
// is a normal per-request outcome, not a failure.
var ErrNotFound = errors.New("no country attribution for address")

// Store looks up the country attribution for a network address.
//
// Implementations are read-only after construction and safe for concurrent
// use by all in-flight requests. Lookups must not mutate shared state.
type Store interface {
	// FindCountry returns the attribution for addr, or ErrNotFound when the
	// address is absent from the data set.
	FindCountry(addr netip.Addr) (*models.Country, error)

	// Close releases backend resources (file handles, connections).
	Close() error
}
