package store

import (
	"net/netip"

	"github.com/mozilla/classify-client/internal/models"
)

// MockStore is a test double for the Store interface. It lets tests control
// lookup results and verify which addresses were queried.
type MockStore struct {
	// Data maps canonical address strings to attributions.
	Data map[string]models.Country

	// Recorded calls for verification in tests.
	FindCountryCalls []netip.Addr
	CloseCalled      bool

	// Error overrides.
	FindCountryError error
	CloseError       error
}

// NewMockStore creates a mock pre-populated with a few well-known test
// attributions.
func NewMockStore() *MockStore {
	return &MockStore{
		Data: map[string]models.Country{
			"1.2.3.4":     {Code: "US", Name: "United States"},
			"7.7.7.7":     {Code: "US", Name: "United States"},
			"89.160.20.1": {Code: "SE", Name: "Sweden"},
		},
	}
}

// NewEmptyMockStore creates a mock with no data, for not-found scenarios.
func NewEmptyMockStore() *MockStore {
	return &MockStore{Data: map[string]models.Country{}}
}

// FindCountry implements the Store interface.
func (m *MockStore) FindCountry(addr netip.Addr) (*models.Country, error) {
	m.FindCountryCalls = append(m.FindCountryCalls, addr)

	if m.FindCountryError != nil {
		return nil, m.FindCountryError
	}

	country, ok := m.Data[addr.Unmap().String()]
	if !ok {
		return nil, ErrNotFound
	}

	return &country, nil
}

// Close implements the Store interface.
func (m *MockStore) Close() error {
	m.CloseCalled = true
	return m.CloseError
}
