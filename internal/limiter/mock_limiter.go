package limiter

// MockLimiter is a test double for the Limiter interface. It lets tests
// control allow/deny behavior and verify which clients were checked.
type MockLimiter struct {
	AllowResult bool

	// Recorded calls for verification in tests.
	AllowCalls  []string
	CloseCalled bool

	CloseError error
}

// NewMockLimiter creates a mock that allows or denies every request.
func NewMockLimiter(allowResult bool) *MockLimiter {
	return &MockLimiter{
		AllowResult: allowResult,
		AllowCalls:  []string{},
	}
}

// Allow implements the Limiter interface.
func (m *MockLimiter) Allow(client string) bool {
	m.AllowCalls = append(m.AllowCalls, client)
	return m.AllowResult
}

// Close implements the Limiter interface.
func (m *MockLimiter) Close() error {
	m.CloseCalled = true
	return m.CloseError
}
