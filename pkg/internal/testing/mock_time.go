package testing

import (
	"sync"
	"time"
)

// MockNowService is a settable clock. Safe to use from concurrent units
type MockNowService struct {
	mu  sync.Mutex
	now time.Time
}

// Now returns the current mock time
func (svc *MockNowService) Now() time.Time {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.now
}

// SetNow moves the clock to a given time
func (svc *MockNowService) SetNow(val time.Time) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.now = val
}

// NewMockNowService returns a clock stopped at now
func NewMockNowService(now time.Time) *MockNowService {
	return &MockNowService{now: now}
}
