package mock

import (
	"context"
	"errors"
	"strings"
)

// MockLabeler is a test double for ai.ClusterLabeler.
// It allows custom behavior injection via function fields.
type MockLabeler struct {
	// LabelClusterFunc is called by LabelCluster if set.
	// If nil, uses default deterministic behavior.
	LabelClusterFunc func(ctx context.Context, memberLabels []string) (string, error)

	callCount int
}

// NewMockLabeler creates a mock labeler with default deterministic behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockLabeler() *MockLabeler {
	return &MockLabeler{}
}

// LabelCluster returns a deterministic label derived from the member labels.
func (m *MockLabeler) LabelCluster(ctx context.Context, memberLabels []string) (string, error) {
	m.callCount++

	if m.LabelClusterFunc != nil {
		return m.LabelClusterFunc(ctx, memberLabels)
	}

	if len(memberLabels) == 0 {
		return "", errors.New("no member labels to summarize")
	}

	// Default: "Group: first-label" keeps test output readable
	return "Group: " + strings.TrimSpace(memberLabels[0]), nil
}

// CallCount returns the number of times LabelCluster was called.
func (m *MockLabeler) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockLabeler) Reset() {
	m.callCount = 0
	m.LabelClusterFunc = nil
}
