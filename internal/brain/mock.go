package brain

import (
	"context"
	"strings"
	"sync"
)

// MockGenerator is a scriptable generator for tests and keyless local runs.
type MockGenerator struct {
	mu sync.Mutex

	// Reply is returned on success; a default phrase is used when empty.
	Reply string
	// Err, when set, makes every call fail.
	Err error

	systemCalls []string
	userCalls   []string
}

func NewMockGenerator() *MockGenerator { return &MockGenerator{} }

func (m *MockGenerator) Generate(_ context.Context, systemInstruction, userPayload string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.systemCalls = append(m.systemCalls, systemInstruction)
	m.userCalls = append(m.userCalls, userPayload)
	if m.Err != nil {
		return "", m.Err
	}
	if strings.TrimSpace(m.Reply) == "" {
		return "Estoy aquí contigo. Cuéntame un poco más.", nil
	}
	return m.Reply, nil
}

func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.userCalls)
}

func (m *MockGenerator) LastUserPayload() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.userCalls) == 0 {
		return ""
	}
	return m.userCalls[len(m.userCalls)-1]
}

func (m *MockGenerator) LastSystemInstruction() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.systemCalls) == 0 {
		return ""
	}
	return m.systemCalls[len(m.systemCalls)-1]
}
