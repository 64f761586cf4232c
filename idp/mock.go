package idp

import (
	"context"
	"sync"
)

// Mock logs in without a redirect and returns a fixed profile.
type Mock struct {
	Profile Profile

	mu       sync.Mutex
	loggedIn bool
}

func NewMock() *Mock {
	return &Mock{Profile: Profile{
		UserID:        "mock_user_123",
		DisplayName:   "張小華",
		StatusMessage: "模擬用戶狀態",
	}}
}

func (m *Mock) Initialize(context.Context) error { return nil }

func (m *Mock) Login(context.Context) (string, error) {
	m.mu.Lock()
	m.loggedIn = true
	m.mu.Unlock()
	return "", nil
}

func (m *Mock) Complete(context.Context, string, string) error {
	m.mu.Lock()
	m.loggedIn = true
	m.mu.Unlock()
	return nil
}

func (m *Mock) Logout(context.Context) error {
	m.mu.Lock()
	m.loggedIn = false
	m.mu.Unlock()
	return nil
}

func (m *Mock) LoggedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loggedIn
}

func (m *Mock) GetProfile(context.Context) (Profile, error) {
	if !m.LoggedIn() {
		return Profile{}, ErrNotLoggedIn
	}
	return m.Profile, nil
}
