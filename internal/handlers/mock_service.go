package handlers

import (
	"context"
	"sync"

	"weather_balance/internal/models"
	"weather_balance/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockUsers struct {
	users      []models.User
	listErr    error
	addID      int64
	addErr     error
	balance    int64
	balanceErr error
	pingErr    error

	lastAddUsername string
	lastAddBalance  int64
	lastBalanceID   int64
}

func (m *mockUsers) AddUser(ctx context.Context, username string, balance int64) (int64, error) {
	m.lastAddUsername = username
	m.lastAddBalance = balance
	return m.addID, m.addErr
}
func (m *mockUsers) GetBalance(ctx context.Context, userID int64) (int64, error) {
	m.lastBalanceID = userID
	return m.balance, m.balanceErr
}
func (m *mockUsers) ListUsers(ctx context.Context) ([]models.User, error) {
	return m.users, m.listErr
}
func (m *mockUsers) Ping(ctx context.Context) error {
	return m.pingErr
}

type mockUpdates struct {
	taskID string
	err    error
	calls  []models.UpdateRequest
}

func (m *mockUpdates) Enqueue(req models.UpdateRequest) (string, error) {
	m.calls = append(m.calls, req)
	if m.err != nil {
		return "", m.err
	}
	return m.taskID, nil
}

type mockResults struct {
	mu      sync.Mutex
	byID    map[string]models.UpdateResult
	recent  []models.UpdateResult
	ch      chan models.UpdateResult
	limit   int
	unsubed bool
}

func newMockResults() *mockResults {
	return &mockResults{
		byID: map[string]models.UpdateResult{},
		ch:   make(chan models.UpdateResult, 8),
	}
}

func (m *mockResults) Status(taskID string) (models.UpdateResult, bool) {
	res, ok := m.byID[taskID]
	return res, ok
}
func (m *mockResults) Recent(limit int) []models.UpdateResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limit = limit
	if limit < len(m.recent) {
		return m.recent[:limit]
	}
	return m.recent
}
func (m *mockResults) Subscribe() (<-chan models.UpdateResult, func()) {
	return m.ch, func() {
		m.mu.Lock()
		m.unsubed = true
		m.mu.Unlock()
	}
}

func (m *mockResults) unsubscribed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unsubed
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}
