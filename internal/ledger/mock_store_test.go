package ledger_test

import (
	"github.com/stretchr/testify/mock"

	"hostelwatch/backend/internal/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateComplaintTx(c *models.Complaint, parties []models.ComplaintParty, first *models.LogRecord) error {
	args := m.Called(c, parties, first)
	return args.Error(0)
}

func (m *MockStore) Complaint(id string) (*models.Complaint, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Complaint), args.Error(1)
}

func (m *MockStore) Parties(id string) ([]models.ComplaintParty, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ComplaintParty), args.Error(1)
}

func (m *MockStore) Logs(id string) ([]models.LogRecord, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LogRecord), args.Error(1)
}

func (m *MockStore) TipHash(id string) (string, error) {
	args := m.Called(id)
	return args.String(0), args.Error(1)
}

func (m *MockStore) AppendLog(rec *models.LogRecord, expectedTip string, updates map[string]any) error {
	args := m.Called(rec, expectedTip, updates)
	return args.Error(0)
}

func (m *MockStore) FindStaff(vitID, role string) (*models.User, error) {
	args := m.Called(vitID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) RolesFor(vitID string) ([]string, error) {
	args := m.Called(vitID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
