package tables

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/ruteri/identity-gateway/interfaces"
)

// MockTableStore mocks the TableStore interface
type MockTableStore struct {
	mock.Mock
}

func (m *MockTableStore) ListTables(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func (m *MockTableStore) CreateTable(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockTableStore) DropTable(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockTableStore) ListRows(ctx context.Context, table string) ([]interfaces.Row, error) {
	args := m.Called(ctx, table)
	rows, _ := args.Get(0).([]interfaces.Row)
	return rows, args.Error(1)
}

func (m *MockTableStore) GetRow(ctx context.Context, table, key string) (json.RawMessage, error) {
	args := m.Called(ctx, table, key)
	value, _ := args.Get(0).(json.RawMessage)
	return value, args.Error(1)
}

func (m *MockTableStore) PutRow(ctx context.Context, table, key string, value json.RawMessage) error {
	return m.Called(ctx, table, key, value).Error(0)
}

func (m *MockTableStore) DeleteRow(ctx context.Context, table, key string) error {
	return m.Called(ctx, table, key).Error(0)
}
