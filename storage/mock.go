package storage

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/ruteri/identity-gateway/interfaces"
)

// MockDriver is a testify mock implementing interfaces.Driver and
// interfaces.PostRegisterChecker.
type MockDriver struct {
	mock.Mock
}

func (m *MockDriver) Register(ctx context.Context, user interfaces.DriverUserView) (*interfaces.RegisterResult, error) {
	args := m.Called(ctx, user)
	res, _ := args.Get(0).(*interfaces.RegisterResult)
	return res, args.Error(1)
}

func (m *MockDriver) Unregister(ctx context.Context, conn interfaces.ConnectionView) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func (m *MockDriver) PostRegisterCheck(ctx context.Context, user interfaces.DriverUserView, userdata json.RawMessage) error {
	args := m.Called(ctx, user, userdata)
	return args.Error(0)
}

// MockBasicDriver implements only interfaces.Driver.
type MockBasicDriver struct {
	mock.Mock
}

func (m *MockBasicDriver) Register(ctx context.Context, user interfaces.DriverUserView) (*interfaces.RegisterResult, error) {
	args := m.Called(ctx, user)
	res, _ := args.Get(0).(*interfaces.RegisterResult)
	return res, args.Error(1)
}

func (m *MockBasicDriver) Unregister(ctx context.Context, conn interfaces.ConnectionView) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}
