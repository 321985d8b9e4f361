package registry

import (
	"context"

	"github.com/ruteri/identity-gateway/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockUserRegistry mocks the UserRegistry interface
type MockUserRegistry struct {
	mock.Mock
}

// GetUser mocks the GetUser method
func (m *MockUserRegistry) GetUser(ctx context.Context, address string) (*interfaces.User, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.User), args.Error(1)
}

// RegisterUser mocks the RegisterUser method
func (m *MockUserRegistry) RegisterUser(ctx context.Context, address, bucketAddress string) (*interfaces.User, error) {
	args := m.Called(ctx, address, bucketAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.User), args.Error(1)
}

// UpdateUser mocks the UpdateUser method
func (m *MockUserRegistry) UpdateUser(ctx context.Context, user *interfaces.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// DeleteUser mocks the DeleteUser method
func (m *MockUserRegistry) DeleteUser(ctx context.Context, address string) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

// GetUserIndex mocks the GetUserIndex method
func (m *MockUserRegistry) GetUserIndex(ctx context.Context, user *interfaces.User) (interfaces.FileIndex, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(interfaces.FileIndex), args.Error(1)
}

// GetGlobalUserIndex mocks the GetGlobalUserIndex method
func (m *MockUserRegistry) GetGlobalUserIndex(ctx context.Context, user *interfaces.User) (interfaces.FileIndex, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(interfaces.FileIndex), args.Error(1)
}
