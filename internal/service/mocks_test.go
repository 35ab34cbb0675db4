package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/phrazzld/taskoverflow-api/internal/domain"
)

// MockJobQueue mocks the JobQueue interface
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) Enqueue(ctx context.Context, taskType string, payload []byte) (string, error) {
	args := m.Called(ctx, taskType, payload)
	return args.String(0), args.Error(1)
}

func (m *MockJobQueue) Status(ctx context.Context, id string) (*domain.JobInfo, error) {
	args := m.Called(ctx, id)
	info, _ := args.Get(0).(*domain.JobInfo)
	return info, args.Error(1)
}

func (m *MockJobQueue) Result(ctx context.Context, id string) (string, bool, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Bool(1), args.Error(2)
}
