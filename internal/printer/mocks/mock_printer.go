package mocks

import (
	"context"

	"printbot/internal/printer"

	"github.com/stretchr/testify/mock"
)

type MockPageCounter struct {
	mock.Mock
}

func (m *MockPageCounter) CountPages(ctx context.Context, path string) (uint, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(uint), args.Error(1)
}

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, path string) (printer.Submission, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(printer.Submission), args.Error(1)
}
