package mocks

import (
	"context"
	"io"

	"printbot/internal/model"
	"printbot/internal/transport"

	"github.com/stretchr/testify/mock"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Events(ctx context.Context) (<-chan model.Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan model.Event), args.Error(1)
}

func (m *MockTransport) FileDescriptor(ctx context.Context, fileID string) (transport.FileDescriptor, error) {
	args := m.Called(ctx, fileID)
	return args.Get(0).(transport.FileDescriptor), args.Error(1)
}

// Download writes the configured payload (a []byte first return value) into w
// before returning the configured error.
func (m *MockTransport) Download(ctx context.Context, fd transport.FileDescriptor, w io.Writer) error {
	args := m.Called(ctx, fd, w)
	if payload, ok := args.Get(0).([]byte); ok {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	return args.Error(1)
}

func (m *MockTransport) Send(ctx context.Context, dest model.Destination, text string) error {
	args := m.Called(ctx, dest, text)
	return args.Error(0)
}
