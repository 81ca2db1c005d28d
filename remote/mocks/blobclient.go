// Package mocks contains a mock of the remote package interfaces
package mocks

import (
	"context"
	"github.com/stretchr/testify/mock"
)

// BlobClient holds a mock implementation of remote.BlobClient
type BlobClient struct {
	mock.Mock
}

// Push mocks an implementation of Push
func (m *BlobClient) Push(ctx context.Context, localPath string, remoteID string) (err error) {
	args := m.Called(ctx, localPath, remoteID)

	return args.Error(0)
}

// Pull mocks an implementation of Pull
func (m *BlobClient) Pull(ctx context.Context, remoteID string, localPath string) (err error) {
	args := m.Called(ctx, remoteID, localPath)

	return args.Error(0)
}
