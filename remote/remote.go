// Package remote defines the blob client used to mirror local files to a remote
// store. A blob is a single named object overwritten wholesale on every push; there
// is no partial or ranged access.
package remote

import (
	"context"
	"github.com/pkg/errors"
)

// ErrNotFound is returned by Pull when the remote blob doesn't exist
var ErrNotFound = errors.New("remote blob not found")

// BlobClient is implemented by any value that can upload a local file as a remote blob
// and download a remote blob into a local file.
//
// Push overwrites the blob at remoteID with the full content of localPath. It either fully
// succeeds or returns an error: a partial upload is never reported as a success.
//
// Pull overwrites localPath with the full content of the blob at remoteID. On any failure,
// the previous content of localPath must remain intact.
type BlobClient interface {
	Push(ctx context.Context, localPath string, remoteID string) (err error)
	Pull(ctx context.Context, remoteID string, localPath string) (err error)
}

// Enabled returns true if the client is usable for the given remote identifier. A nil
// client or an empty identifier means mirroring is disabled and the caller should persist
// locally only
func Enabled(c BlobClient, remoteID string) bool {
	return c != nil && remoteID != ""
}
