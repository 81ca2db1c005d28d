package capture

import (
	"bytes"
	"context"
	"github.com/pkg/errors"
	"github.com/teamkill/tkscot/atomicfile"
	"github.com/teamkill/tkscot/remote"
	"os"
	"sync"
)

// BlobCaptor is an in-memory remote.BlobClient. It records every push and serves pulls
// from what was pushed (or seeded with SetBlob)
type BlobCaptor struct {
	sync.Mutex
	Blobs   map[string][]byte
	Pushes  []string
	Pulls   []string
	PushErr error
	PullErr error
}

// NewBlobClient returns a new initialized BlobCaptor
func NewBlobClient() (bc *BlobCaptor) {
	return &BlobCaptor{Blobs: make(map[string][]byte)}
}

// SetBlob seeds the content of a remote blob
func (bc *BlobCaptor) SetBlob(remoteID string, content string) {
	bc.Lock()
	defer bc.Unlock()

	bc.Blobs[remoteID] = []byte(content)
}

// Blob returns the current content of a remote blob and whether it exists
func (bc *BlobCaptor) Blob(remoteID string) (content string, ok bool) {
	bc.Lock()
	defer bc.Unlock()

	b, ok := bc.Blobs[remoteID]
	return string(b), ok
}

// PushCount returns the number of push attempts for a remote blob
func (bc *BlobCaptor) PushCount(remoteID string) (count int) {
	bc.Lock()
	defer bc.Unlock()

	for _, id := range bc.Pushes {
		if id == remoteID {
			count++
		}
	}

	return count
}

// Push captures the content of localPath as the blob remoteID unless PushErr is set
func (bc *BlobCaptor) Push(ctx context.Context, localPath string, remoteID string) (err error) {
	bc.Lock()
	defer bc.Unlock()

	bc.Pushes = append(bc.Pushes, remoteID)
	if bc.PushErr != nil {
		return bc.PushErr
	}

	content, err := os.ReadFile(localPath)
	if err != nil {
		return errors.Wrapf(err, "failed to read [%s] for upload", localPath)
	}

	bc.Blobs[remoteID] = content
	return nil
}

// Pull writes the captured blob remoteID to localPath unless PullErr is set
func (bc *BlobCaptor) Pull(ctx context.Context, remoteID string, localPath string) (err error) {
	bc.Lock()
	defer bc.Unlock()

	bc.Pulls = append(bc.Pulls, remoteID)
	if bc.PullErr != nil {
		return bc.PullErr
	}

	content, ok := bc.Blobs[remoteID]
	if !ok {
		return errors.Wrapf(remote.ErrNotFound, "blob [%s]", remoteID)
	}

	return atomicfile.WriteFrom(localPath, bytes.NewReader(content))
}
