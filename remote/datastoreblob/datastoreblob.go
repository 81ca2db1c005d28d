// Package datastoreblob implements a remote.BlobClient backed by Google Cloud Datastore.
// Each blob is stored as a single entity, keyed by the blob identifier, holding the raw
// file content. Datastore entities are limited to 1MiB which is plenty for a counter store
// or a few thousand log lines.
package datastoreblob

import (
	"bytes"
	"cloud.google.com/go/datastore"
	"context"
	"github.com/pkg/errors"
	"github.com/teamkill/tkscot/atomicfile"
	"github.com/teamkill/tkscot/remote"
	"google.golang.org/api/option"
	"os"
	"time"
)

// DefaultKind is the datastore entity kind used when none is given
const DefaultKind = "tkscotBlob"

// Blob represents the entity holding a mirrored file
type Blob struct {
	Content   []byte `datastore:",noindex"`
	Size      int64
	UpdatedAt time.Time
}

// Client implements remote.BlobClient on datastore
type Client struct {
	datastorer
	kind string
	now  func() time.Time
}

// New returns a new datastore blob Client storing entities of the given kind. This function
// also requires a gcloudProjectID as well as at least one option to provide gcloud client credentials
func New(ctx context.Context, kind string, gcloudProjectID string, gcloudClientOpts ...option.ClientOption) (c *Client, err error) {
	gc := gcdatastore{gcloudProjectID: gcloudProjectID, gcloudClientOpts: gcloudClientOpts}

	return newWithDatastorer(ctx, kind, &gc)
}

func newWithDatastorer(ctx context.Context, kind string, ds datastorer) (c *Client, err error) {
	if kind == "" {
		kind = DefaultKind
	}

	c = &Client{datastorer: ds, kind: kind, now: time.Now}

	if err = c.connect(ctx); err != nil {
		return nil, err
	}

	if err = c.testDB(ctx); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

// testDB makes a lightweight call to the datastore to validate connectivity and credentials
func (c *Client) testDB(ctx context.Context) (err error) {
	var b Blob
	err = c.Get(ctx, datastore.NameKey(c.kind, "testConnectivity", nil), &b)
	if err != nil && err != datastore.ErrNoSuchEntity {
		return err
	}

	return nil
}

// Push stores the content of localPath as the blob remoteID, replacing any previous content
func (c *Client) Push(ctx context.Context, localPath string, remoteID string) (err error) {
	content, err := os.ReadFile(localPath)
	if err != nil {
		return errors.Wrapf(err, "failed to read [%s] for upload", localPath)
	}

	k := datastore.NameKey(c.kind, remoteID, nil)
	b := &Blob{Content: content, Size: int64(len(content)), UpdatedAt: c.now().UTC()}

	if _, err = c.Put(ctx, k, b); err != nil {
		if cerr := c.connect(ctx); cerr != nil {
			return err
		}

		_, err = c.Put(ctx, k, b)
	}

	return err
}

// Pull writes the content of the blob remoteID to localPath. remote.ErrNotFound is returned
// if the blob was never pushed
func (c *Client) Pull(ctx context.Context, remoteID string, localPath string) (err error) {
	k := datastore.NameKey(c.kind, remoteID, nil)

	var b Blob
	if err = c.Get(ctx, k, &b); err != nil && err != datastore.ErrNoSuchEntity {
		if cerr := c.connect(ctx); cerr != nil {
			return err
		}

		err = c.Get(ctx, k, &b)
	}

	if err == datastore.ErrNoSuchEntity {
		return errors.Wrapf(remote.ErrNotFound, "blob [%s]", remoteID)
	}

	if err != nil {
		return err
	}

	return atomicfile.WriteFrom(localPath, bytes.NewReader(b.Content))
}
