// Package gdrive implements a remote.BlobClient backed by Google Drive files. A blob
// identifier is the Drive file ID of an existing file that the service account can write
// to. Every push replaces the file's content using a resumable, chunked media upload.
package gdrive

import (
	"context"
	"github.com/pkg/errors"
	"github.com/teamkill/tkscot/atomicfile"
	"github.com/teamkill/tkscot/remote"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// DefaultChunkSize is the size of each resumable upload chunk
const DefaultChunkSize = googleapi.DefaultUploadChunkSize

// Client implements remote.BlobClient on top of the Drive v3 files API
type Client struct {
	files filer
}

// Option defines an option for a Drive Client
type Option func(*driveFiles)

// OptionChunkSize sets the resumable upload chunk size
func OptionChunkSize(chunkSize int) Option {
	return func(d *driveFiles) {
		d.chunkSize = chunkSize
	}
}

// OptionClientOptions appends google api client options (i.e. option.WithEndpoint)
func OptionClientOptions(opts ...option.ClientOption) Option {
	return func(d *driveFiles) {
		d.clientOpts = append(d.clientOpts, opts...)
	}
}

// New returns a new Drive blob Client authenticated with the service account credentials
// in credentialsJSON
func New(ctx context.Context, credentialsJSON []byte, opts ...Option) (c *Client, err error) {
	df := &driveFiles{chunkSize: DefaultChunkSize, clientOpts: []option.ClientOption{option.WithCredentialsJSON(credentialsJSON), option.WithScopes(drive.DriveScope)}}
	for _, opt := range opts {
		opt(df)
	}

	return newWithFiler(ctx, df)
}

// newWithFiler returns a Client using the given filer after connecting it
func newWithFiler(ctx context.Context, f filer) (c *Client, err error) {
	if err = f.connect(ctx); err != nil {
		return nil, err
	}

	return &Client{files: f}, nil
}

// Push uploads the content of localPath to the Drive file remoteID. On failure, the
// client reconnects once and retries the whole upload from the start of the file
func (c *Client) Push(ctx context.Context, localPath string, remoteID string) (err error) {
	err = c.push(ctx, localPath, remoteID)
	if err == nil || errors.Is(err, remote.ErrNotFound) || ctx.Err() != nil {
		return err
	}

	if cerr := c.files.connect(ctx); cerr != nil {
		return err
	}

	return c.push(ctx, localPath, remoteID)
}

func (c *Client) push(ctx context.Context, localPath string, remoteID string) (err error) {
	f, err := os.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, "failed to open [%s] for upload", localPath)
	}
	defer f.Close()

	return c.files.update(ctx, remoteID, f, contentType(localPath))
}

// Pull downloads the Drive file remoteID into localPath. The local file is only replaced
// once the download completed
func (c *Client) Pull(ctx context.Context, remoteID string, localPath string) (err error) {
	err = c.pull(ctx, remoteID, localPath)
	if err == nil || errors.Is(err, remote.ErrNotFound) || ctx.Err() != nil {
		return err
	}

	if cerr := c.files.connect(ctx); cerr != nil {
		return err
	}

	return c.pull(ctx, remoteID, localPath)
}

func (c *Client) pull(ctx context.Context, remoteID string, localPath string) (err error) {
	body, err := c.files.download(ctx, remoteID)
	if err != nil {
		return err
	}
	defer body.Close()

	return atomicfile.WriteFrom(localPath, body)
}

// contentType returns the upload content type for a local file name
func contentType(localPath string) string {
	switch filepath.Ext(localPath) {
	case ".json":
		return "application/json"
	default:
		return "text/plain"
	}
}

// connecter is implemented by any value that has a connect method
type connecter interface {
	connect(ctx context.Context) (err error)
}

// filer is the subset of Drive file operations used by the Client. It allows testing
// decoupled from the actual Drive API
type filer interface {
	connecter
	update(ctx context.Context, fileID string, content io.Reader, contentType string) (err error)
	download(ctx context.Context, fileID string) (body io.ReadCloser, err error)
}

// driveFiles wraps an actual drive.Service for real/production interaction
type driveFiles struct {
	*drive.Service
	chunkSize  int
	clientOpts []option.ClientOption
}

// connect creates a new service from the initial client options. It's called again on
// errors to recover from expired or broken connections
func (d *driveFiles) connect(ctx context.Context) (err error) {
	d.Service, err = drive.NewService(ctx, d.clientOpts...)
	return err
}

// update replaces the file content with a resumable upload. Do only returns without error
// once every chunk has been accepted
func (d *driveFiles) update(ctx context.Context, fileID string, content io.Reader, contentType string) (err error) {
	_, err = d.Files.Update(fileID, &drive.File{}).
		Media(content, googleapi.ContentType(contentType), googleapi.ChunkSize(d.chunkSize)).
		Context(ctx).
		Do()

	return translateErr(err)
}

// download returns the media content of the file
func (d *driveFiles) download(ctx context.Context, fileID string) (body io.ReadCloser, err error) {
	resp, err := d.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, translateErr(err)
	}

	return resp.Body, nil
}

// translateErr maps a Drive 404 to remote.ErrNotFound
func translateErr(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return errors.Wrap(remote.ErrNotFound, gerr.Message)
	}

	return err
}
