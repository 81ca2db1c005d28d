package tkscot

import (
	"github.com/pkg/errors"
	"github.com/slack-go/slack"
	"io"
)

// SlackFileUploader is implemented by any value that has the UploadFile method. slack.Client
// implements it. The main purpose remains is a slight decoupling of the slack.Client in order
// for plugins to be able to write cleaner tests more easily.
type SlackFileUploader interface {
	// UploadFile uploads a file to slack. For more info in this API, check
	// https://pkg.go.dev/github.com/slack-go/slack#Client.UploadFile
	UploadFile(params slack.FileUploadParameters) (file *slack.File, err error)
}

// FileUploader is implemented by any value that has the UploadFile method. slack.Client *almost*
// implements it but requires a thin wrapping to do so to handle UploadOption there for
// added extensibility.
// The main purpose remains is a slight decoupling of the slack.Client in order for plugins to
// be able to write cleaner tests more easily.
type FileUploader interface {
	// UploadFile uploads a file to slack. For more info in this API, check
	// https://pkg.go.dev/github.com/slack-go/slack#Client.UploadFile
	UploadFile(params slack.FileUploadParameters, options ...UploadOption) (file *slack.File, err error)
}

// UploadOption defines an option on a FileUploadParameters (i.e. upload on thread)
type UploadOption func(params *slack.FileUploadParameters)

// UploadInThreadOption sets the file upload thread timestamp to an existing thread timestamp if
// the incoming message triggering this is on an existing thread
func UploadInThreadOption(m *IncomingMessage) func(params *slack.FileUploadParameters) {
	return func(p *slack.FileUploadParameters) {
		if ts, inThread := threadTimestamp(&m.Msg); inThread {
			p.ThreadTimestamp = ts
		}
	}
}

// DefaultFileUploader holds a bare-bone SlackFileUploader
type DefaultFileUploader struct {
	slackFileUploader SlackFileUploader
}

// NewFileUploader returns a new DefaultFileUploader wrapping a FileUploader
func NewFileUploader(slackFileUploader SlackFileUploader) (fileUploader *DefaultFileUploader) {
	fileUploader = new(DefaultFileUploader)
	fileUploader.slackFileUploader = slackFileUploader

	return fileUploader
}

// UploadFile uploads a file given the slack.FileUploadParameters with the UploadOptions applied to it
func (fileUploader *DefaultFileUploader) UploadFile(params slack.FileUploadParameters, options ...UploadOption) (file *slack.File, err error) {
	for _, opt := range options {
		opt(&params)
	}

	return fileUploader.slackFileUploader.UploadFile(params)
}

// SlackFileGetter is implemented by any value that has the GetFileInfo and GetFile methods.
// slack.Client implements it
type SlackFileGetter interface {
	GetFileInfo(fileID string, count, page int) (file *slack.File, comments []slack.Comment, paging *slack.Paging, err error)
	GetFile(downloadURL string, writer io.Writer) (err error)
}

// FileDownloader downloads the content of a file shared on slack given its identifier
type FileDownloader interface {
	DownloadFile(fileID string, w io.Writer) (file *slack.File, err error)
}

// DefaultFileDownloader resolves a file's private download url and fetches its content
type DefaultFileDownloader struct {
	getter SlackFileGetter
}

// NewFileDownloader returns a new DefaultFileDownloader wrapping a SlackFileGetter
func NewFileDownloader(getter SlackFileGetter) (fileDownloader *DefaultFileDownloader) {
	fileDownloader = new(DefaultFileDownloader)
	fileDownloader.getter = getter

	return fileDownloader
}

// DownloadFile writes the content of the file with identifier fileID to w and returns the file metadata
func (fd *DefaultFileDownloader) DownloadFile(fileID string, w io.Writer) (file *slack.File, err error) {
	file, _, _, err = fd.getter.GetFileInfo(fileID, 0, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get info of file [%s]", fileID)
	}

	downloadURL := file.URLPrivateDownload
	if downloadURL == "" {
		downloadURL = file.URLPrivate
	}

	if downloadURL == "" {
		return nil, errors.Errorf("file [%s] has no download url", fileID)
	}

	if err = fd.getter.GetFile(downloadURL, w); err != nil {
		return nil, errors.Wrapf(err, "failed to download file [%s]", fileID)
	}

	return file, nil
}
