package tkscot_test

import (
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamkill/tkscot"
	"github.com/teamkill/tkscot/test/capture"
	"strings"
	"testing"
)

func TestDefaultUpload(t *testing.T) {
	fileUploadCaptor := capture.NewFileUploader()
	uploader := tkscot.NewFileUploader(fileUploadCaptor)

	uploader.UploadFile(slack.FileUploadParameters{Filename: "imageOfABirdInATree.png", Filetype: "image/png", Title: "Look"})

	assert.Len(t, fileUploadCaptor.FileUploads, 1)
	assert.Equal(t, slack.FileUploadParameters{Filename: "imageOfABirdInATree.png", Filetype: "image/png", Title: "Look"}, fileUploadCaptor.FileUploads[0])
}

func TestUploadWithExistingTheadOption(t *testing.T) {
	fileUploadCaptor := capture.NewFileUploader()
	uploader := tkscot.NewFileUploader(fileUploadCaptor)

	uploader.UploadFile(slack.FileUploadParameters{Filename: "imageOfABirdInATree.png", Filetype: "image/png", Title: "Look"}, tkscot.UploadInThreadOption(&tkscot.IncomingMessage{Msg: slack.Msg{ThreadTimestamp: "100000"}}))

	assert.Len(t, fileUploadCaptor.FileUploads, 1)
	assert.Equal(t, slack.FileUploadParameters{Filename: "imageOfABirdInATree.png", Filetype: "image/png", Title: "Look", ThreadTimestamp: "100000"}, fileUploadCaptor.FileUploads[0])
}

func TestUploadWithExistingTheadOptionButNoThreadInMsg(t *testing.T) {
	fileUploadCaptor := capture.NewFileUploader()
	uploader := tkscot.NewFileUploader(fileUploadCaptor)

	uploader.UploadFile(slack.FileUploadParameters{Filename: "imageOfABirdInATree.png", Filetype: "image/png", Title: "Look"}, tkscot.UploadInThreadOption(&tkscot.IncomingMessage{Msg: slack.Msg{}}))

	assert.Len(t, fileUploadCaptor.FileUploads, 1)
	assert.Equal(t, slack.FileUploadParameters{Filename: "imageOfABirdInATree.png", Filetype: "image/png", Title: "Look"}, fileUploadCaptor.FileUploads[0])
}

func TestUploadWithReaderCapturesContent(t *testing.T) {
	fileUploadCaptor := capture.NewFileUploader()
	uploader := tkscot.NewFileUploader(fileUploadCaptor)

	_, err := uploader.UploadFile(slack.FileUploadParameters{Filename: "data.json", Filetype: "json", Reader: strings.NewReader(`{"U1":3}`)})
	require.NoError(t, err)

	assert.Equal(t, []string{`{"U1":3}`}, fileUploadCaptor.Contents)
}

func TestDownloadFile(t *testing.T) {
	stub := capture.NewFileStub(map[string]string{"F1": `{"U1":3}`})
	downloader := tkscot.NewFileDownloader(stub)

	var b strings.Builder
	f, err := downloader.DownloadFile("F1", &b)
	require.NoError(t, err)

	assert.Equal(t, "F1", f.ID)
	assert.Equal(t, `{"U1":3}`, b.String())
	assert.Equal(t, []string{"F1"}, stub.Downloads)
}

func TestDownloadMissingFile(t *testing.T) {
	stub := capture.NewFileStub(map[string]string{})
	downloader := tkscot.NewFileDownloader(stub)

	var b strings.Builder
	_, err := downloader.DownloadFile("F404", &b)

	assert.EqualError(t, err, "failed to get info of file [F404]: file_not_found: F404")
}

type noURLGetter struct {
	capture.FileStub
}

func (g *noURLGetter) GetFileInfo(fileID string, count, page int) (file *slack.File, comments []slack.Comment, paging *slack.Paging, err error) {
	return &slack.File{ID: fileID}, nil, nil, nil
}

func TestDownloadFileWithoutURL(t *testing.T) {
	downloader := tkscot.NewFileDownloader(&noURLGetter{})

	var b strings.Builder
	_, err := downloader.DownloadFile("F1", &b)

	assert.EqualError(t, err, "file [F1] has no download url")
}
