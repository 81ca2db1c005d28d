package capture

import (
	"fmt"
	"github.com/slack-go/slack"
	"io"
	"strconv"
	"strings"
	"time"
)

// FileUploadCaptor captures file uploads recorded by
// invocations of UploadFile
type FileUploadCaptor struct {
	FileUploads []slack.FileUploadParameters
	// Contents holds the content read from each upload's Reader (or its Content when set)
	Contents  []string
	currentID int
}

// UploadFile tracks a file upload for post-execution validation
func (f *FileUploadCaptor) UploadFile(params slack.FileUploadParameters) (file *slack.File, err error) {
	content := params.Content
	if params.Reader != nil {
		b, err := io.ReadAll(params.Reader)
		if err != nil {
			return nil, err
		}
		content = string(b)
		params.Reader = nil
	}

	f.FileUploads = append(f.FileUploads, params)
	f.Contents = append(f.Contents, content)

	file = new(slack.File)
	file.ID = strconv.Itoa(f.currentID)
	file.Name = params.Filename
	file.Filetype = params.Filetype
	file.Title = params.Title
	file.Created = currentJSONTime()

	// Increment id for the next upload
	f.currentID = f.currentID + 1

	return file, nil
}

// NewFileUploader returns a new FileUploadCaptor with an initialized array of FileUploads
func NewFileUploader() (fileUploadCaptor *FileUploadCaptor) {
	fileUploadCaptor = new(FileUploadCaptor)
	fileUploadCaptor.FileUploads = make([]slack.FileUploadParameters, 0)
	fileUploadCaptor.Contents = make([]string, 0)

	return fileUploadCaptor
}

// FileStub serves shared files from memory. It implements both tkscot.FileDownloader
// and tkscot.SlackFileGetter
type FileStub struct {
	Files     map[string]string
	Downloads []string
}

// NewFileStub returns a FileStub serving the given file contents keyed by file id
func NewFileStub(files map[string]string) (fs *FileStub) {
	fs = new(FileStub)
	fs.Files = files
	fs.Downloads = make([]string, 0)

	return fs
}

// DownloadFile writes the content of fileID to w
func (fs *FileStub) DownloadFile(fileID string, w io.Writer) (file *slack.File, err error) {
	content, ok := fs.Files[fileID]
	if !ok {
		return nil, fmt.Errorf("file_not_found: %s", fileID)
	}

	fs.Downloads = append(fs.Downloads, fileID)
	if _, err = io.Copy(w, strings.NewReader(content)); err != nil {
		return nil, err
	}

	return &slack.File{ID: fileID, Name: fileID + ".json", Size: len(content)}, nil
}

// GetFileInfo returns the metadata of fileID with a private download url of the form stub://<fileID>
func (fs *FileStub) GetFileInfo(fileID string, count, page int) (file *slack.File, comments []slack.Comment, paging *slack.Paging, err error) {
	content, ok := fs.Files[fileID]
	if !ok {
		return nil, nil, nil, fmt.Errorf("file_not_found: %s", fileID)
	}

	return &slack.File{ID: fileID, Size: len(content), URLPrivateDownload: "stub://" + fileID}, nil, nil, nil
}

// GetFile writes the content behind a stub:// download url to writer
func (fs *FileStub) GetFile(downloadURL string, writer io.Writer) (err error) {
	fileID := strings.TrimPrefix(downloadURL, "stub://")
	content, ok := fs.Files[fileID]
	if !ok {
		return fmt.Errorf("unknown url %s", downloadURL)
	}

	fs.Downloads = append(fs.Downloads, fileID)
	_, err = io.WriteString(writer, content)

	return err
}

// currentJSONTime creates a JSONTime value with the current time
func currentJSONTime() (now slack.JSONTime) {
	return slack.JSONTime(time.Now().Unix())
}
