package tkscot

import (
	"io"
	"time"

	"github.com/slack-go/slack"
	"go.opentelemetry.io/otel/metric"
)

// FileUploaderWithTelemetry implements FileUploader interface with all methods wrapped
// with open telemetry metrics
type FileUploaderWithTelemetry struct {
	base FileUploader
	methodInstruments
}

// NewFileUploaderWithTelemetry returns an instance of the FileUploader decorated with open telemetry timing and count metrics
func NewFileUploaderWithTelemetry(base FileUploader, name string, meter metric.Meter) (fu FileUploaderWithTelemetry, err error) {
	fu = FileUploaderWithTelemetry{base: base}
	fu.methodInstruments, err = newMethodInstruments("FileUploader", []string{"UploadFile"}, name, meter)

	return fu, err
}

// UploadFile implements FileUploader
func (_d FileUploaderWithTelemetry) UploadFile(params slack.FileUploadParameters, options ...UploadOption) (file *slack.File, err error) {
	_since := time.Now()
	defer func() {
		_d.record("UploadFile", _since, err)
	}()
	return _d.base.UploadFile(params, options...)
}

// FileDownloaderWithTelemetry implements FileDownloader interface with all methods wrapped
// with open telemetry metrics
type FileDownloaderWithTelemetry struct {
	base FileDownloader
	methodInstruments
}

// NewFileDownloaderWithTelemetry returns an instance of the FileDownloader decorated with open telemetry timing and count metrics
func NewFileDownloaderWithTelemetry(base FileDownloader, name string, meter metric.Meter) (fd FileDownloaderWithTelemetry, err error) {
	fd = FileDownloaderWithTelemetry{base: base}
	fd.methodInstruments, err = newMethodInstruments("FileDownloader", []string{"DownloadFile"}, name, meter)

	return fd, err
}

// DownloadFile implements FileDownloader
func (_d FileDownloaderWithTelemetry) DownloadFile(fileID string, w io.Writer) (file *slack.File, err error) {
	_since := time.Now()
	defer func() {
		_d.record("DownloadFile", _since, err)
	}()
	return _d.base.DownloadFile(fileID, w)
}
