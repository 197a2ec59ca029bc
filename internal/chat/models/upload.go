package models

// UploadState is the lifecycle of a PendingUpload.
type UploadState string

const (
	UploadSelected  UploadState = "selected"
	UploadUploading UploadState = "uploading"
	UploadUploaded  UploadState = "uploaded"
	UploadFailed    UploadState = "failed"
)

// PendingUpload tracks a picked file until it becomes a FileRef or is
// discarded.
type PendingUpload struct {
	File  FileHandle
	State UploadState
	Err   error
}
