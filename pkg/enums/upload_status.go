package enums

import "fmt"

// UploadStatus is the lifecycle state of a relayed upload.
type UploadStatus string

const (
	UploadStatusStored  UploadStatus = "stored"
	UploadStatusDeleted UploadStatus = "deleted"
)

var validUploadStatuses = []UploadStatus{
	UploadStatusStored,
	UploadStatusDeleted,
}

func (s UploadStatus) String() string {
	return string(s)
}

func (s UploadStatus) IsValid() bool {
	for _, candidate := range validUploadStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseUploadStatus(value string) (UploadStatus, error) {
	for _, candidate := range validUploadStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid upload status %q", value)
}
