package common

import (
	"strings"
	"time"
)

// MediaFileType is the coarse media class recorded with every stored file.
type MediaFileType string

const (
	MediaFileTypeImage MediaFileType = "image"
	MediaFileTypeVideo MediaFileType = "video"
)

func (mft MediaFileType) String() string {
	return string(mft)
}

func (mft MediaFileType) IsValid() bool {
	return mft == MediaFileTypeImage || mft == MediaFileTypeVideo
}

func DetectFileType(mimeType string) MediaFileType {
	lowerMimeType := strings.ToLower(mimeType)
	if strings.HasPrefix(lowerMimeType, "video/") {
		return MediaFileTypeVideo
	}
	return MediaFileTypeImage
}

// AcceptsFileType reports whether media of type mft can back an item of kind k.
// Reels are video only; posts and stories take either.
func (k Kind) AcceptsFileType(mft MediaFileType) bool {
	if k == KindReel {
		return mft == MediaFileTypeVideo
	}
	return mft.IsValid()
}

// MediaFile describes a stored binary; ID is the mediaRef handed to items.
type MediaFile struct {
	ID          string        `json:"id"`
	Filename    string        `json:"filename"`
	ContentType string        `json:"contentType"`
	Size        int64         `json:"size"`
	FileType    MediaFileType `json:"fileType"`
	UploadedBy  string        `json:"uploadedBy"`
	UploadedAt  time.Time     `json:"uploadedAt"`
}
