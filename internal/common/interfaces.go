package common

import (
	"context"
	"io"
)

// Observer receives change events fanned out by a Subject.
type Observer interface {
	Update(event ChangeEvent) error
	Name() string
}

type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	Notify(event ChangeEvent)
	NotifyAsync(event ChangeEvent)
}

// MediaStore is the opaque binary store addressed by Item.MediaRef.
type MediaStore interface {
	Upload(ctx context.Context, filename, mimeType, uploaderID string, content io.Reader) (*MediaFile, error)
	Download(ctx context.Context, mediaRef string) (io.ReadCloser, *MediaFile, error)
	Stat(ctx context.Context, mediaRef string) (*MediaFile, error)
	Delete(ctx context.Context, mediaRef string) error
}
