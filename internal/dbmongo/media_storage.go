package dbmongo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"contentflow/internal/common"
)

// MediaStorage is the GridFS-backed common.MediaStore. A mediaRef is the hex ObjectID of the file.
type MediaStorage struct {
	gridFS *gridfs.Bucket
	now    func() time.Time
}

var _ common.MediaStore = (*MediaStorage)(nil)

func NewMediaStorage(mongoClient *MongoClient) *MediaStorage {
	return &MediaStorage{
		gridFS: mongoClient.GridFS,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// fileDoc is the subset of a GridFS files document we read back.
type fileDoc struct {
	ID         primitive.ObjectID `bson:"_id"`
	Length     int64              `bson:"length"`
	UploadDate time.Time          `bson:"uploadDate"`
	Filename   string             `bson:"filename"`
	Metadata   bson.M             `bson:"metadata"`
}

func (d fileDoc) mediaFile() *common.MediaFile {
	mimeType := getStringFromMap(d.Metadata, "mime_type")
	fileType := common.MediaFileType(getStringFromMap(d.Metadata, "file_type"))
	if !fileType.IsValid() {
		fileType = common.DetectFileType(mimeType)
	}
	return &common.MediaFile{
		ID:          d.ID.Hex(),
		Filename:    d.Filename,
		ContentType: mimeType,
		Size:        d.Length,
		FileType:    fileType,
		UploadedBy:  getStringFromMap(d.Metadata, "uploaded_by"),
		UploadedAt:  d.UploadDate.UTC(),
	}
}

func notFound(ref string) error {
	return &common.NotFoundError{Kind: "media", ID: ref}
}

// parseRef turns a mediaRef into an ObjectID. A ref that is not an ObjectID cannot name a stored file.
func parseRef(ref string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(ref)
	if err != nil {
		return primitive.NilObjectID, notFound(ref)
	}
	return oid, nil
}

func (ms *MediaStorage) Upload(ctx context.Context, filename, mimeType, uploaderID string, content io.Reader) (*common.MediaFile, error) {
	fileType := common.DetectFileType(mimeType)
	uploadedAt := ms.now()

	metadata := bson.M{
		"file_type":   fileType.String(),
		"mime_type":   mimeType,
		"uploaded_by": uploaderID,
		"uploaded_at": uploadedAt,
	}

	opts := options.GridFSUpload().SetMetadata(metadata)
	stream, err := ms.gridFS.OpenUploadStream(filename, opts)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetWriteDeadline(deadline)
	}

	size, err := io.Copy(stream, content)
	if err != nil {
		_ = stream.Abort()
		return nil, fmt.Errorf("file copy failed: %w", err)
	}
	if err := stream.Close(); err != nil {
		return nil, fmt.Errorf("finalize upload: %w", err)
	}

	oid, _ := stream.FileID.(primitive.ObjectID)
	return &common.MediaFile{
		ID:          oid.Hex(),
		Filename:    filename,
		ContentType: mimeType,
		Size:        size,
		FileType:    fileType,
		UploadedBy:  uploaderID,
		UploadedAt:  uploadedAt,
	}, nil
}

func (ms *MediaStorage) Download(ctx context.Context, ref string) (io.ReadCloser, *common.MediaFile, error) {
	oid, err := parseRef(ref)
	if err != nil {
		return nil, nil, err
	}

	stream, err := ms.gridFS.OpenDownloadStream(oid)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, nil, notFound(ref)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("download failed: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetReadDeadline(deadline)
	}

	info := stream.GetFile()
	doc := fileDoc{
		ID:         oid,
		Length:     info.Length,
		UploadDate: info.UploadDate,
		Filename:   info.Name,
	}
	if info.Metadata != nil {
		_ = bson.Unmarshal(info.Metadata, &doc.Metadata)
	}
	return stream, doc.mediaFile(), nil
}

func (ms *MediaStorage) Stat(ctx context.Context, ref string) (*common.MediaFile, error) {
	oid, err := parseRef(ref)
	if err != nil {
		return nil, err
	}

	cursor, err := ms.gridFS.FindContext(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, fmt.Errorf("stat failed: %w", err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return nil, fmt.Errorf("stat failed: %w", err)
		}
		return nil, notFound(ref)
	}
	var doc fileDoc
	if err := cursor.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode file document: %w", err)
	}
	return doc.mediaFile(), nil
}

func (ms *MediaStorage) Delete(ctx context.Context, ref string) error {
	oid, err := parseRef(ref)
	if err != nil {
		return err
	}
	err = ms.gridFS.DeleteContext(ctx, oid)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return notFound(ref)
	}
	return err
}

func getStringFromMap(m bson.M, key string) string {
	if m == nil {
		return ""
	}
	if val, ok := m[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
