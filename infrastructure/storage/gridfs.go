package storage

import (
	"context"
	"errors"
	"io"

	"careercompass/internal/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrFileNotFound = errors.New("file not found")

const bucketName = "uploads"

// ObjectStore is the binary-blob persistence layer, backed by a GridFS
// bucket. It is constructed once at startup and passed to its consumers;
// there is no package-level handle.
type ObjectStore struct {
	bucket *gridfs.Bucket
	files  *mongo.Collection
}

func NewObjectStore(db *mongo.Database) (*ObjectStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, err
	}
	return &ObjectStore{
		bucket: bucket,
		files:  db.Collection(bucketName + ".files"),
	}, nil
}

type PutInput struct {
	Filename     string
	Category     entity.FileCategory
	UploaderId   string
	ContentType  string
	OriginalName string
}

// Put streams the blob into the bucket together with its metadata. If the
// transfer fails mid-stream the upload is aborted, so a partial object never
// becomes addressable under the filename.
func (s *ObjectStore) Put(ctx context.Context, r io.Reader, in PutInput) (string, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = s.bucket.SetWriteDeadline(dl)
	}

	meta := entity.FileMetadata{
		Category:     in.Category,
		UploadedBy:   in.UploaderId,
		OriginalName: in.OriginalName,
		ContentType:  in.ContentType,
	}
	uploadOpts := options.GridFSUpload().SetMetadata(meta)

	stream, err := s.bucket.OpenUploadStream(in.Filename, uploadOpts)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(stream, r); err != nil {
		_ = stream.Abort()
		return "", err
	}
	if err := stream.Close(); err != nil {
		_ = stream.Abort()
		return "", err
	}

	id, ok := stream.FileID.(primitive.ObjectID)
	if !ok {
		return "", errors.New("unexpected gridfs file id type")
	}
	return id.Hex(), nil
}

func (s *ObjectStore) GetByFilename(ctx context.Context, filename string) (entity.StoredFile, error) {
	var f entity.StoredFile
	err := s.files.FindOne(ctx, bson.M{"filename": filename}).Decode(&f)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entity.StoredFile{}, ErrFileNotFound
		}
		return entity.StoredFile{}, err
	}
	return f, nil
}

func (s *ObjectStore) GetByID(ctx context.Context, id string) (entity.StoredFile, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return entity.StoredFile{}, ErrFileNotFound
	}

	var f entity.StoredFile
	err = s.files.FindOne(ctx, bson.M{"_id": oid}).Decode(&f)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entity.StoredFile{}, ErrFileNotFound
		}
		return entity.StoredFile{}, err
	}
	return f, nil
}

// OpenByFilename returns a streaming reader for the object content plus its
// metadata. The caller owns the returned reader.
func (s *ObjectStore) OpenByFilename(ctx context.Context, filename string) (io.ReadCloser, entity.StoredFile, error) {
	f, err := s.GetByFilename(ctx, filename)
	if err != nil {
		return nil, entity.StoredFile{}, err
	}
	rc, err := s.open(ctx, f.Id)
	if err != nil {
		return nil, entity.StoredFile{}, err
	}
	return rc, f, nil
}

func (s *ObjectStore) OpenByID(ctx context.Context, id string) (io.ReadCloser, entity.StoredFile, error) {
	f, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, entity.StoredFile{}, err
	}
	rc, err := s.open(ctx, f.Id)
	if err != nil {
		return nil, entity.StoredFile{}, err
	}
	return rc, f, nil
}

func (s *ObjectStore) open(ctx context.Context, id primitive.ObjectID) (io.ReadCloser, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = s.bucket.SetReadDeadline(dl)
	}
	stream, err := s.bucket.OpenDownloadStream(id)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return stream, nil
}

// Delete removes the object and its chunks. Hard delete; content is gone.
func (s *ObjectStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrFileNotFound
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = s.bucket.SetWriteDeadline(dl)
	}
	if err := s.bucket.Delete(oid); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return ErrFileNotFound
		}
		return err
	}
	return nil
}

// ListByUploader returns a snapshot of the objects a user has uploaded,
// newest first.
func (s *ObjectStore) ListByUploader(ctx context.Context, uploaderId string) ([]entity.StoredFile, error) {
	opts := options.Find().SetSort(bson.D{{Key: "uploadDate", Value: -1}})
	cursor, err := s.files.Find(ctx, bson.M{"metadata.uploadedBy": uploaderId}, opts)
	if err != nil {
		return nil, err
	}

	var files []entity.StoredFile
	if err := cursor.All(ctx, &files); err != nil {
		return nil, err
	}
	return files, nil
}
