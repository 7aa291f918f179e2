package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileCategory drives both storage routing and the access-control decision
// at read time.
type FileCategory string

const (
	CategoryResumes   FileCategory = "resumes"
	CategoryEvents    FileCategory = "events"
	CategoryAvatars   FileCategory = "avatars"
	CategoryChat      FileCategory = "chat"
	CategoryResources FileCategory = "resources"
	CategoryGeneral   FileCategory = "general"
)

// IsPrivate reports whether reads require an authenticated principal.
// Resumes and chat attachments are never served anonymously.
func (c FileCategory) IsPrivate() bool {
	return c == CategoryResumes || c == CategoryChat
}

func (c FileCategory) Valid() bool {
	switch c {
	case CategoryResumes, CategoryEvents, CategoryAvatars, CategoryChat, CategoryResources, CategoryGeneral:
		return true
	}
	return false
}

// FileMetadata is the application-specific part of a stored object,
// nested under the GridFS document's metadata field.
type FileMetadata struct {
	Category     FileCategory `bson:"category" json:"category"`
	UploadedBy   string       `bson:"uploadedBy" json:"uploadedBy"`
	OriginalName string       `bson:"originalName" json:"originalName"`
	ContentType  string       `bson:"contentType" json:"contentType"`
}

// StoredFile mirrors a GridFS fs.files document.
type StoredFile struct {
	Id         primitive.ObjectID `bson:"_id" json:"id"`
	Length     int64              `bson:"length" json:"size"`
	ChunkSize  int32              `bson:"chunkSize" json:"-"`
	UploadDate time.Time          `bson:"uploadDate" json:"uploadedAt"`
	Filename   string             `bson:"filename" json:"filename"`
	Metadata   FileMetadata       `bson:"metadata" json:"metadata"`
}

// FileDescriptor is the normalized upload result handed to downstream
// handlers and clients.
type FileDescriptor struct {
	FileId       string `json:"fileId"`
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	Mimetype     string `json:"mimetype"`
	Url          string `json:"url"`
}
