package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"careercompass/infrastructure/storage"
	"careercompass/internal/entity"
	"careercompass/pkg/apperr"
)

const (
	// DefaultMaxFileSize is the authoritative server-side ceiling per file.
	DefaultMaxFileSize = 5 << 20 // 5 MB
	DefaultMaxFiles    = 5

	maxFormMemory = 32 << 20
)

// Sentinel causes wrapped into the returned errors so callers can
// distinguish rejection reasons with errors.Is.
var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrTooManyFiles    = errors.New("too many files")
	ErrInvalidFileType = errors.New("invalid file type")
)

var (
	documentExts = []string{".pdf", ".doc", ".docx"}
	imageExts    = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

	extMimes = map[string][]string{
		".pdf":  {"application/pdf"},
		".doc":  {"application/msword"},
		".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		".jpg":  {"image/jpeg"},
		".jpeg": {"image/jpeg"},
		".png":  {"image/png"},
		".gif":  {"image/gif"},
		".webp": {"image/webp"},
	}
)

// allowedExtensions returns the per-category extension allow-list.
func allowedExtensions(category entity.FileCategory) []string {
	switch category {
	case entity.CategoryResumes:
		return documentExts
	case entity.CategoryAvatars, entity.CategoryEvents:
		return imageExts
	default:
		// chat, resources, general take both document and image types
		return append(append([]string{}, documentExts...), imageExts...)
	}
}

// BlobStore is the slice of the object store the gateway needs.
type BlobStore interface {
	Put(ctx context.Context, r io.Reader, in storage.PutInput) (string, error)
	Delete(ctx context.Context, id string) error
}

// Constraints configure one intake. The category is passed explicitly by
// the caller; the gateway never infers it from the route.
type Constraints struct {
	Category    entity.FileCategory
	UploaderId  string
	MaxFileSize int64
	MaxFiles    int
}

// Gateway validates multipart file submissions and writes accepted blobs to
// the object store. Results are returned as normalized descriptors instead
// of being attached to the request.
type Gateway struct {
	store BlobStore

	// MaxFileSize overrides DefaultMaxFileSize for calls that do not set
	// their own ceiling. Zero keeps the default.
	MaxFileSize int64
}

func NewGateway(store BlobStore) *Gateway {
	return &Gateway{store: store}
}

// Handle reads the named multipart field from the request, enforcing the
// category allow-list and size/count ceilings before anything is stored.
// A request without the field yields (nil, nil). If storing a later file
// fails, blobs already written for this request are deleted before the
// error is returned.
func (g *Gateway) Handle(ctx context.Context, r *http.Request, field string, c Constraints) ([]entity.FileDescriptor, error) {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = g.MaxFileSize
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	if c.MaxFiles <= 0 {
		c.MaxFiles = DefaultMaxFiles
	}
	if !c.Category.Valid() {
		return nil, apperr.BadRequest("unknown upload category")
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, apperr.BadRequest("malformed multipart body")
	}
	if r.MultipartForm == nil {
		return nil, nil
	}

	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, nil
	}
	if len(headers) > c.MaxFiles {
		return nil, apperr.Wrap(apperr.CodeBadRequest,
			fmt.Sprintf("at most %d files are allowed per request", c.MaxFiles), ErrTooManyFiles)
	}

	// Validate the whole batch before storing anything, so a rejected file
	// never leaves earlier siblings behind.
	for _, h := range headers {
		if err := g.validate(h, c); err != nil {
			return nil, err
		}
	}

	descriptors := make([]entity.FileDescriptor, 0, len(headers))
	for _, h := range headers {
		desc, err := g.storeOne(ctx, h, c)
		if err != nil {
			g.Discard(ctx, descriptors)
			return nil, err
		}
		descriptors = append(descriptors, desc)
	}

	return descriptors, nil
}

func (g *Gateway) validate(h *multipart.FileHeader, c Constraints) error {
	if h.Size > c.MaxFileSize {
		return apperr.Wrap(apperr.CodeBadRequest,
			fmt.Sprintf("file %q exceeds the %d MB limit", h.Filename, c.MaxFileSize>>20), ErrFileTooLarge)
	}

	ext := strings.ToLower(filepath.Ext(h.Filename))
	allowed := allowedExtensions(c.Category)
	if !contains(allowed, ext) {
		return apperr.Wrap(apperr.CodeBadRequest,
			fmt.Sprintf("only %s files are allowed for %s uploads", extList(allowed), c.Category), ErrInvalidFileType)
	}

	// The declared content type must agree with the extension when present.
	ct := h.Header.Get("Content-Type")
	if ct != "" && ct != "application/octet-stream" {
		if mimes, ok := extMimes[ext]; ok && !contains(mimes, ct) {
			return apperr.Wrap(apperr.CodeBadRequest,
				fmt.Sprintf("content type %q does not match the %s extension", ct, ext), ErrInvalidFileType)
		}
	}

	return nil
}

func (g *Gateway) storeOne(ctx context.Context, h *multipart.FileHeader, c Constraints) (entity.FileDescriptor, error) {
	src, err := h.Open()
	if err != nil {
		return entity.FileDescriptor{}, apperr.Internal(err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(h.Filename))
	filename := uniqueFilename(c.Category, ext)
	contentType := h.Header.Get("Content-Type")
	if contentType == "" {
		if mimes, ok := extMimes[ext]; ok {
			contentType = mimes[0]
		}
	}

	fileId, err := g.store.Put(ctx, src, storage.PutInput{
		Filename:     filename,
		Category:     c.Category,
		UploaderId:   c.UploaderId,
		ContentType:  contentType,
		OriginalName: h.Filename,
	})
	if err != nil {
		return entity.FileDescriptor{}, apperr.Internal(err)
	}

	return entity.FileDescriptor{
		FileId:       fileId,
		Filename:     filename,
		OriginalName: h.Filename,
		Size:         h.Size,
		Mimetype:     contentType,
		Url:          "/files/" + filename,
	}, nil
}

// Discard best-effort deletes blobs stored earlier in a request whose
// overall operation failed, so they do not linger as orphans.
func (g *Gateway) Discard(ctx context.Context, stored []entity.FileDescriptor) {
	for _, d := range stored {
		_ = g.store.Delete(ctx, d.FileId)
	}
}

// uniqueFilename derives a globally unique storage key from the category,
// the current time, and a random suffix.
func uniqueFilename(category entity.FileCategory, ext string) string {
	return fmt.Sprintf("%s-%d-%09d%s", category, time.Now().UnixMilli(), rand.Intn(1_000_000_000), ext)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func extList(exts []string) string {
	upper := make([]string, len(exts))
	for i, e := range exts {
		upper[i] = strings.ToUpper(strings.TrimPrefix(e, "."))
	}
	return strings.Join(upper, ", ")
}
