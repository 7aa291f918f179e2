package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"careercompass/infrastructure/storage"
	"careercompass/internal/entity"
	"careercompass/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storedBlob struct {
	in   storage.PutInput
	data []byte
}

type fakeBlobStore struct {
	mu      sync.Mutex
	blobs   map[string]storedBlob
	deleted []string
	nextId  int
	failOn  int // 1-based Put call that fails; 0 means never
	calls   int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string]storedBlob)}
}

func (s *fakeBlobStore) Put(_ context.Context, r io.Reader, in storage.PutInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failOn != 0 && s.calls == s.failOn {
		return "", errors.New("write failed")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.nextId++
	id := uuid.NewString()
	s.blobs[id] = storedBlob{in: in, data: data}
	return id, nil
}

func (s *fakeBlobStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		return storage.ErrFileNotFound
	}
	delete(s.blobs, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type part struct {
	field       string
	filename    string
	contentType string
	data        string
}

func multipartRequest(t *testing.T, parts ...part) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, p := range parts {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition",
			`form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		if p.contentType != "" {
			hdr.Set("Content-Type", p.contentType)
		}
		fw, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = fw.Write([]byte(p.data))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r := httptest.NewRequest(http.MethodPost, "/upload", &body)
	r.Header.Set("Content-Type", w.FormDataContentType())
	return r
}

func TestHandle_StoresValidDocument(t *testing.T) {
	store := newFakeBlobStore()
	g := NewGateway(store)
	uploader := uuid.NewString()

	r := multipartRequest(t, part{
		field: "resume", filename: "My Resume.pdf",
		contentType: "application/pdf", data: "%PDF-1.4 fake",
	})

	descs, err := g.Handle(context.Background(), r, "resume", Constraints{
		Category:   entity.CategoryResumes,
		UploaderId: uploader,
	})
	require.NoError(t, err)
	require.Len(t, descs, 1)

	d := descs[0]
	assert.Equal(t, "My Resume.pdf", d.OriginalName)
	assert.Equal(t, "application/pdf", d.Mimetype)
	assert.True(t, strings.HasPrefix(d.Filename, "resumes-"), "filename %q", d.Filename)
	assert.True(t, strings.HasSuffix(d.Filename, ".pdf"), "filename %q", d.Filename)
	assert.Equal(t, "/files/"+d.Filename, d.Url)
	assert.Equal(t, int64(len("%PDF-1.4 fake")), d.Size)

	blob, ok := store.blobs[d.FileId]
	require.True(t, ok)
	assert.Equal(t, "%PDF-1.4 fake", string(blob.data))
	assert.Equal(t, entity.CategoryResumes, blob.in.Category)
	assert.Equal(t, uploader, blob.in.UploaderId)
	assert.Equal(t, "My Resume.pdf", blob.in.OriginalName)
}

func TestHandle_RejectsDisallowedExtension(t *testing.T) {
	store := newFakeBlobStore()
	g := NewGateway(store)

	r := multipartRequest(t, part{
		field: "resume", filename: "malware.exe", data: "MZ",
	})

	_, err := g.Handle(context.Background(), r, "resume", Constraints{
		Category: entity.CategoryResumes, UploaderId: uuid.NewString(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFileType)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
	assert.Empty(t, store.blobs)
}

func TestHandle_RejectsImageForResumeCategory(t *testing.T) {
	g := NewGateway(newFakeBlobStore())

	// PNGs are fine for avatars but not for resumes.
	r := multipartRequest(t, part{
		field: "resume", filename: "photo.png",
		contentType: "image/png", data: "png",
	})
	_, err := g.Handle(context.Background(), r, "resume", Constraints{
		Category: entity.CategoryResumes, UploaderId: uuid.NewString(),
	})
	assert.ErrorIs(t, err, ErrInvalidFileType)

	r = multipartRequest(t, part{
		field: "avatar", filename: "photo.png",
		contentType: "image/png", data: "png",
	})
	_, err = g.Handle(context.Background(), r, "avatar", Constraints{
		Category: entity.CategoryAvatars, UploaderId: uuid.NewString(),
	})
	assert.NoError(t, err)
}

func TestHandle_RejectsMismatchedContentType(t *testing.T) {
	g := NewGateway(newFakeBlobStore())

	r := multipartRequest(t, part{
		field: "resume", filename: "resume.pdf",
		contentType: "image/png", data: "not a pdf",
	})
	_, err := g.Handle(context.Background(), r, "resume", Constraints{
		Category: entity.CategoryResumes, UploaderId: uuid.NewString(),
	})
	assert.ErrorIs(t, err, ErrInvalidFileType)

	// octet-stream is treated as undeclared and falls back to the extension.
	r = multipartRequest(t, part{
		field: "resume", filename: "resume.pdf",
		contentType: "application/octet-stream", data: "%PDF",
	})
	descs, err := g.Handle(context.Background(), r, "resume", Constraints{
		Category: entity.CategoryResumes, UploaderId: uuid.NewString(),
	})
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, "application/pdf", descs[0].Mimetype)
}

func TestHandle_EnforcesSizeCeiling(t *testing.T) {
	store := newFakeBlobStore()
	g := NewGateway(store)

	r := multipartRequest(t, part{
		field: "attachment", filename: "big.pdf",
		contentType: "application/pdf", data: strings.Repeat("a", 64),
	})
	_, err := g.Handle(context.Background(), r, "attachment", Constraints{
		Category:    entity.CategoryChat,
		UploaderId:  uuid.NewString(),
		MaxFileSize: 32,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Empty(t, store.blobs)
}

func TestHandle_GatewayLevelCeiling(t *testing.T) {
	store := newFakeBlobStore()
	g := NewGateway(store)
	g.MaxFileSize = 16

	r := multipartRequest(t, part{
		field: "attachment", filename: "big.pdf",
		contentType: "application/pdf", data: strings.Repeat("a", 32),
	})
	// No per-call ceiling: the gateway-wide one applies.
	_, err := g.Handle(context.Background(), r, "attachment", Constraints{
		Category: entity.CategoryChat, UploaderId: uuid.NewString(),
	})
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestHandle_EnforcesFileCount(t *testing.T) {
	store := newFakeBlobStore()
	g := NewGateway(store)

	r := multipartRequest(t,
		part{field: "attachment", filename: "a.pdf", contentType: "application/pdf", data: "a"},
		part{field: "attachment", filename: "b.pdf", contentType: "application/pdf", data: "b"},
	)
	_, err := g.Handle(context.Background(), r, "attachment", Constraints{
		Category:   entity.CategoryChat,
		UploaderId: uuid.NewString(),
		MaxFiles:   1,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooManyFiles)
	assert.Empty(t, store.blobs)
}

func TestHandle_OneBadFileRejectsWholeBatch(t *testing.T) {
	store := newFakeBlobStore()
	g := NewGateway(store)

	r := multipartRequest(t,
		part{field: "attachment", filename: "fine.pdf", contentType: "application/pdf", data: "ok"},
		part{field: "attachment", filename: "nope.exe", data: "MZ"},
	)
	_, err := g.Handle(context.Background(), r, "attachment", Constraints{
		Category: entity.CategoryChat, UploaderId: uuid.NewString(),
	})
	assert.ErrorIs(t, err, ErrInvalidFileType)
	// Validation runs before storage, so the valid sibling was never written.
	assert.Empty(t, store.blobs)
	assert.Equal(t, 0, store.calls)
}

func TestHandle_CleansUpAfterPartialStoreFailure(t *testing.T) {
	store := newFakeBlobStore()
	store.failOn = 2
	g := NewGateway(store)

	r := multipartRequest(t,
		part{field: "attachment", filename: "a.pdf", contentType: "application/pdf", data: "a"},
		part{field: "attachment", filename: "b.pdf", contentType: "application/pdf", data: "b"},
	)
	_, err := g.Handle(context.Background(), r, "attachment", Constraints{
		Category: entity.CategoryChat, UploaderId: uuid.NewString(),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(err))

	// The blob stored before the failure was discarded.
	assert.Empty(t, store.blobs)
	assert.Len(t, store.deleted, 1)
}

func TestHandle_MissingFieldIsNotAnError(t *testing.T) {
	g := NewGateway(newFakeBlobStore())

	r := multipartRequest(t, part{
		field: "other", filename: "a.pdf", contentType: "application/pdf", data: "a",
	})
	descs, err := g.Handle(context.Background(), r, "attachment", Constraints{
		Category: entity.CategoryChat, UploaderId: uuid.NewString(),
	})
	assert.NoError(t, err)
	assert.Nil(t, descs)
}

func TestHandle_UnknownCategory(t *testing.T) {
	g := NewGateway(newFakeBlobStore())

	r := multipartRequest(t, part{
		field: "attachment", filename: "a.pdf", contentType: "application/pdf", data: "a",
	})
	_, err := g.Handle(context.Background(), r, "attachment", Constraints{
		Category: entity.FileCategory("bogus"), UploaderId: uuid.NewString(),
	})
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
}
