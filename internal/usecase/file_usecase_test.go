package usecase

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"careercompass/infrastructure/storage"
	"careercompass/internal/entity"
	"careercompass/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeObjectStore struct {
	mu      sync.Mutex
	files   map[string]entity.StoredFile // keyed by hex id
	content map[string][]byte
	opens   int
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		files:   make(map[string]entity.StoredFile),
		content: make(map[string][]byte),
	}
}

func (s *fakeObjectStore) add(category entity.FileCategory, uploaderId, filename string, data []byte) entity.StoredFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	file := entity.StoredFile{
		Id:       primitive.NewObjectID(),
		Length:   int64(len(data)),
		Filename: filename,
		Metadata: entity.FileMetadata{
			Category:     category,
			UploadedBy:   uploaderId,
			OriginalName: filename,
			ContentType:  "application/octet-stream",
		},
	}
	s.files[file.Id.Hex()] = file
	s.content[file.Id.Hex()] = data
	return file
}

func (s *fakeObjectStore) GetByFilename(_ context.Context, filename string) (entity.StoredFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		if f.Filename == filename {
			return f, nil
		}
	}
	return entity.StoredFile{}, storage.ErrFileNotFound
}

func (s *fakeObjectStore) GetByID(_ context.Context, id string) (entity.StoredFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return entity.StoredFile{}, storage.ErrFileNotFound
	}
	return f, nil
}

func (s *fakeObjectStore) OpenByID(_ context.Context, id string) (io.ReadCloser, entity.StoredFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return nil, entity.StoredFile{}, storage.ErrFileNotFound
	}
	s.opens++
	return io.NopCloser(bytes.NewReader(s.content[id])), f, nil
}

func (s *fakeObjectStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[id]; !ok {
		return storage.ErrFileNotFound
	}
	delete(s.files, id)
	delete(s.content, id)
	return nil
}

func (s *fakeObjectStore) ListByUploader(_ context.Context, uploaderId string) ([]entity.StoredFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.StoredFile
	for _, f := range s.files {
		if f.Metadata.UploadedBy == uploaderId {
			out = append(out, f)
		}
	}
	return out, nil
}

func claims(userId, role string) *entity.TokenClaims {
	return &entity.TokenClaims{UserId: userId, Email: userId + "@example.com", Role: role}
}

func TestOpen_PrivateCategoryRequiresAuth(t *testing.T) {
	store := newFakeObjectStore()
	uc := NewFileUsecase(store)
	ctx := context.Background()
	owner := uuid.NewString()

	store.add(entity.CategoryResumes, owner, "resumes-1.pdf", []byte("cv"))
	store.add(entity.CategoryChat, owner, "chat-1.png", []byte("img"))
	store.add(entity.CategoryAvatars, owner, "avatars-1.png", []byte("face"))

	for _, name := range []string{"resumes-1.pdf", "chat-1.png"} {
		_, _, err := uc.Open(ctx, name, nil)
		assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err), "%s must not be served anonymously", name)
	}
	// The policy gate runs before any bytes are read.
	assert.Equal(t, 0, store.opens)

	// Any authenticated user may read a private file.
	rc, meta, err := uc.Open(ctx, "resumes-1.pdf", claims(uuid.NewString(), entity.RoleMentor))
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "cv", string(data))
	assert.Equal(t, entity.CategoryResumes, meta.Metadata.Category)

	// Public categories are served without a principal.
	rc, _, err = uc.Open(ctx, "avatars-1.png", nil)
	require.NoError(t, err)
	rc.Close()

	_, _, err = uc.Open(ctx, "missing.png", nil)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestOpenByID_RequiresPrincipal(t *testing.T) {
	store := newFakeObjectStore()
	uc := NewFileUsecase(store)
	ctx := context.Background()

	file := store.add(entity.CategoryGeneral, uuid.NewString(), "general-1.txt", []byte("hi"))

	_, _, err := uc.OpenByID(ctx, file.Id.Hex(), nil)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))

	rc, meta, err := uc.OpenByID(ctx, file.Id.Hex(), claims(uuid.NewString(), entity.RoleMentee))
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, file.Id, meta.Id)
}

func TestDelete_UploaderOrAdminOnly(t *testing.T) {
	store := newFakeObjectStore()
	uc := NewFileUsecase(store)
	ctx := context.Background()
	owner := uuid.NewString()

	first := store.add(entity.CategoryResumes, owner, "resumes-a.pdf", []byte("a"))
	second := store.add(entity.CategoryResumes, owner, "resumes-b.pdf", []byte("b"))

	err := uc.Delete(ctx, first.Id.Hex(), claims(uuid.NewString(), entity.RoleMentee))
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	require.NoError(t, uc.Delete(ctx, first.Id.Hex(), claims(owner, entity.RoleMentee)))
	_, err = store.GetByID(ctx, first.Id.Hex())
	assert.ErrorIs(t, err, storage.ErrFileNotFound)

	// Admins can delete anyone's file.
	require.NoError(t, uc.Delete(ctx, second.Id.Hex(), claims(uuid.NewString(), entity.RoleAdmin)))

	err = uc.Delete(ctx, second.Id.Hex(), claims(owner, entity.RoleMentee))
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestListByUploader_SelfOrAdmin(t *testing.T) {
	store := newFakeObjectStore()
	uc := NewFileUsecase(store)
	ctx := context.Background()
	owner := uuid.NewString()

	store.add(entity.CategoryEvents, owner, "events-1.png", []byte("x"))
	store.add(entity.CategoryEvents, owner, "events-2.png", []byte("y"))
	store.add(entity.CategoryEvents, uuid.NewString(), "events-3.png", []byte("z"))

	files, err := uc.ListByUploader(ctx, owner, claims(owner, entity.RoleMentee))
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = uc.ListByUploader(ctx, owner, claims(uuid.NewString(), entity.RoleMentor))
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	files, err = uc.ListByUploader(ctx, owner, claims(uuid.NewString(), entity.RoleAdmin))
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = uc.ListByUploader(ctx, owner, nil)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))
}
