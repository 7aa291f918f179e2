package usecase

import (
	"context"
	"errors"
	"io"

	"careercompass/infrastructure/storage"
	"careercompass/internal/entity"
	"careercompass/pkg/apperr"
)

// ObjectStore is the slice of the blob store the file usecase consumes.
type ObjectStore interface {
	GetByFilename(ctx context.Context, filename string) (entity.StoredFile, error)
	GetByID(ctx context.Context, id string) (entity.StoredFile, error)
	OpenByID(ctx context.Context, id string) (io.ReadCloser, entity.StoredFile, error)
	Delete(ctx context.Context, id string) error
	ListByUploader(ctx context.Context, uploaderId string) ([]entity.StoredFile, error)
}

type FileUsecase interface {
	// Open resolves a file by its public filename and streams it. Files in
	// private categories require an authenticated principal; the check runs
	// before any content is read.
	Open(ctx context.Context, filename string, principal *entity.TokenClaims) (io.ReadCloser, entity.StoredFile, error)

	// OpenByID streams a file by id for authenticated downloads.
	OpenByID(ctx context.Context, id string, principal *entity.TokenClaims) (io.ReadCloser, entity.StoredFile, error)

	// Delete hard-deletes a file. Only the uploader or an admin may delete.
	Delete(ctx context.Context, id string, principal *entity.TokenClaims) error

	// ListByUploader returns a user's upload descriptors, self-or-admin only.
	ListByUploader(ctx context.Context, targetUserId string, principal *entity.TokenClaims) ([]entity.StoredFile, error)
}

type fileUsecase struct {
	store ObjectStore
}

func NewFileUsecase(store ObjectStore) FileUsecase {
	return &fileUsecase{store: store}
}

func (u *fileUsecase) Open(ctx context.Context, filename string, principal *entity.TokenClaims) (io.ReadCloser, entity.StoredFile, error) {
	if filename == "" {
		return nil, entity.StoredFile{}, apperr.BadRequest("filename is required")
	}

	meta, err := u.store.GetByFilename(ctx, filename)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, entity.StoredFile{}, apperr.NotFound("file not found")
		}
		return nil, entity.StoredFile{}, apperr.Internal(err)
	}

	if meta.Metadata.Category.IsPrivate() && principal == nil {
		return nil, entity.StoredFile{}, apperr.Unauthorized("authentication required")
	}

	rc, _, err := u.store.OpenByID(ctx, meta.Id.Hex())
	if err != nil {
		return nil, entity.StoredFile{}, apperr.Internal(err)
	}
	return rc, meta, nil
}

func (u *fileUsecase) OpenByID(ctx context.Context, id string, principal *entity.TokenClaims) (io.ReadCloser, entity.StoredFile, error) {
	if principal == nil {
		return nil, entity.StoredFile{}, apperr.Unauthorized("authentication required")
	}

	rc, meta, err := u.store.OpenByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, entity.StoredFile{}, apperr.NotFound("file not found")
		}
		return nil, entity.StoredFile{}, apperr.Internal(err)
	}
	return rc, meta, nil
}

func (u *fileUsecase) Delete(ctx context.Context, id string, principal *entity.TokenClaims) error {
	if principal == nil {
		return apperr.Unauthorized("authentication required")
	}

	meta, err := u.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return apperr.NotFound("file not found")
		}
		return apperr.Internal(err)
	}

	if meta.Metadata.UploadedBy != principal.UserId && principal.Role != entity.RoleAdmin {
		return apperr.Forbidden("you can only delete your own files")
	}

	if err := u.store.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return apperr.NotFound("file not found")
		}
		return apperr.Internal(err)
	}
	return nil
}

func (u *fileUsecase) ListByUploader(ctx context.Context, targetUserId string, principal *entity.TokenClaims) ([]entity.StoredFile, error) {
	if principal == nil {
		return nil, apperr.Unauthorized("authentication required")
	}
	if targetUserId != principal.UserId && principal.Role != entity.RoleAdmin {
		return nil, apperr.Forbidden("you can only list your own files")
	}

	files, err := u.store.ListByUploader(ctx, targetUserId)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return files, nil
}
