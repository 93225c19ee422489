package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/shotmakerhq/shotmaker/app/models"
	"github.com/shotmakerhq/shotmaker/app/repository"
)

// ErrStorageLimitExceeded is returned when an upload would push the account
// past its plan's storage limit.
var ErrStorageLimitExceeded = errors.New("storage limit exceeded")

// Service stores generated images in the bucket and keeps the database rows
// and per-account storage accounting in sync with them.
type Service struct {
	storage  ObjectStorage
	media    repository.MediaRepository
	users    repository.UserRepository
	projects repository.ProjectRepository

	publicURL string
}

// NewService creates a media service.
func NewService(storage ObjectStorage, repos *repository.Repositories, publicURL string) *Service {
	return &Service{
		storage:   storage,
		media:     repos.Media,
		users:     repos.User,
		projects:  repos.Project,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// StoreParams describes one generated image to persist.
type StoreParams struct {
	UserID      uint
	ProjectID   uint
	ProjectUUID string
	EntityType  string
	EntityID    string
	DraftIndex  int
	ImageIndex  int
	Data        []byte
}

// StoreGeneratedImage uploads the image and its thumbnail, records the
// database row and charges the size against the user's and project's storage
// accounting. The storage limit is checked against the original image only;
// thumbnails are bookkeeping overhead the limit does not meter.
func (s *Service) StoreGeneratedImage(ctx context.Context, params StoreParams) (*models.MediaFile, error) {
	size := int64(len(params.Data))
	if size == 0 {
		return nil, errors.New("image data is empty")
	}

	user, err := s.users.GetByID(params.UserID)
	if err != nil {
		return nil, err
	}
	if user.StorageLimit > 0 && user.StorageUsed+size > user.StorageLimit {
		return nil, fmt.Errorf("%w: used=%d limit=%d incoming=%d",
			ErrStorageLimitExceeded, user.StorageUsed, user.StorageLimit, size)
	}

	key := BuildObjectKey(params.UserID, params.ProjectUUID, params.EntityType, params.EntityID,
		params.DraftIndex, params.ImageIndex, "png")
	if err := s.storage.Put(ctx, key, params.Data, "image/png"); err != nil {
		return nil, err
	}

	thumbKey := ""
	if thumb, err := MakeThumbnail(params.Data); err != nil {
		// A missing thumbnail degrades the UI, it does not fail the upload.
		log.Warnf("[Media] Thumbnail generation failed for %s: %v", key, err)
	} else {
		thumbKey = strings.TrimSuffix(key, ".png") + ".thumb.png"
		if err := s.storage.Put(ctx, thumbKey, thumb, "image/png"); err != nil {
			log.Warnf("[Media] Thumbnail upload failed for %s: %v", thumbKey, err)
			thumbKey = ""
		}
	}

	file := &models.MediaFile{
		UUID:       uuid.New().String(),
		UserID:     params.UserID,
		ProjectID:  params.ProjectID,
		EntityType: params.EntityType,
		EntityID:   params.EntityID,
		DraftIndex: params.DraftIndex,
		ImageIndex: params.ImageIndex,
		ObjectKey:  key,
		ThumbKey:   thumbKey,
		FileType:   "image/png",
		SizeBytes:  size,
	}
	if err := s.media.Create(file); err != nil {
		return nil, err
	}

	if err := s.users.AddStorageUsed(params.UserID, size); err != nil {
		return nil, err
	}
	if err := s.projects.AddStorageUsed(params.ProjectID, size); err != nil {
		return nil, err
	}
	return file, nil
}

// Fetch streams a stored object. thumb selects the thumbnail variant when
// one exists.
func (s *Service) Fetch(ctx context.Context, file *models.MediaFile, thumb bool) ([]byte, string, error) {
	key := file.ObjectKey
	if thumb && file.ThumbKey != "" {
		key = file.ThumbKey
	}
	return s.storage.Get(ctx, key)
}

// PublicURL returns the CDN URL for a stored object, empty when no public
// base is configured.
func (s *Service) PublicURL(file *models.MediaFile) string {
	if s.publicURL == "" {
		return ""
	}
	return s.publicURL + "/" + file.ObjectKey
}

// DeleteFile removes one media file from the bucket and the database and
// releases its storage accounting.
func (s *Service) DeleteFile(ctx context.Context, file *models.MediaFile) error {
	if err := s.storage.Delete(ctx, file.ObjectKey); err != nil {
		return err
	}
	if file.ThumbKey != "" {
		if err := s.storage.Delete(ctx, file.ThumbKey); err != nil {
			log.Warnf("[Media] Failed to delete thumbnail %s: %v", file.ThumbKey, err)
		}
	}
	if err := s.media.Delete(file.ID); err != nil {
		return err
	}
	if err := s.users.AddStorageUsed(file.UserID, -file.SizeBytes); err != nil {
		return err
	}
	return s.projects.AddStorageUsed(file.ProjectID, -file.SizeBytes)
}

// DeleteProjectMedia removes every stored object under a project's prefix,
// deletes the project's media rows and releases their storage from the
// user's accounting. Called when a project is deleted.
func (s *Service) DeleteProjectMedia(ctx context.Context, userID, projectID uint, projectUUID string) (int, error) {
	deleted, err := s.storage.DeleteByPrefix(ctx, ProjectPrefix(userID, projectUUID))
	if err != nil {
		return deleted, err
	}

	files, err := s.media.ListByProject(projectID)
	if err != nil {
		return deleted, err
	}
	var released int64
	for _, file := range files {
		released += file.SizeBytes
		if err := s.media.Delete(file.ID); err != nil {
			return deleted, err
		}
	}
	if released > 0 {
		if err := s.users.AddStorageUsed(userID, -released); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}
