package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Lwazi-M/studyconnect-2.0/internal/models"
	"github.com/Lwazi-M/studyconnect-2.0/internal/search"
	"github.com/Lwazi-M/studyconnect-2.0/internal/store"
)

// DefaultMaxUploadBytes caps resource uploads at 10 MB unless configured
// otherwise.
const DefaultMaxUploadBytes = 10 << 20

// DefaultAllowedTypes is the upload allow-list applied when none is
// configured.
var DefaultAllowedTypes = []string{"pdf", "doc", "docx", "ppt", "pptx", "xls", "xlsx", "png", "jpg", "jpeg", "zip"}

type UploadResourceInput struct {
	Title     string
	Subject   string
	FileType  string
	SizeBytes int64
	File      io.Reader
	ExpiresAt *time.Time
}

type LibraryService struct {
	resources    store.ResourceStore
	storage      StorageService
	maxBytes     int64
	allowedTypes map[string]struct{}
}

func NewLibraryService(
	resources store.ResourceStore,
	storage StorageService,
	maxBytes int64,
	allowedTypes []string,
) *LibraryService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if len(allowedTypes) == 0 {
		allowedTypes = DefaultAllowedTypes
	}

	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, fileType := range allowedTypes {
		allowed[normalizeFileType(fileType)] = struct{}{}
	}

	return &LibraryService{
		resources:    resources,
		storage:      storage,
		maxBytes:     maxBytes,
		allowedTypes: allowed,
	}
}

func (s *LibraryService) Upload(
	ctx context.Context,
	uploaderID int64,
	input UploadResourceInput,
) (*models.Resource, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	if uploaderID <= 0 || input.File == nil || input.SizeBytes <= 0 {
		return nil, ErrInvalidInput
	}

	title := strings.TrimSpace(input.Title)
	subject := strings.TrimSpace(input.Subject)
	if title == "" || subject == "" {
		return nil, ErrInvalidInput
	}

	fileType := normalizeFileType(input.FileType)
	if _, ok := s.allowedTypes[fileType]; !ok {
		return nil, ErrUnsupportedType
	}
	if input.SizeBytes > s.maxBytes {
		return nil, ErrOversizeFile
	}

	objectName := fmt.Sprintf("%s.%s", uuid.NewString(), fileType)
	fileURL, err := s.storage.UploadFile(ctx, input.File, objectName, "resources")
	if err != nil {
		return nil, err
	}

	resource, err := s.resources.Insert(ctx, store.CreateResourceInput{
		Title:      title,
		Subject:    subject,
		FileType:   fileType,
		SizeBytes:  input.SizeBytes,
		UploaderID: uploaderID,
		FileURL:    fileURL,
		ExpiresAt:  input.ExpiresAt,
	})
	if err != nil {
		cleanupErr := s.storage.DeleteFile(ctx, fileURL)
		if cleanupErr != nil {
			return nil, errors.Join(err, fmt.Errorf("cleanup failed: %w", cleanupErr))
		}
		return nil, err
	}

	return resource, nil
}

// Search matches the query as a case-insensitive substring of title or
// subject and the subject filter exactly. Results keep the store's
// newest-first order.
func (s *LibraryService) Search(
	ctx context.Context,
	query string,
	subject string,
) ([]models.Resource, error) {
	resources, err := s.resources.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	return search.Filter(resources,
		search.Text(query, func(resource models.Resource) []string {
			return []string{resource.Title, resource.Subject}
		}),
		search.Attr(subject, func(resource models.Resource) string { return resource.Subject }),
	), nil
}

func (s *LibraryService) GetResource(ctx context.Context, resourceID int64) (*models.Resource, error) {
	if resourceID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.resources.GetByID(ctx, resourceID)
}

func (s *LibraryService) DownloadURL(ctx context.Context, resourceID int64) (string, error) {
	if s.storage == nil {
		return "", ErrStorageUnavailable
	}

	resource, err := s.GetResource(ctx, resourceID)
	if err != nil {
		return "", err
	}
	return s.storage.GetSignedURL(ctx, resource.FileURL)
}

func (s *LibraryService) Delete(ctx context.Context, actorID, resourceID int64) error {
	if actorID <= 0 || resourceID <= 0 {
		return ErrInvalidInput
	}

	resource, err := s.resources.GetByID(ctx, resourceID)
	if err != nil {
		return err
	}
	if resource.UploaderID != actorID {
		return ErrForbidden
	}

	if err := s.resources.Delete(ctx, resourceID); err != nil {
		return err
	}
	if s.storage != nil {
		if err := s.storage.DeleteFile(ctx, resource.FileURL); err != nil {
			log.Printf("delete resource file %d: %v", resourceID, err)
		}
	}
	return nil
}

// PurgeExpired removes every resource whose expiry has passed and reports
// how many were removed. It is driven by the periodic sweep in the server
// wiring.
func (s *LibraryService) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	purged, err := s.resources.PurgeExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	if s.storage != nil {
		for _, resource := range purged {
			if err := s.storage.DeleteFile(ctx, resource.FileURL); err != nil {
				log.Printf("purge resource file %d: %v", resource.ID, err)
			}
		}
	}
	return len(purged), nil
}

func normalizeFileType(fileType string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(fileType)), ".")
}
