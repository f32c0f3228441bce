package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Lwazi-M/studyconnect-2.0/internal/models"
	"github.com/Lwazi-M/studyconnect-2.0/internal/store"
)

type ResourceStore struct {
	mu        sync.Mutex
	nextID    int64
	resources map[int64]*models.Resource
}

func NewResourceStore() *ResourceStore {
	return &ResourceStore{resources: make(map[int64]*models.Resource)}
}

func (s *ResourceStore) Insert(
	_ context.Context,
	input store.CreateResourceInput,
) (*models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	resource := &models.Resource{
		ID:         s.nextID,
		Title:      input.Title,
		Subject:    input.Subject,
		FileType:   input.FileType,
		SizeBytes:  input.SizeBytes,
		UploaderID: input.UploaderID,
		FileURL:    input.FileURL,
		UploadedAt: time.Now().UTC(),
		ExpiresAt:  input.ExpiresAt,
	}
	s.resources[resource.ID] = resource

	out := *resource
	return &out, nil
}

func (s *ResourceStore) GetByID(_ context.Context, resourceID int64) (*models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resource, ok := s.resources[resourceID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *resource
	return &out, nil
}

func (s *ResourceStore) ListAll(_ context.Context) ([]models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resources := make([]models.Resource, 0, len(s.resources))
	for _, resource := range s.resources {
		resources = append(resources, *resource)
	}

	sort.SliceStable(resources, func(i, j int) bool {
		if resources[i].UploadedAt.Equal(resources[j].UploadedAt) {
			return resources[i].ID > resources[j].ID
		}
		return resources[i].UploadedAt.After(resources[j].UploadedAt)
	})
	return resources, nil
}

func (s *ResourceStore) Delete(_ context.Context, resourceID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[resourceID]; !ok {
		return store.ErrNotFound
	}
	delete(s.resources, resourceID)
	return nil
}

// PurgeExpired holds the collection lock for the whole sweep, so no resource
// is removed while an insert is in flight.
func (s *ResourceStore) PurgeExpired(_ context.Context, now time.Time) ([]models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := make([]models.Resource, 0)
	for id, resource := range s.resources {
		if resource.Expired(now) {
			purged = append(purged, *resource)
			delete(s.resources, id)
		}
	}

	sort.Slice(purged, func(i, j int) bool { return purged[i].ID < purged[j].ID })
	return purged, nil
}
