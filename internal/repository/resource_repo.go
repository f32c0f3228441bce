package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Lwazi-M/studyconnect-2.0/internal/models"
	"github.com/Lwazi-M/studyconnect-2.0/internal/store"
)

const resourceColumns = `
	id, title, subject, file_type, size_bytes, uploader_id, file_url,
	uploaded_at, expires_at
`

type ResourceRepository struct {
	db DBTX
}

func NewResourceRepository(db DBTX) *ResourceRepository {
	return &ResourceRepository{db: db}
}

func (r *ResourceRepository) Insert(
	ctx context.Context,
	input store.CreateResourceInput,
) (*models.Resource, error) {
	query := `
		INSERT INTO resources (
			title, subject, file_type, size_bytes, uploader_id, file_url, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + resourceColumns

	var resource models.Resource
	err := scanResource(r.db.QueryRow(ctx, query,
		input.Title,
		input.Subject,
		input.FileType,
		input.SizeBytes,
		input.UploaderID,
		input.FileURL,
		input.ExpiresAt,
	), &resource)
	if err != nil {
		return nil, err
	}
	return &resource, nil
}

func (r *ResourceRepository) GetByID(ctx context.Context, resourceID int64) (*models.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1`

	var resource models.Resource
	if err := scanResource(r.db.QueryRow(ctx, query, resourceID), &resource); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &resource, nil
}

func (r *ResourceRepository) ListAll(ctx context.Context) ([]models.Resource, error) {
	query := `
		SELECT ` + resourceColumns + `
		FROM resources
		ORDER BY uploaded_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	resources := make([]models.Resource, 0)
	for rows.Next() {
		var resource models.Resource
		if err := scanResource(rows, &resource); err != nil {
			return nil, err
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return resources, nil
}

func (r *ResourceRepository) Delete(ctx context.Context, resourceID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM resources WHERE id = $1`, resourceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// PurgeExpired deletes in one statement, so an insert committing at the same
// time can never be half-purged.
func (r *ResourceRepository) PurgeExpired(
	ctx context.Context,
	now time.Time,
) ([]models.Resource, error) {
	query := `
		DELETE FROM resources
		WHERE expires_at IS NOT NULL AND expires_at < $1
		RETURNING ` + resourceColumns

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purged := make([]models.Resource, 0)
	for rows.Next() {
		var resource models.Resource
		if err := scanResource(rows, &resource); err != nil {
			return nil, err
		}
		purged = append(purged, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return purged, nil
}

func scanResource(row pgx.Row, resource *models.Resource) error {
	return row.Scan(
		&resource.ID,
		&resource.Title,
		&resource.Subject,
		&resource.FileType,
		&resource.SizeBytes,
		&resource.UploaderID,
		&resource.FileURL,
		&resource.UploadedAt,
		&resource.ExpiresAt,
	)
}
