package models

import "time"

type Resource struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Subject    string     `json:"subject"`
	FileType   string     `json:"file_type"`
	SizeBytes  int64      `json:"size_bytes"`
	UploaderID int64      `json:"uploader_id"`
	FileURL    string     `json:"file_url"`
	UploadedAt time.Time  `json:"uploaded_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the resource should be removed by the next purge.
// Resources without an expiry never expire.
func (r *Resource) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}
