package handlers

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Lwazi-M/studyconnect-2.0/internal/models"
	"github.com/Lwazi-M/studyconnect-2.0/internal/services"
	"github.com/Lwazi-M/studyconnect-2.0/internal/store"
	"github.com/gofiber/fiber/v2"
)

type libraryApplicationService interface {
	Upload(ctx context.Context, uploaderID int64, input services.UploadResourceInput) (*models.Resource, error)
	Search(ctx context.Context, query string, subject string) ([]models.Resource, error)
	GetResource(ctx context.Context, resourceID int64) (*models.Resource, error)
	DownloadURL(ctx context.Context, resourceID int64) (string, error)
	Delete(ctx context.Context, actorID, resourceID int64) error
}

type ResourceHandler struct {
	service libraryApplicationService
}

func NewResourceHandler(service libraryApplicationService) *ResourceHandler {
	return &ResourceHandler{service: service}
}

func (h *ResourceHandler) Upload(c *fiber.Ctx) error {
	peerID, err := parseActorPeerID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}

	var expiresAt *time.Time
	if raw := strings.TrimSpace(c.FormValue("expires_at")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "expires_at must be RFC3339"})
		}
		expiresAt = &parsed
	}

	fileType := strings.TrimSpace(c.FormValue("file_type"))
	if fileType == "" {
		fileType = strings.TrimPrefix(filepath.Ext(fileHeader.Filename), ".")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to read file"})
	}
	defer file.Close()

	resource, err := h.service.Upload(c.Context(), peerID, services.UploadResourceInput{
		Title:     c.FormValue("title"),
		Subject:   c.FormValue("subject"),
		FileType:  fileType,
		SizeBytes: fileHeader.Size,
		File:      file,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return mapResourceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"resource": resource})
}

func (h *ResourceHandler) ListResources(c *fiber.Ctx) error {
	resources, err := h.service.Search(c.Context(), c.Query("q"), strings.TrimSpace(c.Query("subject")))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to search resources"})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	total := len(resources)
	offset := (page - 1) * limit
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return c.JSON(fiber.Map{
		"resources":  resources[offset:end],
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *ResourceHandler) GetDownloadURL(c *fiber.Ctx) error {
	resourceID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || resourceID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid resource id"})
	}

	url, err := h.service.DownloadURL(c.Context(), resourceID)
	if err != nil {
		return mapResourceError(c, err)
	}

	return c.JSON(fiber.Map{"download_url": url})
}

func (h *ResourceHandler) Delete(c *fiber.Ctx) error {
	peerID, err := parseActorPeerID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	resourceID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || resourceID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid resource id"})
	}

	if err := h.service.Delete(c.Context(), peerID, resourceID); err != nil {
		return mapResourceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func mapResourceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrOversizeFile):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "File exceeds the upload size limit"})
	case errors.Is(err, services.ErrUnsupportedType):
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{"error": "File type is not allowed"})
	case errors.Is(err, services.ErrStorageUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Storage is not configured"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Resource not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process resource request"})
	}
}
