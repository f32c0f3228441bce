package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/Lwazi-M/studyconnect-2.0/internal/models"
	"github.com/Lwazi-M/studyconnect-2.0/internal/services"
	"github.com/Lwazi-M/studyconnect-2.0/internal/store"
	"github.com/gofiber/fiber/v2"
)

type peerDirectoryService interface {
	GetPeer(ctx context.Context, peerID int64) (*models.Peer, error)
	UpdateProfile(ctx context.Context, peerID int64, input services.UpdatePeerInput) (*models.Peer, error)
	SetPresence(ctx context.Context, peerID int64, online bool) error
	Deactivate(ctx context.Context, peerID int64) error
	SearchPeers(ctx context.Context, query string, filter services.PeerSearchFilter) ([]models.Peer, error)
}

type PeerDiscoveryHandler struct {
	service peerDirectoryService
}

type updateProfileRequest struct {
	DisplayName string `json:"display_name"`
	AvatarColor string `json:"avatar_color"`
	Course      string `json:"course"`
	YearOfStudy int    `json:"year_of_study"`
}

type presenceRequest struct {
	Online bool `json:"online"`
}

func NewPeerDiscoveryHandler(service peerDirectoryService) *PeerDiscoveryHandler {
	return &PeerDiscoveryHandler{service: service}
}

// ListPeers is the student-discovery search: substring on name, exact match
// on any supplied attribute filter.
func (h *PeerDiscoveryHandler) ListPeers(c *fiber.Ctx) error {
	year, err := parseNonNegativeInt(c.Query("year"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "year must be a valid non-negative integer"})
	}

	peers, err := h.service.SearchPeers(c.Context(), c.Query("q"), services.PeerSearchFilter{
		University:  strings.TrimSpace(c.Query("university")),
		Course:      strings.TrimSpace(c.Query("course")),
		YearOfStudy: year,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to search peers"})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	total := len(peers)
	offset := (page - 1) * limit
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return c.JSON(fiber.Map{
		"peers":      peers[offset:end],
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *PeerDiscoveryHandler) GetPeerDetail(c *fiber.Ctx) error {
	peerID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || peerID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid peer id"})
	}

	peer, err := h.service.GetPeer(c.Context(), peerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Peer not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch peer"})
	}

	return c.JSON(fiber.Map{"peer": peer})
}

func (h *PeerDiscoveryHandler) UpdateProfile(c *fiber.Ctx) error {
	peerID, err := parseActorPeerID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	peer, err := h.service.UpdateProfile(c.Context(), peerID, services.UpdatePeerInput{
		DisplayName: req.DisplayName,
		AvatarColor: req.AvatarColor,
		Course:      req.Course,
		YearOfStudy: req.YearOfStudy,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateID):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Immutable fields cannot change"})
		case errors.Is(err, store.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Peer not found"})
		case errors.Is(err, services.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
		}
	}

	return c.JSON(fiber.Map{"peer": peer})
}

// Heartbeat lets clients without an open socket refresh their presence.
func (h *PeerDiscoveryHandler) Heartbeat(c *fiber.Ctx) error {
	peerID, err := parseActorPeerID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	req := presenceRequest{Online: true}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	if err := h.service.SetPresence(c.Context(), peerID, req.Online); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Peer not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update presence"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PeerDiscoveryHandler) Deactivate(c *fiber.Ctx) error {
	peerID, err := parseActorPeerID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	if err := h.service.Deactivate(c.Context(), peerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Peer not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to deactivate"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
