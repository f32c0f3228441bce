package handlers

import (
	"errors"
	"net/mail"
	"strconv"
	"strings"

	"github.com/Lwazi-M/studyconnect-2.0/internal/services"
	"github.com/Lwazi-M/studyconnect-2.0/internal/store"
	"github.com/Lwazi-M/studyconnect-2.0/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler is the identity wrapper around the peer directory: it owns
// credentials and tokens so the stores never see them.
type AuthHandler struct {
	directory store.PeerDirectory
	jwtSecret string
}

func NewAuthHandler(directory store.PeerDirectory, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		directory: directory,
		jwtSecret: jwtSecret,
	}
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	University  string `json:"university"`
	Course      string `json:"course"`
	YearOfStudy int    `json:"year_of_study"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	parsedEmail, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid email format"})
	}
	req.Email = strings.ToLower(parsedEmail.Address)
	if len(req.Password) < 8 {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "Password must be at least 8 characters"})
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "display_name is required"})
	}
	university := strings.TrimSpace(req.University)
	if university == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "university is required"})
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to hash password"})
	}

	peer, err := h.directory.UpsertPeer(c.Context(), store.UpsertPeerInput{
		Email:        req.Email,
		PasswordHash: hashed,
		DisplayName:  displayName,
		Initials:     services.PeerInitials(displayName),
		AvatarColor:  services.PickAvatarColor(int64(len(displayName))),
		University:   university,
		Course:       strings.TrimSpace(req.Course),
		YearOfStudy:  req.YearOfStudy,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateID) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already exists"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to register"})
	}

	token, err := utils.GenerateToken(strconv.FormatInt(peer.ID, 10), "student", h.jwtSecret)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to generate token"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"peer":  peer,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	parsedEmail, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid email format"})
	}

	peer, err := h.directory.GetByEmail(c.Context(), strings.ToLower(parsedEmail.Address))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusUnauthorized).
				JSON(fiber.Map{"error": "Invalid email or password"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to lookup peer"})
	}

	if !peer.Active() || !utils.CheckPassword(req.Password, peer.PasswordHash) {
		return c.Status(fiber.StatusUnauthorized).
			JSON(fiber.Map{"error": "Invalid email or password"})
	}

	token, err := utils.GenerateToken(strconv.FormatInt(peer.ID, 10), "student", h.jwtSecret)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to generate token"})
	}

	return c.JSON(fiber.Map{
		"token": token,
		"peer":  peer,
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	peerID, err := parseActorPeerID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	peer, err := h.directory.GetByID(c.Context(), peerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Peer not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch peer"})
	}

	return c.JSON(fiber.Map{"peer": peer})
}
