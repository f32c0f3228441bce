package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Lwazi-M/studyconnect-2.0/internal/models"
	"github.com/Lwazi-M/studyconnect-2.0/internal/services"
	"github.com/Lwazi-M/studyconnect-2.0/internal/store"
	chatws "github.com/Lwazi-M/studyconnect-2.0/internal/websocket"
)

type stubMessagingService struct {
	summaries    []models.ConversationSummary
	conversation *models.Conversation
	messages     []models.Message
	total        int
	delivery     *services.MessageDelivery
	err          error

	markReadCalls [][3]int64
}

func (s *stubMessagingService) ListConversations(_ context.Context, _ int64) ([]models.ConversationSummary, error) {
	return s.summaries, s.err
}

func (s *stubMessagingService) CreateConversation(_ context.Context, _ int64, _ []int64, _ *string) (*models.Conversation, error) {
	return s.conversation, s.err
}

func (s *stubMessagingService) ListMessages(_ context.Context, _ int64, _ int64, _ int, _ int) ([]models.Message, int, error) {
	return s.messages, s.total, s.err
}

func (s *stubMessagingService) SendMessage(_ context.Context, _ int64, _ int64, _ string) (*services.MessageDelivery, error) {
	return s.delivery, s.err
}

func (s *stubMessagingService) MarkRead(_ context.Context, actorID int64, conversationID int64, uptoMessageID int64) error {
	s.markReadCalls = append(s.markReadCalls, [3]int64{actorID, conversationID, uptoMessageID})
	return s.err
}

func newChatTestApp(service messagingApplicationService) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("peer_id", "1")
		return c.Next()
	})

	handler := NewChatHandler(service, chatws.NewHub(nil), "test-secret")
	app.Get("/conversations", handler.ListConversations)
	app.Post("/conversations", handler.CreateConversation)
	app.Get("/conversations/:id/messages", handler.GetMessages)
	app.Post("/conversations/:id/messages", handler.SendMessage)
	app.Post("/conversations/:id/read", handler.MarkRead)
	return app
}

func TestListConversationsReturnsSummaries(t *testing.T) {
	service := &stubMessagingService{
		summaries: []models.ConversationSummary{
			{Conversation: models.Conversation{ID: 1, Kind: models.ConversationDirect}, UnreadCount: 2},
		},
	}
	app := newChatTestApp(service)

	resp, err := app.Test(httptest.NewRequest("GET", "/conversations", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(body.Conversations) != 1 || body.Conversations[0].UnreadCount != 2 {
		t.Errorf("Unexpected summaries: %+v", body.Conversations)
	}
}

func TestCreateConversationReturns201(t *testing.T) {
	service := &stubMessagingService{
		conversation: &models.Conversation{ID: 5, Kind: models.ConversationGroup, ParticipantIDs: []int64{1, 2, 3}},
	}
	app := newChatTestApp(service)

	payload, _ := json.Marshal(map[string]any{"participant_ids": []int64{2, 3}})
	req := httptest.NewRequest("POST", "/conversations", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
}

func TestCreateConversationMapsValidationErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"too few participants", store.ErrInvalidParticipants, fiber.StatusBadRequest},
		{"unknown peer", services.ErrPeerNotFound, fiber.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newChatTestApp(&stubMessagingService{err: tc.err})

			payload, _ := json.Marshal(map[string]any{"participant_ids": []int64{2}})
			req := httptest.NewRequest("POST", "/conversations", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			if resp.StatusCode != tc.status {
				t.Fatalf("Expected %d, got %d", tc.status, resp.StatusCode)
			}
		})
	}
}

func TestGetMessagesIncludesPagination(t *testing.T) {
	service := &stubMessagingService{
		messages: []models.Message{{ID: 1, ConversationID: 3, SenderID: 2, Body: "hello", CreatedAt: time.Now()}},
		total:    25,
	}
	app := newChatTestApp(service)

	resp, err := app.Test(httptest.NewRequest("GET", "/conversations/3/messages?page=2&limit=10", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Messages   []models.Message      `json:"messages"`
		Pagination models.PaginationMeta `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Pagination.Total != 25 || body.Pagination.TotalPages != 3 {
		t.Errorf("Unexpected pagination: %+v", body.Pagination)
	}
}

func TestGetMessagesRejectsBadConversationID(t *testing.T) {
	app := newChatTestApp(&stubMessagingService{})

	resp, err := app.Test(httptest.NewRequest("GET", "/conversations/abc/messages", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestSendMessageReturns201(t *testing.T) {
	service := &stubMessagingService{
		delivery: &services.MessageDelivery{
			Conversation: &models.Conversation{ID: 3, ParticipantIDs: []int64{1, 2}},
			Message:      &models.Message{ID: 9, ConversationID: 3, SenderID: 1, Body: "hello", CreatedAt: time.Now()},
			RecipientIDs: []int64{2},
		},
	}
	app := newChatTestApp(service)

	payload, _ := json.Marshal(map[string]string{"body": "hello"})
	req := httptest.NewRequest("POST", "/conversations/3/messages", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
}

func TestSendMessageMapsEmptyBody(t *testing.T) {
	app := newChatTestApp(&stubMessagingService{err: store.ErrEmptyBody})

	payload, _ := json.Marshal(map[string]string{"body": "  "})
	req := httptest.NewRequest("POST", "/conversations/3/messages", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestMarkReadReturns204(t *testing.T) {
	service := &stubMessagingService{}
	app := newChatTestApp(service)

	payload, _ := json.Marshal(map[string]int64{"upto_message_id": 12})
	req := httptest.NewRequest("POST", "/conversations/3/read", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("Expected 204, got %d", resp.StatusCode)
	}
	if len(service.markReadCalls) != 1 || service.markReadCalls[0] != [3]int64{1, 3, 12} {
		t.Errorf("Unexpected mark read calls: %v", service.markReadCalls)
	}
}

func TestChatEndpointsRequireIdentity(t *testing.T) {
	app := fiber.New()
	handler := NewChatHandler(&stubMessagingService{}, chatws.NewHub(nil), "test-secret")
	app.Get("/conversations", handler.ListConversations)

	resp, err := app.Test(httptest.NewRequest("GET", "/conversations", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", resp.StatusCode)
	}
}
