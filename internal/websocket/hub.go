package chatws

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/Lwazi-M/studyconnect-2.0/internal/services"
	websocket "github.com/gofiber/contrib/websocket"
)

type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *delivery
	presence   presenceSetter
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	peerID string
	send   chan []byte
}

type messenger interface {
	SendMessage(ctx context.Context, actorID int64, conversationID int64, body string) (*services.MessageDelivery, error)
	MarkRead(ctx context.Context, actorID int64, conversationID int64, uptoMessageID int64) error
}

// presenceSetter flips a peer's online flag as sockets come and go.
type presenceSetter interface {
	SetPresence(ctx context.Context, peerID int64, online bool) error
}

type Message struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Body           string `json:"body"`
	Timestamp      string `json:"timestamp"`
}

type delivery struct {
	message    *Message
	recipients []string
}

func NewHub(presence presenceSetter) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *delivery, 64),
		presence:   presence,
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, peerID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		peerID: peerID,
		send:   make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.peerID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.peerID] = set
				h.setOnline(client.peerID, true)
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.peerID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, client.peerID)
				h.setOnline(client.peerID, false)
			}
		case d := <-h.broadcast:
			h.deliver(d)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Deliver fans a message out to the sender's and every recipient's open
// sockets.
func (h *Hub) Deliver(message *Message, recipientIDs []int64) {
	recipients := make([]string, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		recipients = append(recipients, strconv.FormatInt(id, 10))
	}
	h.broadcast <- &delivery{message: message, recipients: recipients}
}

func (h *Hub) setOnline(peerID string, online bool) {
	if h.presence == nil {
		return
	}
	id, err := strconv.ParseInt(peerID, 10, 64)
	if err != nil {
		return
	}
	if err := h.presence.SetPresence(context.Background(), id, online); err != nil {
		log.Printf("chat hub set presence %s: %v", peerID, err)
	}
}

func (h *Hub) deliver(d *delivery) {
	encoded, err := json.Marshal(d.message)
	if err != nil {
		log.Printf("chat hub encode message: %v", err)
		return
	}

	h.sendToPeer(d.message.SenderID, encoded)
	for _, recipient := range d.recipients {
		if recipient != d.message.SenderID {
			h.sendToPeer(recipient, encoded)
		}
	}
}

func (h *Hub) sendToPeer(peerID string, payload []byte) {
	set, ok := h.clients[peerID]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- payload:
		default:
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, peerID)
	}
}

func (c *Client) ReadPump(service messenger) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	actorID, err := strconv.ParseInt(c.peerID, 10, 64)
	if err != nil {
		writeError(c, "invalid peer")
		return
	}

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming struct {
			Type           string `json:"type"`
			ConversationID string `json:"conversation_id"`
			Body           string `json:"body"`
			UptoMessageID  string `json:"upto_message_id"`
		}
		if err := json.Unmarshal(payload, &incoming); err != nil {
			writeError(c, "invalid message payload")
			continue
		}

		conversationID, err := strconv.ParseInt(incoming.ConversationID, 10, 64)
		if err != nil || conversationID <= 0 {
			writeError(c, "invalid conversation id")
			continue
		}

		switch incoming.Type {
		case "message":
			delivered, err := service.SendMessage(context.Background(), actorID, conversationID, incoming.Body)
			if err != nil {
				writeError(c, "failed to send message")
				continue
			}

			c.hub.Deliver(&Message{
				Type:           "message",
				ConversationID: strconv.FormatInt(delivered.Message.ConversationID, 10),
				SenderID:       strconv.FormatInt(delivered.Message.SenderID, 10),
				Body:           delivered.Message.Body,
				Timestamp:      services.FormatChatTimestamp(delivered.Message.CreatedAt),
			}, delivered.RecipientIDs)
		case "read":
			uptoMessageID, err := strconv.ParseInt(incoming.UptoMessageID, 10, 64)
			if err != nil || uptoMessageID <= 0 {
				writeError(c, "invalid message id")
				continue
			}
			if err := service.MarkRead(context.Background(), actorID, conversationID, uptoMessageID); err != nil {
				writeError(c, "failed to mark read")
			}
		default:
			writeError(c, "unsupported message type")
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func writeError(client *Client, message string) {
	payload, err := json.Marshal(Message{
		Type:      "error",
		Body:      message,
		Timestamp: services.FormatChatTimestamp(time.Now().UTC()),
	})
	if err != nil {
		return
	}
	select {
	case client.send <- payload:
	default:
	}
}
