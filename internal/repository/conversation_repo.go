package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Lwazi-M/studyconnect-2.0/internal/models"
	"github.com/Lwazi-M/studyconnect-2.0/internal/store"
)

// ConversationRepository is the Postgres conversation store. Appends take a
// row lock on the conversation, which linearizes the message log per
// conversation.
type ConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) CreateConversation(
	ctx context.Context,
	kind string,
	title *string,
	participantIDs []int64,
) (*models.Conversation, error) {
	unique := make(map[int64]struct{}, len(participantIDs))
	for _, id := range participantIDs {
		if id > 0 {
			unique[id] = struct{}{}
		}
	}
	if len(unique) < 2 {
		return nil, store.ErrInvalidParticipants
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var conversation models.Conversation
	err = tx.QueryRow(ctx, `
		INSERT INTO conversations (kind, title)
		VALUES ($1, $2)
		RETURNING id, kind, title, created_at, updated_at
	`, kind, title).Scan(
		&conversation.ID,
		&conversation.Kind,
		&conversation.Title,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for id := range unique {
		if _, err := tx.Exec(ctx, `
			INSERT INTO conversation_participants (conversation_id, peer_id)
			VALUES ($1, $2)
		`, conversation.ID, id); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	conversation.ParticipantIDs = sortedIDs(unique)
	return &conversation, nil
}

func (r *ConversationRepository) GetForParticipant(
	ctx context.Context,
	conversationID, peerID int64,
) (*models.Conversation, error) {
	query := `
		SELECT c.id, c.kind, c.title, c.created_at, c.updated_at,
			ARRAY(
				SELECT peer_id FROM conversation_participants
				WHERE conversation_id = c.id
				ORDER BY peer_id
			)
		FROM conversations c
		WHERE c.id = $1
		  AND EXISTS (
			SELECT 1 FROM conversation_participants
			WHERE conversation_id = c.id AND peer_id = $2
		  )
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, conversationID, peerID).Scan(
		&conversation.ID,
		&conversation.Kind,
		&conversation.Title,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
		&conversation.ParticipantIDs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &conversation, nil
}

func (r *ConversationRepository) AppendMessage(
	ctx context.Context,
	conversationID, senderID int64,
	body string,
) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, store.ErrEmptyBody
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// The row lock makes appends within one conversation a single-writer
	// critical section.
	var kind string
	err = tx.QueryRow(ctx, `
		SELECT kind FROM conversations WHERE id = $1 FOR UPDATE
	`, conversationID).Scan(&kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	var isParticipant bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM conversation_participants
			WHERE conversation_id = $1 AND peer_id = $2
		)
	`, conversationID, senderID).Scan(&isParticipant)
	if err != nil {
		return nil, err
	}
	if !isParticipant {
		return nil, store.ErrNotAParticipant
	}

	var message models.Message
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, sender_id, body, created_at)
		VALUES ($1, $2, $3, GREATEST(
			NOW(),
			COALESCE((SELECT MAX(created_at) FROM messages WHERE conversation_id = $1), NOW())
		))
		RETURNING id, conversation_id, sender_id, body, created_at
	`, conversationID, senderID, body).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.Body,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE conversations SET updated_at = $2 WHERE id = $1
	`, conversationID, message.CreatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	message.ReadBy = []int64{}
	return &message, nil
}

func (r *ConversationRepository) ListMessages(
	ctx context.Context,
	conversationID int64,
	limit, offset int,
) ([]models.Message, int, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM conversations WHERE id = $1)
	`, conversationID).Scan(&exists)
	if err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0, store.ErrNotFound
	}

	var total int
	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages WHERE conversation_id = $1
	`, conversationID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT m.id, m.conversation_id, m.sender_id, m.body, m.created_at,
			ARRAY(
				SELECT rm.peer_id FROM read_markers rm
				WHERE rm.conversation_id = m.conversation_id
				  AND rm.peer_id <> m.sender_id
				  AND rm.last_read_id >= m.id
				ORDER BY rm.peer_id
			)
		FROM messages m
		WHERE m.conversation_id = $1
		ORDER BY m.created_at ASC, m.id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var message models.Message
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.SenderID,
			&message.Body,
			&message.CreatedAt,
			&message.ReadBy,
		); err != nil {
			return nil, 0, err
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func (r *ConversationRepository) ListForPeer(
	ctx context.Context,
	peerID int64,
) ([]models.ConversationSummary, error) {
	query := `
		SELECT
			c.id, c.kind, c.title, c.created_at, c.updated_at,
			ARRAY(
				SELECT peer_id FROM conversation_participants
				WHERE conversation_id = c.id
				ORDER BY peer_id
			),
			lm.id, lm.sender_id, lm.body, lm.created_at,
			COALESCE(uc.unread_count, 0)
		FROM conversations c
		JOIN conversation_participants cp
			ON cp.conversation_id = c.id AND cp.peer_id = $1
		LEFT JOIN LATERAL (
			SELECT id, sender_id, body, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread_count
			FROM messages m
			WHERE m.conversation_id = c.id
			  AND m.sender_id <> $1
			  AND m.id > COALESCE((
				SELECT last_read_id FROM read_markers
				WHERE conversation_id = c.id AND peer_id = $1
			  ), 0)
		) uc ON TRUE
		ORDER BY COALESCE(lm.created_at, c.created_at) DESC, c.id ASC
	`

	rows, err := r.db.Query(ctx, query, peerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var summary models.ConversationSummary
		var messageID sql.NullInt64
		var messageSenderID sql.NullInt64
		var messageBody sql.NullString
		var messageCreatedAt sql.NullTime

		if err := rows.Scan(
			&summary.ID,
			&summary.Kind,
			&summary.Title,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&summary.ParticipantIDs,
			&messageID,
			&messageSenderID,
			&messageBody,
			&messageCreatedAt,
			&summary.UnreadCount,
		); err != nil {
			return nil, err
		}

		if messageID.Valid {
			summary.LastMessage = &models.Message{
				ID:             messageID.Int64,
				ConversationID: summary.ID,
				SenderID:       messageSenderID.Int64,
				Body:           messageBody.String,
				CreatedAt:      messageCreatedAt.Time,
			}
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *ConversationRepository) MarkRead(
	ctx context.Context,
	conversationID, peerID, uptoMessageID int64,
) error {
	_, err := r.GetForParticipant(ctx, conversationID, peerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Distinguish a missing conversation from a non-member.
			var exists bool
			checkErr := r.db.QueryRow(ctx, `
				SELECT EXISTS (SELECT 1 FROM conversations WHERE id = $1)
			`, conversationID).Scan(&exists)
			if checkErr != nil {
				return checkErr
			}
			if exists {
				return store.ErrNotAParticipant
			}
			return store.ErrNotFound
		}
		return err
	}

	// GREATEST keeps the marker monotonic; a regression is a silent no-op.
	_, err = r.db.Exec(ctx, `
		INSERT INTO read_markers (conversation_id, peer_id, last_read_id)
		VALUES ($1, $2, LEAST($3, (
			SELECT COALESCE(MAX(id), 0) FROM messages WHERE conversation_id = $1
		)))
		ON CONFLICT (conversation_id, peer_id)
		DO UPDATE SET last_read_id = GREATEST(read_markers.last_read_id, EXCLUDED.last_read_id)
	`, conversationID, peerID, uptoMessageID)
	return err
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
