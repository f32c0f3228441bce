package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Lwazi-M/studyconnect-2.0/internal/models"
	"github.com/Lwazi-M/studyconnect-2.0/internal/store"
)

const peerColumns = `
	id, email, password_hash, display_name, initials, avatar_color,
	university, course, year_of_study, online, last_seen_at,
	deactivated_at, created_at, updated_at
`

type PeerRepository struct {
	db DBTX
}

func NewPeerRepository(db DBTX) *PeerRepository {
	return &PeerRepository{db: db}
}

func (r *PeerRepository) UpsertPeer(
	ctx context.Context,
	input store.UpsertPeerInput,
) (*models.Peer, error) {
	if input.ID == 0 {
		return r.insertPeer(ctx, input)
	}
	return r.updatePeer(ctx, input)
}

func (r *PeerRepository) insertPeer(
	ctx context.Context,
	input store.UpsertPeerInput,
) (*models.Peer, error) {
	query := `
		INSERT INTO peers (
			email, password_hash, display_name, initials, avatar_color,
			university, course, year_of_study
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + peerColumns

	var peer models.Peer
	err := scanPeer(r.db.QueryRow(ctx, query,
		strings.ToLower(strings.TrimSpace(input.Email)),
		input.PasswordHash,
		input.DisplayName,
		input.Initials,
		input.AvatarColor,
		input.University,
		input.Course,
		input.YearOfStudy,
	), &peer)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, store.ErrDuplicateID
		}
		return nil, err
	}
	return &peer, nil
}

func (r *PeerRepository) updatePeer(
	ctx context.Context,
	input store.UpsertPeerInput,
) (*models.Peer, error) {
	existing, err := r.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	// Email and university are immutable once registered.
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email != "" && email != existing.Email {
		return nil, store.ErrDuplicateID
	}
	if input.University != "" && !strings.EqualFold(input.University, existing.University) {
		return nil, store.ErrDuplicateID
	}

	query := `
		UPDATE peers SET
			display_name = COALESCE(NULLIF($2, ''), display_name),
			initials = COALESCE(NULLIF($3, ''), initials),
			avatar_color = COALESCE(NULLIF($4, ''), avatar_color),
			course = COALESCE(NULLIF($5, ''), course),
			year_of_study = CASE WHEN $6 > 0 THEN $6 ELSE year_of_study END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + peerColumns

	var peer models.Peer
	err = scanPeer(r.db.QueryRow(ctx, query,
		input.ID,
		input.DisplayName,
		input.Initials,
		input.AvatarColor,
		input.Course,
		input.YearOfStudy,
	), &peer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &peer, nil
}

func (r *PeerRepository) GetByID(ctx context.Context, peerID int64) (*models.Peer, error) {
	query := `SELECT ` + peerColumns + ` FROM peers WHERE id = $1`

	var peer models.Peer
	if err := scanPeer(r.db.QueryRow(ctx, query, peerID), &peer); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &peer, nil
}

func (r *PeerRepository) GetByEmail(ctx context.Context, email string) (*models.Peer, error) {
	query := `SELECT ` + peerColumns + ` FROM peers WHERE email = $1`

	var peer models.Peer
	err := scanPeer(r.db.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))), &peer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &peer, nil
}

func (r *PeerRepository) SetOnline(ctx context.Context, peerID int64, online bool) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE peers
		SET online = $2, last_seen_at = NOW()
		WHERE id = $1
	`, peerID, online)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *PeerRepository) Deactivate(ctx context.Context, peerID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE peers
		SET deactivated_at = COALESCE(deactivated_at, NOW()), online = FALSE
		WHERE id = $1
	`, peerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *PeerRepository) ListActive(ctx context.Context) ([]models.Peer, error) {
	query := `
		SELECT ` + peerColumns + `
		FROM peers
		WHERE deactivated_at IS NULL
		ORDER BY LOWER(display_name) ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	peers := make([]models.Peer, 0)
	for rows.Next() {
		var peer models.Peer
		if err := scanPeer(rows, &peer); err != nil {
			return nil, err
		}
		peers = append(peers, peer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return peers, nil
}

func scanPeer(row pgx.Row, peer *models.Peer) error {
	return row.Scan(
		&peer.ID,
		&peer.Email,
		&peer.PasswordHash,
		&peer.DisplayName,
		&peer.Initials,
		&peer.AvatarColor,
		&peer.University,
		&peer.Course,
		&peer.YearOfStudy,
		&peer.Online,
		&peer.LastSeenAt,
		&peer.DeactivatedAt,
		&peer.CreatedAt,
		&peer.UpdatedAt,
	)
}
