package repository

import (
	"context"
	"errors"

	"chat_roster_service/internal/roster/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ErrMessageNotFound no message row for the given id
var ErrMessageNotFound = errors.New("message not found")

// BulkReadRepository definition the bulk reads feeding the roster build
type BulkReadRepository interface {
	ListMemberships(ctx context.Context, userID string) ([]domain.Membership, error)
	ListParticipants(ctx context.Context, conversationIDs []string) ([]domain.Membership, error)
	ConversationNames(ctx context.Context, conversationIDs []string) (map[string]string, error)
	LatestMessagePerConversation(ctx context.Context, conversationIDs []string) ([]domain.MessageSummary, error)
	ReceiptsForMessages(ctx context.Context, messageIDs, recipientIDs []string) ([]domain.ReceiptRecord, error)
	PresenceForUsers(ctx context.Context, userIDs []string) ([]domain.PresenceRecord, error)
	// FindMessage single row lookup, used to resolve the conversation and
	// sender a receipt event refers to when the message index has no entry
	FindMessage(ctx context.Context, messageID string) (*domain.MessageSummary, error)
}

type bulkReadRepository struct {
	db *pgxpool.Pool
}

// NewBulkReadRepository create a BulkReadRepository
func NewBulkReadRepository(db *pgxpool.Pool) BulkReadRepository {
	return &bulkReadRepository{db: db}
}

func (r *bulkReadRepository) ListMemberships(ctx context.Context, userID string) ([]domain.Membership, error) {
	rows, err := r.db.Query(ctx,
		"SELECT conversation_id, user_id, role, EXTRACT(EPOCH FROM joined_at)::bigint FROM membership WHERE user_id = $1",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMemberships(rows)
}

func (r *bulkReadRepository) ListParticipants(ctx context.Context, conversationIDs []string) ([]domain.Membership, error) {
	rows, err := r.db.Query(ctx,
		"SELECT conversation_id, user_id, role, EXTRACT(EPOCH FROM joined_at)::bigint FROM membership WHERE conversation_id = ANY($1)",
		conversationIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMemberships(rows)
}

func (r *bulkReadRepository) ConversationNames(ctx context.Context, conversationIDs []string) (map[string]string, error) {
	rows, err := r.db.Query(ctx,
		"SELECT id, COALESCE(name, '') FROM conversation WHERE id = ANY($1)",
		conversationIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

func (r *bulkReadRepository) LatestMessagePerConversation(ctx context.Context, conversationIDs []string) ([]domain.MessageSummary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT ON (conversation_id)
			id, conversation_id, sender_id, body, EXTRACT(EPOCH FROM created_at)::bigint
		FROM message
		WHERE conversation_id = ANY($1)
		ORDER BY conversation_id, created_at DESC`,
		conversationIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.MessageSummary
	for rows.Next() {
		var m domain.MessageSummary
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *bulkReadRepository) ReceiptsForMessages(ctx context.Context, messageIDs, recipientIDs []string) ([]domain.ReceiptRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT message_id, user_id,
			EXTRACT(EPOCH FROM delivered_at)::bigint, EXTRACT(EPOCH FROM read_at)::bigint
		FROM receipt
		WHERE message_id = ANY($1) AND user_id = ANY($2)`,
		messageIDs, recipientIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.ReceiptRecord
	for rows.Next() {
		var rec domain.ReceiptRecord
		if err := rows.Scan(&rec.MessageID, &rec.UserID, &rec.DeliveredAt, &rec.ReadAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *bulkReadRepository) PresenceForUsers(ctx context.Context, userIDs []string) ([]domain.PresenceRecord, error) {
	rows, err := r.db.Query(ctx,
		"SELECT user_id, status, EXTRACT(EPOCH FROM updated_at)::bigint FROM presence WHERE user_id = ANY($1)",
		userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.PresenceRecord
	for rows.Next() {
		var rec domain.PresenceRecord
		if err := rows.Scan(&rec.UserID, &rec.Status, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *bulkReadRepository) FindMessage(ctx context.Context, messageID string) (*domain.MessageSummary, error) {
	var m domain.MessageSummary
	err := r.db.QueryRow(ctx,
		"SELECT id, conversation_id, sender_id, body, EXTRACT(EPOCH FROM created_at)::bigint FROM message WHERE id = $1",
		messageID).Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func scanMemberships(rows pgx.Rows) ([]domain.Membership, error) {
	var ms []domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.ConversationID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return ms, rows.Err()
}
