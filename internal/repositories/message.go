package repositories

import (
	"context"
	"fmt"

	"heistctf/internal/apperr"
	"heistctf/internal/models"

	"github.com/jmoiron/sqlx"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	ForUser(ctx context.Context, userID int) ([]models.Message, error)
	MarkRead(ctx context.Context, messageID int64, recipientID int) error
}

type messageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	query := `INSERT INTO messages (sender_id, recipient_id, kind, content) VALUES (?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, msg.SenderID, msg.RecipientID, msg.Kind, msg.Content)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get message ID: %w", err)
	}
	msg.ID = id
	return nil
}

func (r *messageRepository) ForUser(ctx context.Context, userID int) ([]models.Message, error) {
	query := `SELECT id, sender_id, recipient_id, kind, content, is_read, created_at
              FROM messages
              WHERE recipient_id = ? OR sender_id = ? OR kind IN ('broadcast', 'system')
              ORDER BY created_at DESC
              LIMIT 200`

	msgs := []models.Message{}
	if err := r.db.SelectContext(ctx, &msgs, query, userID, userID); err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return msgs, nil
}

// MarkRead flags the message as read. Only the recipient can do it; anyone
// else gets a not-found rather than a hint the message exists.
func (r *messageRepository) MarkRead(ctx context.Context, messageID int64, recipientID int) error {
	query := `UPDATE messages SET is_read = 1 WHERE id = ? AND recipient_id = ?`

	result, err := r.db.ExecContext(ctx, query, messageID, recipientID)
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return apperr.New(apperr.KindNotFound, "message not found: %d", messageID)
	}
	return nil
}
