package models

import (
	"errors"
	"strings"
	"time"
)

const (
	MessagePrivate   = "private"
	MessageBroadcast = "broadcast"
	MessageSystem    = "system"
)

// Message shares the persistence layer but carries no scoring logic.
type Message struct {
	ID          int64     `db:"id" json:"id"`
	SenderID    *int      `db:"sender_id" json:"sender_id,omitempty"`
	RecipientID *int      `db:"recipient_id" json:"recipient_id,omitempty"`
	Kind        string    `db:"kind" json:"kind"`
	Content     string    `db:"content" json:"content"`
	IsRead      bool      `db:"is_read" json:"is_read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type SendMessageRequest struct {
	RecipientID *int   `json:"recipient_id"`
	Kind        string `json:"kind"`
	Content     string `json:"content" binding:"required"`
}

func (r *SendMessageRequest) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return errors.New("message content cannot be empty")
	}
	switch r.Kind {
	case "", MessagePrivate, MessageBroadcast:
	default:
		return errors.New("kind must be private or broadcast")
	}
	if (r.Kind == "" || r.Kind == MessagePrivate) && r.RecipientID == nil {
		return errors.New("private messages require a recipient")
	}
	return nil
}
