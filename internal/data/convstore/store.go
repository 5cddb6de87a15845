// Package convstore keeps doubt-solver conversations: an in-process map for
// single-instance deployments and a Redis-backed store with expiry.
package convstore

import (
	"context"
	"time"

	"github.com/yungbote/studydesk-backend/internal/stream"
)

// Record is one persisted conversation.
type Record struct {
	ID        string               `json:"id"`
	OwnerID   string               `json:"owner_id"`
	Title     string               `json:"title"`
	Notes     string               `json:"notes,omitempty"`
	Messages  []stream.ChatMessage `json:"messages"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// Summary is a Record without its messages.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (r *Record) Summary() Summary {
	return Summary{
		ID:           r.ID,
		Title:        r.Title,
		MessageCount: len(r.Messages),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type Store interface {
	Save(ctx context.Context, rec *Record) error
	// Get returns apperr.ErrNotFound for unknown or foreign conversations.
	Get(ctx context.Context, ownerID, id string) (*Record, error)
	// List returns summaries, most recently updated first.
	List(ctx context.Context, ownerID string) ([]Summary, error)
	Delete(ctx context.Context, ownerID, id string) error
	Ping(ctx context.Context) error
	Close() error
}
