package store

import (
	"context"
	"errors"

	"burn.note/internal/models"
)

var ErrNotFound = errors.New("message not found")

// Store is the persistence collaborator for messages and their responses.
// Records past their expiry read as ErrNotFound; backends reclaim them
// lazily or via their own sweep, callers never see an expired record.
type Store interface {
	SaveMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	UpdateMessage(ctx context.Context, msg *models.Message) error

	// DeleteMessage removes the message and every response referencing it as
	// one failure-atomic unit: either both are gone or both remain. Returns
	// ErrNotFound when the message does not exist (or was already deleted).
	DeleteMessage(ctx context.Context, id string) error

	// SaveResponse appends a response; ErrNotFound when the parent message
	// does not exist.
	SaveResponse(ctx context.Context, resp *models.Response) error
	ListResponses(ctx context.Context, messageID string) ([]*models.Response, error)

	Close() error
}
