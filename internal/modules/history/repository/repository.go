package repository

import (
	"context"

	"github.com/mirrelia/tweet-relay-bot/internal/modules/history/domain"
)

// Repository defines the interface for relay history persistence
type Repository interface {
	Save(ctx context.Context, post *domain.RelayedPost) error
	Recent(ctx context.Context, channelID int64, limit int) ([]*domain.RelayedPost, error)
}
