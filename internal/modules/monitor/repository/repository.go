package repository

import (
	"context"

	"github.com/mirrelia/tweet-relay-bot/internal/modules/monitor/domain"
)

// Repository defines the interface for monitor persistence.
// This abstraction allows easy replacement of storage implementations
// (FileStorage for single-node setups, PostgresStorage for shared ones).
type Repository interface {
	SelectAll(ctx context.Context) ([]domain.Monitor, error)
	SelectByKey(ctx context.Context, channelID, accountID int64) (*domain.Monitor, error)
	Insert(ctx context.Context, monitor *domain.Monitor) error
	Delete(ctx context.Context, channelID, accountID int64) error
}
