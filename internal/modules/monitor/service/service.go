package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/mirrelia/tweet-relay-bot/internal/modules/monitor/domain"
	monitorRepo "github.com/mirrelia/tweet-relay-bot/internal/modules/monitor/repository"
	streamDomain "github.com/mirrelia/tweet-relay-bot/internal/modules/stream/domain"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// Rebuilder reconciles the upstream subscription with the registry after a
// mutation. Implemented by the stream connection manager.
type Rebuilder interface {
	Rebuild(ctx context.Context) error
}

// Watched is a monitor annotated with the account's current handle, for
// display to users.
type Watched struct {
	Monitor domain.Monitor
	Handle  string
}

// Service implements the add/remove/list command surface over the monitor
// registry. Every successful mutation triggers a subscription rebuild.
type Service struct {
	repo      monitorRepo.Repository
	directory streamDomain.Directory
	rebuilder Rebuilder
}

// New creates a monitor service
func New(repo monitorRepo.Repository, directory streamDomain.Directory, rebuilder Rebuilder) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		rebuilder: rebuilder,
	}
}

// Add registers a watch on the account for the channel. The handle is
// resolved to its stable numeric id first; the id is what gets persisted.
// Fails with ErrAccountNotFound, ErrInvalidPattern or ErrAlreadyRegistered.
func (s *Service) Add(ctx context.Context, channelID int64, handle, pattern string) (*domain.Monitor, error) {
	handle = strings.TrimPrefix(handle, "@")

	accountID, err := s.resolve(ctx, handle)
	if err != nil {
		return nil, err
	}

	if pattern != "" {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, domain.ErrInvalidPattern)
		}
	}

	switch _, err := s.repo.SelectByKey(ctx, channelID, accountID); {
	case err == nil:
		return nil, fmt.Errorf("account %q: %w", handle, domain.ErrAlreadyRegistered)
	case !errors.Is(err, domain.ErrNotRegistered):
		return nil, err
	}

	monitor := &domain.Monitor{
		ChannelID:    channelID,
		AccountID:    accountID,
		MatchPattern: pattern,
		AddedAt:      time.Now(),
	}
	if err := s.repo.Insert(ctx, monitor); err != nil {
		// Registry failure aborts before the rebuild: the subscription stays
		// consistent with the rows actually stored.
		return nil, err
	}

	slog.Info("Monitor added", "channel_id", channelID, "account_id", accountID, "handle", handle)

	if err := s.rebuilder.Rebuild(ctx); err != nil {
		return nil, oops.With("channel_id", channelID, "account_id", accountID).Wrapf(err, "monitor stored but subscription rebuild failed")
	}
	return monitor, nil
}

// Remove deletes the watch on the account for the channel. Fails with
// ErrAccountNotFound (unknown handle) or ErrNotRegistered (no such watch).
func (s *Service) Remove(ctx context.Context, channelID int64, handle string) error {
	handle = strings.TrimPrefix(handle, "@")

	accountID, err := s.resolve(ctx, handle)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, channelID, accountID); err != nil {
		return err
	}

	slog.Info("Monitor removed", "channel_id", channelID, "account_id", accountID, "handle", handle)

	if err := s.rebuilder.Rebuild(ctx); err != nil {
		return oops.With("channel_id", channelID, "account_id", accountID).Wrapf(err, "monitor removed but subscription rebuild failed")
	}
	return nil
}

// resolve maps a handle to its account id, translating the directory's
// unknown-account error into the monitor domain's sentinel.
func (s *Service) resolve(ctx context.Context, handle string) (int64, error) {
	accountID, err := s.directory.ResolveHandle(ctx, handle)
	if errors.Is(err, streamDomain.ErrUnknownAccount) {
		return 0, fmt.Errorf("account %q: %w", handle, domain.ErrAccountNotFound)
	}
	if err != nil {
		return 0, oops.With("handle", handle).Wrapf(err, "handle resolution failed")
	}
	return accountID, nil
}

// List returns the channel's monitors annotated with resolved handles. An
// account whose handle can no longer be resolved is listed by its numeric id.
func (s *Service) List(ctx context.Context, channelID int64) ([]Watched, error) {
	monitors, err := s.repo.SelectAll(ctx)
	if err != nil {
		return nil, err
	}

	forChannel := lo.Filter(monitors, func(m domain.Monitor, _ int) bool {
		return m.ChannelID == channelID
	})

	watched := make([]Watched, 0, len(forChannel))
	for _, m := range forChannel {
		handle, err := s.directory.LookupHandle(ctx, m.AccountID)
		if err != nil {
			slog.Warn("Failed to look up handle", "account_id", m.AccountID, "error", err)
			handle = fmt.Sprintf("#%d", m.AccountID)
		}
		watched = append(watched, Watched{Monitor: m, Handle: handle})
	}

	return watched, nil
}
