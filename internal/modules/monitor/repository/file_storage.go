package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/mirrelia/tweet-relay-bot/internal/modules/monitor/domain"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// FileStorage persists monitors as one JSON file per channel under
// <basePath>/monitors. Good enough for a single-node bot with low churn.
type FileStorage struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStorage creates a file-backed monitor repository
func NewFileStorage(basePath string) (*FileStorage, error) {
	dir := filepath.Join(basePath, "monitors")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, oops.With("path", dir).Wrapf(err, "failed to create monitors directory")
	}
	return &FileStorage{basePath: basePath}, nil
}

func (s *FileStorage) channelPath(channelID int64) string {
	return filepath.Join(s.basePath, "monitors", strconv.FormatInt(channelID, 10)+".json")
}

func (s *FileStorage) readChannel(channelID int64) ([]domain.Monitor, error) {
	data, err := os.ReadFile(s.channelPath(channelID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, oops.With("channel_id", channelID).Wrapf(err, "failed to read monitors file")
	}

	var monitors []domain.Monitor
	if err := json.Unmarshal(data, &monitors); err != nil {
		return nil, oops.With("channel_id", channelID).Wrapf(err, "failed to unmarshal monitors file")
	}
	return monitors, nil
}

func (s *FileStorage) writeChannel(channelID int64, monitors []domain.Monitor) error {
	path := s.channelPath(channelID)
	if len(monitors) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return oops.With("channel_id", channelID).Wrapf(err, "failed to remove monitors file")
		}
		return nil
	}

	data, err := json.MarshalIndent(monitors, "", "  ")
	if err != nil {
		return oops.With("channel_id", channelID).Wrapf(err, "failed to marshal monitors")
	}
	return os.WriteFile(path, data, 0644)
}

// SelectAll returns every monitor across all channels
func (s *FileStorage) SelectAll(ctx context.Context) ([]domain.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := filepath.Join(s.basePath, "monitors")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, oops.With("path", dir).Wrapf(err, "failed to read monitors directory")
	}

	var all []domain.Monitor
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}

		var monitors []domain.Monitor
		if err := json.Unmarshal(data, &monitors); err != nil {
			continue
		}
		all = append(all, monitors...)
	}

	return all, nil
}

// SelectByKey returns the monitor for the (channel, account) pair, or ErrNotRegistered
func (s *FileStorage) SelectByKey(ctx context.Context, channelID, accountID int64) (*domain.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	monitors, err := s.readChannel(channelID)
	if err != nil {
		return nil, err
	}

	monitor, found := lo.Find(monitors, func(m domain.Monitor) bool {
		return m.AccountID == accountID
	})
	if !found {
		return nil, domain.ErrNotRegistered
	}
	return &monitor, nil
}

// Insert adds a monitor, rejecting duplicates of the (channel, account) key
func (s *FileStorage) Insert(ctx context.Context, monitor *domain.Monitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	monitors, err := s.readChannel(monitor.ChannelID)
	if err != nil {
		return err
	}

	if lo.ContainsBy(monitors, func(m domain.Monitor) bool {
		return m.AccountID == monitor.AccountID
	}) {
		return fmt.Errorf("monitor (%d, %d): %w", monitor.ChannelID, monitor.AccountID, domain.ErrAlreadyRegistered)
	}

	monitors = append(monitors, *monitor)
	return s.writeChannel(monitor.ChannelID, monitors)
}

// Delete removes the monitor for the (channel, account) pair
func (s *FileStorage) Delete(ctx context.Context, channelID, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	monitors, err := s.readChannel(channelID)
	if err != nil {
		return err
	}

	remaining := lo.Reject(monitors, func(m domain.Monitor, _ int) bool {
		return m.AccountID == accountID
	})
	if len(remaining) == len(monitors) {
		return fmt.Errorf("monitor (%d, %d): %w", channelID, accountID, domain.ErrNotRegistered)
	}

	return s.writeChannel(channelID, remaining)
}
