package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/mirrelia/tweet-relay-bot/internal/modules/history/domain"
	"github.com/samber/oops"
)

// FileStorage keeps relayed posts as one JSON file per post under
// <basePath>/relayed/<channelID>/.
type FileStorage struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStorage creates a file-backed relay history repository
func NewFileStorage(basePath string) (*FileStorage, error) {
	dir := filepath.Join(basePath, "relayed")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, oops.With("path", dir).Wrapf(err, "failed to create relay history directory")
	}
	return &FileStorage{basePath: basePath}, nil
}

// Save stores one relayed post
func (s *FileStorage) Save(ctx context.Context, post *domain.RelayedPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.basePath, "relayed", strconv.FormatInt(post.ChannelID, 10))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return oops.With("channel_id", post.ChannelID).Wrapf(err, "failed to create channel history directory")
	}

	data, err := json.MarshalIndent(post, "", "  ")
	if err != nil {
		return oops.Wrapf(err, "failed to marshal relayed post")
	}

	path := filepath.Join(dir, fmt.Sprintf("%d.json", post.PostID))
	return os.WriteFile(path, data, 0644)
}

// Recent returns up to limit relayed posts for the channel, newest first
func (s *FileStorage) Recent(ctx context.Context, channelID int64, limit int) ([]*domain.RelayedPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := filepath.Join(s.basePath, "relayed", strconv.FormatInt(channelID, 10))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*domain.RelayedPost{}, nil
		}
		return nil, oops.With("channel_id", channelID).Wrapf(err, "failed to read channel history directory")
	}

	var posts []*domain.RelayedPost
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}

		var post domain.RelayedPost
		if err := json.Unmarshal(data, &post); err != nil {
			continue
		}
		posts = append(posts, &post)
	}

	sort.Slice(posts, func(i, j int) bool {
		return posts[i].RelayedAt.After(posts[j].RelayedAt)
	})
	if len(posts) > limit {
		posts = posts[:limit]
	}

	return posts, nil
}
