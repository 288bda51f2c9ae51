package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/feeds"
	"github.com/mirrelia/tweet-relay-bot/internal/modules/history/domain"
	historyRepo "github.com/mirrelia/tweet-relay-bot/internal/modules/history/repository"
	streamDomain "github.com/mirrelia/tweet-relay-bot/internal/modules/stream/domain"
)

const feedLimit = 50

// Service records relayed posts and builds per-channel RSS feeds from them
type Service struct {
	repo historyRepo.Repository
}

// New creates a relay history service
func New(repo historyRepo.Repository) *Service {
	return &Service{repo: repo}
}

// Record stores one delivered post. Failures are logged, not propagated:
// history is best effort and must never hold up delivery.
func (s *Service) Record(ctx context.Context, channelID int64, post streamDomain.Post, link string) {
	relayed := &domain.RelayedPost{
		ChannelID:    channelID,
		PostID:       post.ID,
		AuthorHandle: post.AuthorHandle,
		Text:         post.Text,
		Link:         link,
		RelayedAt:    time.Now(),
	}
	if err := s.repo.Save(ctx, relayed); err != nil {
		slog.Error("Failed to record relayed post", "channel_id", channelID, "post_id", post.ID, "error", err)
	}
}

// Feed builds an RSS feed of the channel's recently relayed posts
func (s *Service) Feed(ctx context.Context, channelID int64, baseURL string) (*feeds.Feed, error) {
	posts, err := s.repo.Recent(ctx, channelID, feedLimit)
	if err != nil {
		return nil, err
	}

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("Relayed posts for channel %d", channelID),
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/feed/%d", baseURL, channelID)},
		Description: "Posts forwarded into this channel by the relay bot",
		Updated:     time.Now(),
	}

	for _, post := range posts {
		feed.Items = append(feed.Items, &feeds.Item{
			Title:       truncate(post.Text, 100),
			Link:        &feeds.Link{Href: post.Link},
			Description: post.Text,
			Author:      &feeds.Author{Name: post.AuthorHandle},
			Created:     post.RelayedAt,
			Id:          fmt.Sprintf("%d-%d", post.ChannelID, post.PostID),
		})
	}

	return feed, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
