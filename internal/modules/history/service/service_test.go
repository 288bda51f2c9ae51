package service

import (
	"context"
	"strings"
	"testing"

	"github.com/mirrelia/tweet-relay-bot/internal/modules/history/repository"
	streamDomain "github.com/mirrelia/tweet-relay-bot/internal/modules/stream/domain"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	repo, err := repository.NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage() error = %v", err)
	}
	return New(repo)
}

func TestRecordAndFeed(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	post := streamDomain.Post{
		ID:           900001,
		AuthorID:     42,
		AuthorHandle: "alice",
		Text:         "a fine tweet",
	}
	svc.Record(ctx, 100, post, "https://twitter.com/alice/status/900001")

	feed, err := svc.Feed(ctx, 100, "http://localhost:8080")
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}

	if feed.Link.Href != "http://localhost:8080/feed/100" {
		t.Errorf("feed link = %q", feed.Link.Href)
	}
	if len(feed.Items) != 1 {
		t.Fatalf("feed has %d items, want 1", len(feed.Items))
	}

	item := feed.Items[0]
	if item.Title != "a fine tweet" {
		t.Errorf("item title = %q", item.Title)
	}
	if item.Link.Href != "https://twitter.com/alice/status/900001" {
		t.Errorf("item link = %q", item.Link.Href)
	}
	if item.Author.Name != "alice" {
		t.Errorf("item author = %q", item.Author.Name)
	}
	if item.Id != "100-900001" {
		t.Errorf("item id = %q", item.Id)
	}
}

func TestFeedEmptyChannel(t *testing.T) {
	svc := newTestService(t)

	feed, err := svc.Feed(context.Background(), 100, "http://localhost:8080")
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if len(feed.Items) != 0 {
		t.Errorf("feed has %d items, want 0", len(feed.Items))
	}
}

func TestFeedTruncatesLongTitles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	long := strings.Repeat("x", 150)
	svc.Record(ctx, 100, streamDomain.Post{ID: 1, AuthorHandle: "alice", Text: long}, "https://example.com")

	feed, err := svc.Feed(ctx, 100, "http://localhost:8080")
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if len(feed.Items) != 1 {
		t.Fatalf("feed has %d items, want 1", len(feed.Items))
	}

	item := feed.Items[0]
	if len(item.Title) != 103 || !strings.HasSuffix(item.Title, "...") {
		t.Errorf("title len = %d, want 100 chars plus ellipsis", len(item.Title))
	}
	if item.Description != long {
		t.Error("description must keep the full text")
	}
}
