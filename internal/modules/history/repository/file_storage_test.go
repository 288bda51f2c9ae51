package repository

import (
	"context"
	"testing"
	"time"

	"github.com/mirrelia/tweet-relay-bot/internal/modules/history/domain"
)

func newTestStorage(t *testing.T) *FileStorage {
	t.Helper()
	storage, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage() error = %v", err)
	}
	return storage
}

func TestSaveAndRecent(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	base := time.Now().Truncate(time.Second)
	posts := []*domain.RelayedPost{
		{ChannelID: 100, PostID: 1, AuthorHandle: "alice", Text: "oldest", RelayedAt: base.Add(-2 * time.Hour)},
		{ChannelID: 100, PostID: 2, AuthorHandle: "alice", Text: "middle", RelayedAt: base.Add(-time.Hour)},
		{ChannelID: 100, PostID: 3, AuthorHandle: "bob", Text: "newest", RelayedAt: base},
	}
	for _, p := range posts {
		if err := storage.Save(ctx, p); err != nil {
			t.Fatalf("Save(%d) error = %v", p.PostID, err)
		}
	}

	recent, err := storage.Recent(ctx, 100, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("Recent() returned %d posts, want 3", len(recent))
	}
	if recent[0].PostID != 3 || recent[2].PostID != 1 {
		t.Errorf("Recent() order = [%d %d %d], want newest first [3 2 1]",
			recent[0].PostID, recent[1].PostID, recent[2].PostID)
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	base := time.Now()
	for i := range 5 {
		post := &domain.RelayedPost{
			ChannelID: 100,
			PostID:    int64(i + 1),
			RelayedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := storage.Save(ctx, post); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	recent, err := storage.Recent(ctx, 100, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent() returned %d posts, want 2", len(recent))
	}
	if recent[0].PostID != 5 || recent[1].PostID != 4 {
		t.Errorf("Recent() = [%d %d], want [5 4]", recent[0].PostID, recent[1].PostID)
	}
}

func TestRecentUnknownChannel(t *testing.T) {
	storage := newTestStorage(t)

	recent, err := storage.Recent(context.Background(), 999, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 0 {
		t.Errorf("Recent() returned %d posts for unknown channel, want 0", len(recent))
	}
}

func TestChannelsAreIsolated(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	if err := storage.Save(ctx, &domain.RelayedPost{ChannelID: 100, PostID: 1, RelayedAt: time.Now()}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := storage.Save(ctx, &domain.RelayedPost{ChannelID: 200, PostID: 2, RelayedAt: time.Now()}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	recent, err := storage.Recent(ctx, 100, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 1 || recent[0].PostID != 1 {
		t.Errorf("Recent(100) = %+v, want only post 1", recent)
	}
}
