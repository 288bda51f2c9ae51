package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mirrelia/tweet-relay-bot/internal/modules/monitor/domain"
	"github.com/mirrelia/tweet-relay-bot/internal/modules/monitor/repository"
	streamDomain "github.com/mirrelia/tweet-relay-bot/internal/modules/stream/domain"
)

type fakeDirectory struct {
	accounts map[string]int64
}

func (d *fakeDirectory) ResolveHandle(_ context.Context, handle string) (int64, error) {
	id, ok := d.accounts[handle]
	if !ok {
		return 0, streamDomain.ErrUnknownAccount
	}
	return id, nil
}

func (d *fakeDirectory) LookupHandle(_ context.Context, accountID int64) (string, error) {
	for handle, id := range d.accounts {
		if id == accountID {
			return handle, nil
		}
	}
	return "", streamDomain.ErrUnknownAccount
}

type fakeRebuilder struct {
	calls int
	err   error
}

func (r *fakeRebuilder) Rebuild(_ context.Context) error {
	r.calls++
	return r.err
}

func newTestService(t *testing.T) (*Service, *repository.FileStorage, *fakeRebuilder) {
	t.Helper()
	repo, err := repository.NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage() error = %v", err)
	}
	directory := &fakeDirectory{accounts: map[string]int64{
		"alice":        42,
		"bob":          7,
		"moujaatumare": 10882672,
	}}
	rebuilder := &fakeRebuilder{}
	return New(repo, directory, rebuilder), repo, rebuilder
}

func TestAddResolvesHandleAndRebuilds(t *testing.T) {
	svc, repo, rebuilder := newTestService(t)
	ctx := context.Background()

	monitor, err := svc.Add(ctx, 100, "alice", "")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if monitor.AccountID != 42 || monitor.ChannelID != 100 {
		t.Errorf("monitor = %+v, want channel 100 account 42", monitor)
	}
	if rebuilder.calls != 1 {
		t.Errorf("rebuild called %d times, want 1", rebuilder.calls)
	}

	stored, err := repo.SelectByKey(ctx, 100, 42)
	if err != nil {
		t.Fatalf("SelectByKey() error = %v", err)
	}
	if stored.AccountID != 42 {
		t.Errorf("stored account id = %d, want 42", stored.AccountID)
	}
}

func TestAddTrimsAtPrefix(t *testing.T) {
	svc, _, _ := newTestService(t)

	monitor, err := svc.Add(context.Background(), 100, "@alice", "")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if monitor.AccountID != 42 {
		t.Errorf("account id = %d, want 42", monitor.AccountID)
	}
}

func TestAddDuplicateLeavesRegistryUnchanged(t *testing.T) {
	svc, repo, rebuilder := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Add(ctx, 100, "alice", "first"); err != nil {
		t.Fatalf("first Add() error = %v", err)
	}

	_, err := svc.Add(ctx, 100, "alice", "second")
	if !errors.Is(err, domain.ErrAlreadyRegistered) {
		t.Fatalf("duplicate Add() = %v, want ErrAlreadyRegistered", err)
	}

	stored, err := repo.SelectByKey(ctx, 100, 42)
	if err != nil {
		t.Fatalf("SelectByKey() error = %v", err)
	}
	if stored.MatchPattern != "first" {
		t.Errorf("stored pattern = %q, want the original %q", stored.MatchPattern, "first")
	}
	if rebuilder.calls != 1 {
		t.Errorf("rebuild called %d times, want 1 (no rebuild on failed add)", rebuilder.calls)
	}
}

func TestAddSameAccountDifferentChannels(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Add(ctx, 100, "alice", ""); err != nil {
		t.Fatalf("Add() channel 100 error = %v", err)
	}
	if _, err := svc.Add(ctx, 200, "alice", ""); err != nil {
		t.Fatalf("Add() channel 200 error = %v", err)
	}

	all, err := repo.SelectAll(ctx)
	if err != nil {
		t.Fatalf("SelectAll() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("registry has %d monitors, want 2", len(all))
	}
}

func TestAddUnknownAccount(t *testing.T) {
	svc, repo, rebuilder := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, 100, "nosuchuser", "")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("Add() = %v, want ErrAccountNotFound", err)
	}

	all, _ := repo.SelectAll(ctx)
	if len(all) != 0 {
		t.Errorf("registry has %d monitors after failed add, want 0", len(all))
	}
	if rebuilder.calls != 0 {
		t.Errorf("rebuild called %d times, want 0", rebuilder.calls)
	}
}

func TestAddInvalidPattern(t *testing.T) {
	svc, repo, rebuilder := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, 100, "alice", "(unclosed")
	if !errors.Is(err, domain.ErrInvalidPattern) {
		t.Fatalf("Add() = %v, want ErrInvalidPattern", err)
	}

	all, _ := repo.SelectAll(ctx)
	if len(all) != 0 {
		t.Errorf("registry has %d monitors after failed add, want 0", len(all))
	}
	if rebuilder.calls != 0 {
		t.Errorf("rebuild called %d times, want 0", rebuilder.calls)
	}
}

func TestRemove(t *testing.T) {
	svc, repo, rebuilder := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Add(ctx, 100, "alice", ""); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := svc.Remove(ctx, 100, "alice"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	all, _ := repo.SelectAll(ctx)
	if len(all) != 0 {
		t.Errorf("registry has %d monitors after remove, want 0", len(all))
	}
	if rebuilder.calls != 2 {
		t.Errorf("rebuild called %d times, want 2", rebuilder.calls)
	}
}

func TestRemoveNotRegistered(t *testing.T) {
	svc, _, rebuilder := newTestService(t)

	err := svc.Remove(context.Background(), 100, "alice")
	if !errors.Is(err, domain.ErrNotRegistered) {
		t.Fatalf("Remove() = %v, want ErrNotRegistered", err)
	}
	if rebuilder.calls != 0 {
		t.Errorf("rebuild called %d times, want 0", rebuilder.calls)
	}
}

func TestListAnnotatesHandles(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Add(ctx, 100, "alice", `mildom\.com`); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := svc.Add(ctx, 100, "bob", ""); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := svc.Add(ctx, 200, "alice", ""); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	watched, err := svc.List(ctx, 100)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(watched) != 2 {
		t.Fatalf("List() returned %d entries, want 2 (other channels excluded)", len(watched))
	}

	byHandle := map[string]string{}
	for _, w := range watched {
		byHandle[w.Handle] = w.Monitor.MatchPattern
	}
	if pattern, ok := byHandle["alice"]; !ok || pattern != `mildom\.com` {
		t.Errorf("alice entry = (%q, %v), want pattern mildom\\.com", pattern, ok)
	}
	if _, ok := byHandle["bob"]; !ok {
		t.Error("bob missing from list")
	}
}

func TestListFallsBackToNumericID(t *testing.T) {
	repo, err := repository.NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage() error = %v", err)
	}
	directory := &fakeDirectory{accounts: map[string]int64{"alice": 42}}
	svc := New(repo, directory, &fakeRebuilder{})
	ctx := context.Background()

	if _, err := svc.Add(ctx, 100, "alice", ""); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// The account disappears upstream after registration.
	delete(directory.accounts, "alice")

	watched, err := svc.List(ctx, 100)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(watched) != 1 || watched[0].Handle != "#42" {
		t.Errorf("watched = %+v, want one entry with handle #42", watched)
	}
}
