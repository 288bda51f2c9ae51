package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	monitorRepo "github.com/mirrelia/tweet-relay-bot/internal/modules/monitor/repository"
	streamDomain "github.com/mirrelia/tweet-relay-bot/internal/modules/stream/domain"
	"github.com/mirrelia/tweet-relay-bot/internal/telemetry"
	"github.com/samber/oops"
)

// ErrManagerClosed is returned by Rebuild after Shutdown.
var ErrManagerClosed = errors.New("stream manager is shut down")

// Manager owns the single long-lived upstream streaming connection. It
// rebuilds the subscription from a full registry snapshot whenever the
// watch list changes, and reconnects with the same subscription after
// transient transport failures. At most one session and one worker
// goroutine exist at any time; Rebuild and Shutdown fully drain the
// previous worker before returning, so two sessions can never deliver
// concurrently.
type Manager struct {
	repo   monitorRepo.Repository
	client streamDomain.Client
	router *Router

	// newBackoff produces the reconnect policy for one outage. Replaced in
	// tests to avoid real delays.
	newBackoff func() backoff.BackOff

	mu     sync.Mutex
	sub    *Subscription
	worker *worker
	closed bool
}

// worker is one streaming session lifetime: the initial connection plus any
// transparent reconnects after transient failures. The session handle is
// guarded by its own mutex so teardown can close it without racing the
// redial loop.
type worker struct {
	sub  *Subscription
	stop chan struct{}
	done chan struct{}

	mu      sync.Mutex
	session streamDomain.Session
}

func (w *worker) current() streamDomain.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

// swap installs a freshly dialed session unless the worker was stopped in
// the meantime, in which case the caller must close the new session.
func (w *worker) swap(session streamDomain.Session) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.stop:
		return false
	default:
	}
	w.session = session
	return true
}

func (w *worker) shutdown() {
	close(w.stop)
	if session := w.current(); session != nil {
		if err := session.Close(); err != nil {
			slog.Debug("Error closing stream session", "error", err)
		}
	}
}

// NewManager creates a stream connection manager
func NewManager(repo monitorRepo.Repository, client streamDomain.Client, router *Router) *Manager {
	return &Manager{
		repo:       repo,
		client:     client,
		router:     router,
		newBackoff: defaultBackoff,
	}
}

func defaultBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 2 * time.Minute
	bo.MaxElapsedTime = 0 // retry until shutdown
	return bo
}

// Rebuild tears down any live session, snapshots the registry and opens a
// new filtered stream for the derived subscription. Idempotent; rebuilds
// are totally ordered. With an empty registry no connection is opened.
func (m *Manager) Rebuild(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}

	m.teardownLocked()
	telemetry.Rebuilt()

	monitors, err := m.repo.SelectAll(ctx)
	if err != nil {
		return oops.Wrapf(err, "failed to snapshot monitor registry")
	}

	sub := BuildSubscription(monitors)
	m.sub = sub

	if sub.Empty() {
		slog.Info("No accounts watched, stream idle")
		return nil
	}

	return m.connectLocked(ctx, sub)
}

// Shutdown tears down the live session and marks the manager terminal. Safe
// to call at any point; no worker goroutine survives the call.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	m.teardownLocked()
}

// Streaming reports whether a session is currently live
func (m *Manager) Streaming() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.worker == nil {
		return false
	}
	select {
	case <-m.worker.done:
		return false
	default:
		return true
	}
}

// WatchedAccounts returns the account ids of the current subscription
func (m *Manager) WatchedAccounts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sub == nil {
		return nil
	}
	return m.sub.AccountIDs()
}

// teardownLocked signals the current worker to stop and blocks until its
// goroutine has fully exited. Called with m.mu held.
func (m *Manager) teardownLocked() {
	if m.worker == nil {
		return
	}
	m.worker.shutdown()
	<-m.worker.done
	m.worker = nil
}

func (m *Manager) connectLocked(ctx context.Context, sub *Subscription) error {
	session, err := m.client.OpenFilteredStream(ctx, sub.AccountIDs())
	if err != nil {
		return oops.With("account_ids", sub.AccountIDs()).Wrapf(err, "failed to open filtered stream")
	}

	w := &worker{
		sub:     sub,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		session: session,
	}
	m.worker = w
	go m.serve(w)

	slog.Info("Filtered stream opened", "accounts", len(sub.AccountIDs()))
	return nil
}

// serve drives one worker: it feeds posts to the router and, when the
// session ends with a transient error, redials with the same subscription.
// The router runs synchronously on this goroutine, so a rebuild that has
// drained the worker can never race an in-flight dispatch.
func (m *Manager) serve(w *worker) {
	defer close(w.done)

	for {
		session := w.current()
		for post := range session.Posts() {
			m.router.Route(context.Background(), w.sub, post)
		}

		err := session.Err()
		if err == nil {
			// Clean close from teardown or shutdown.
			return
		}
		if !streamDomain.IsTransient(err) {
			slog.Error("Stream ended with unrecoverable error, waiting for next rebuild", "error", err)
			return
		}

		slog.Warn("Stream connection lost, reconnecting", "error", err)
		if !m.redial(w) {
			return
		}
	}
}

// redial re-opens the stream for the worker's subscription under
// exponential backoff. Returns false when the worker was stopped or the
// backoff policy gave up.
func (m *Manager) redial(w *worker) bool {
	bo := m.newBackoff()

	for {
		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			slog.Error("Giving up on stream reconnect, waiting for next rebuild")
			return false
		}

		select {
		case <-w.stop:
			return false
		case <-time.After(wait):
		}

		session, err := m.client.OpenFilteredStream(context.Background(), w.sub.AccountIDs())
		if err != nil {
			slog.Warn("Stream reconnect attempt failed", "error", err)
			continue
		}

		if !w.swap(session) {
			session.Close()
			return false
		}

		telemetry.Reconnected()
		slog.Info("Stream reconnected", "accounts", len(w.sub.AccountIDs()))
		return true
	}
}
