package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	streamDomain "github.com/mirrelia/tweet-relay-bot/internal/modules/stream/domain"
	"github.com/mirrelia/tweet-relay-bot/internal/telemetry"
)

// Recorder keeps a history of relayed posts. Recording is best effort and
// never blocks delivery.
type Recorder interface {
	Record(ctx context.Context, channelID int64, post streamDomain.Post, link string)
}

// Router classifies one inbound post against a subscription snapshot and
// dispatches it to every destination whose filter passes.
type Router struct {
	sink     streamDomain.Sink
	recorder Recorder
}

// NewRouter creates a post router. The recorder may be nil.
func NewRouter(sink streamDomain.Sink, recorder Recorder) *Router {
	return &Router{sink: sink, recorder: recorder}
}

// Route dispatches a post to all matching targets in the subscription.
// Posts from accounts not in the subscription are dropped silently: the
// upstream is known to over-deliver, and a post can arrive for an account
// whose last monitor was removed after the subscription was built.
func (r *Router) Route(ctx context.Context, sub *Subscription, post streamDomain.Post) {
	targets := sub.Targets(post.AuthorID)
	if len(targets) == 0 {
		return
	}

	telemetry.PostReceived()
	text := expandText(post)

	for _, target := range targets {
		if !target.Matches(text) {
			slog.Debug("Post did not match filter",
				"channel_id", target.Monitor.ChannelID,
				"account_id", post.AuthorID,
				"pattern", target.Monitor.MatchPattern)
			continue
		}

		link := fmt.Sprintf("https://twitter.com/%s/status/%d", post.AuthorHandle, post.ID)
		if err := r.sink.Send(ctx, target.Monitor.ChannelID, link); err != nil {
			// A failed dispatch only loses this one delivery; remaining
			// targets for the post are still evaluated.
			telemetry.DispatchFailed()
			slog.Error("Failed to deliver post",
				"channel_id", target.Monitor.ChannelID,
				"account_id", post.AuthorID,
				"post_id", post.ID,
				"error", err)
			continue
		}

		telemetry.PostDispatched()
		if r.recorder != nil {
			r.recorder.Record(ctx, target.Monitor.ChannelID, post, link)
		}
	}
}

// expandText replaces every shortened URL in the post text with its display
// form. The upstream rewrites URLs on the wire, and filters must match what
// a reader actually sees.
func expandText(post streamDomain.Post) string {
	text := post.Text
	for wire, display := range post.URLExpansions {
		text = strings.ReplaceAll(text, wire, display)
	}
	return text
}
