package domain

import "time"

// RelayedPost is one post that was actually delivered to a channel, kept so
// the status server can expose a per-channel feed of recent relays.
type RelayedPost struct {
	ChannelID    int64     `json:"channel_id"`
	PostID       int64     `json:"post_id"`
	AuthorHandle string    `json:"author_handle"`
	Text         string    `json:"text"`
	Link         string    `json:"link"`
	RelayedAt    time.Time `json:"relayed_at"`
}
