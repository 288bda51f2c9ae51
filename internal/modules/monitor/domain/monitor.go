package domain

import (
	"errors"
	"time"
)

// Monitor is a registered watch: public posts from AccountID are relayed to
// the chat channel ChannelID, optionally restricted to posts whose expanded
// text matches MatchPattern. The (ChannelID, AccountID) pair is unique; a
// monitor is never mutated in place, only removed and re-added.
type Monitor struct {
	ChannelID    int64     `json:"channel_id"`
	AccountID    int64     `json:"account_id"`
	MatchPattern string    `json:"match_pattern,omitempty"`
	AddedAt      time.Time `json:"added_at"`
}

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrInvalidPattern    = errors.New("invalid match pattern")
	ErrAlreadyRegistered = errors.New("account is already registered for this channel")
	ErrNotRegistered     = errors.New("account is not registered for this channel")
)
