package domain

import "context"

// Session is one live filtered-stream connection.
type Session interface {
	// Posts yields decoded posts until the connection ends. The channel is
	// closed on any disconnect, clean or not.
	Posts() <-chan Post
	// Err reports why Posts was closed: nil after an explicit Close,
	// otherwise the transport failure that ended the stream.
	Err() error
	// Close signals a remote disconnect. The caller observes the actual end
	// of the stream through Posts closing.
	Close() error
}

// Client opens filtered streaming connections against the upstream API.
// Account ids are passed as strings because that is what the upstream
// filter endpoint takes; everywhere else ids are int64.
type Client interface {
	OpenFilteredStream(ctx context.Context, accountIDs []string) (Session, error)
}

// Directory resolves account handles to stable numeric ids and back.
// Handles can change over time, ids cannot, so only ids are persisted.
type Directory interface {
	ResolveHandle(ctx context.Context, handle string) (int64, error)
	LookupHandle(ctx context.Context, accountID int64) (string, error)
}

// Sink delivers one text message to a destination chat channel.
type Sink interface {
	Send(ctx context.Context, channelID int64, text string) error
}
