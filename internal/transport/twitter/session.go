package twitter

import (
	"encoding/json"
	"io"
	"sync"

	streamDomain "github.com/mirrelia/tweet-relay-bot/internal/modules/stream/domain"
)

// wireStatus is the subset of a v1.1 status object the relay needs.
type wireStatus struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	User struct {
		ID         int64  `json:"id"`
		ScreenName string `json:"screen_name"`
	} `json:"user"`
	Entities struct {
		URLs []struct {
			URL        string `json:"url"`
			DisplayURL string `json:"display_url"`
		} `json:"urls"`
	} `json:"entities"`
}

// session decodes one streaming response body into posts. Keep-alive blank
// lines between objects are skipped by the JSON decoder.
type session struct {
	body  io.ReadCloser
	posts chan streamDomain.Post

	mu     sync.Mutex
	closed bool
	err    error
}

func newSession(body io.ReadCloser) *session {
	s := &session{
		body:  body,
		posts: make(chan streamDomain.Post),
	}
	go s.readLoop()
	return s
}

func (s *session) Posts() <-chan streamDomain.Post {
	return s.posts
}

func (s *session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close signals the remote disconnect by closing the response body, which
// unblocks the decoder. Safe to call more than once.
func (s *session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.body.Close()
}

func (s *session) readLoop() {
	dec := json.NewDecoder(s.body)
	for {
		var status wireStatus
		if err := dec.Decode(&status); err != nil {
			s.finish(err)
			return
		}

		expansions := make(map[string]string, len(status.Entities.URLs))
		for _, u := range status.Entities.URLs {
			expansions[u.URL] = u.DisplayURL
		}

		s.posts <- streamDomain.Post{
			ID:            status.ID,
			AuthorID:      status.User.ID,
			AuthorHandle:  status.User.ScreenName,
			Text:          status.Text,
			URLExpansions: expansions,
		}
	}
}

// finish records why the stream ended and closes the post channel. A decode
// error caused by our own Close counts as a clean shutdown.
func (s *session) finish(err error) {
	s.body.Close()

	s.mu.Lock()
	if !s.closed {
		s.err = err
	}
	s.mu.Unlock()

	close(s.posts)
}
