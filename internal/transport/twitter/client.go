// Package twitter implements the account directory and the filtered
// streaming client against the Twitter HTTP API using app-only auth.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	streamDomain "github.com/mirrelia/tweet-relay-bot/internal/modules/stream/domain"
	"github.com/mirrelia/tweet-relay-bot/internal/shared/config"
	"github.com/samber/oops"
	"golang.org/x/oauth2/clientcredentials"
)

// Client talks to the Twitter REST and streaming APIs. It implements both
// streamDomain.Client and streamDomain.Directory.
type Client struct {
	httpClient *http.Client
	apiURL     string
	streamURL  string
}

// NewClient builds an authenticated client and verifies the credentials by
// fetching a bearer token eagerly, so a misconfigured bot fails at startup
// instead of on the first command.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	creds := &clientcredentials.Config{
		ClientID:     cfg.TwitterConsumerKey,
		ClientSecret: cfg.TwitterConsumerSecret,
		TokenURL:     cfg.TwitterAPIURL + "/oauth2/token",
	}

	if _, err := creds.Token(ctx); err != nil {
		return nil, oops.Wrapf(err, "failed to verify twitter credentials")
	}

	return &Client{
		httpClient: creds.Client(ctx),
		apiURL:     cfg.TwitterAPIURL,
		streamURL:  cfg.TwitterStreamURL,
	}, nil
}

type wireUser struct {
	ID         int64  `json:"id"`
	ScreenName string `json:"screen_name"`
}

// ResolveHandle looks up the stable numeric id for a screen name
func (c *Client) ResolveHandle(ctx context.Context, handle string) (int64, error) {
	user, err := c.showUser(ctx, url.Values{"screen_name": {handle}})
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

// LookupHandle returns the current screen name for an account id
func (c *Client) LookupHandle(ctx context.Context, accountID int64) (string, error) {
	user, err := c.showUser(ctx, url.Values{"user_id": {fmt.Sprintf("%d", accountID)}})
	if err != nil {
		return "", err
	}
	return user.ScreenName, nil
}

func (c *Client) showUser(ctx context.Context, query url.Values) (*wireUser, error) {
	endpoint := c.apiURL + "/1.1/users/show.json?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, oops.Wrap(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, oops.Wrapf(err, "users/show request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, streamDomain.ErrUnknownAccount
	case resp.StatusCode != http.StatusOK:
		return nil, oops.With("status", resp.StatusCode).Errorf("users/show returned %s", resp.Status)
	}

	var user wireUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, oops.Wrapf(err, "failed to decode users/show response")
	}
	return &user, nil
}

// OpenFilteredStream starts a statuses/filter stream following the given
// account ids. The handshake is blocking; decoded posts are pushed through
// the returned session.
func (c *Client) OpenFilteredStream(ctx context.Context, accountIDs []string) (streamDomain.Session, error) {
	form := url.Values{"follow": {strings.Join(accountIDs, ",")}}
	endpoint := c.streamURL + "/1.1/statuses/filter.json"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, oops.Wrap(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, oops.Wrapf(err, "statuses/filter request failed")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, oops.With("status", resp.StatusCode).Errorf("statuses/filter returned %s", resp.Status)
	}

	return newSession(resp.Body), nil
}
