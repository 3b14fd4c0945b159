// Package client is the client-side library for a renttrack server. It wraps
// the HTTP API and the websocket snapshot stream, and satisfies the board's
// mutator interface so a board can be wired straight to a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"renttrack/internal/model"
)

// ErrPermissionDenied mirrors the server's ownership rejection. The board
// treats it like any other mutation failure and rolls back.
var ErrPermissionDenied = errors.New("permission denied")

// Client talks to a renttrack server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for the server at baseURL. The token comes from Login
// or a previous session.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Token returns the current session token.
func (c *Client) Token() string {
	return c.token
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// do sends a JSON request and decodes the response into out (which may be
// nil). Non-2xx responses become errors carrying the server's message.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Code == "permission_denied" {
			return ErrPermissionDenied
		}
		if apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// Login authenticates and stores the session token on the client.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/login",
		map[string]string{"username": username, "password": password}, &resp)
	if err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

// Register creates a new account. The account starts pending approval.
func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/register",
		map[string]string{"username": username, "password": password}, nil)
}

// Logout revokes the session token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

// ListItems fetches the user's items, newest first.
func (c *Client) ListItems(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	if err := c.do(ctx, http.MethodGet, "/api/items", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem fetches a single item.
func (c *Client) GetItem(ctx context.Context, id string) (*model.Item, error) {
	var item model.Item
	if err := c.do(ctx, http.MethodGet, "/api/items/"+id, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateItem creates an item from the given template.
func (c *Client) CreateItem(ctx context.Context, item *model.Item) (*model.Item, error) {
	var created model.Item
	if err := c.do(ctx, http.MethodPost, "/api/items", item, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateStatus moves an item to a new status. This is the board's commit path.
func (c *Client) UpdateStatus(ctx context.Context, itemID, status string) error {
	return c.do(ctx, http.MethodPut, "/api/items/"+itemID+"/status",
		map[string]string{"status": status}, nil)
}

// ArchiveItem archives an item.
func (c *Client) ArchiveItem(ctx context.Context, id string) (*model.Item, error) {
	var item model.Item
	if err := c.do(ctx, http.MethodPost, "/api/items/"+id+"/archive", nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UnarchiveItem reactivates an archived item.
func (c *Client) UnarchiveItem(ctx context.Context, id string) (*model.Item, error) {
	var item model.Item
	if err := c.do(ctx, http.MethodPost, "/api/items/"+id+"/unarchive", nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DuplicateItem copies an item.
func (c *Client) DuplicateItem(ctx context.Context, id string) (*model.Item, error) {
	var item model.Item
	if err := c.do(ctx, http.MethodPost, "/api/items/"+id+"/duplicate", nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem permanently removes an archived item.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/items/"+id, nil, nil)
}

// watchDialRetry is the backoff between websocket dial attempts.
const watchDialRetry = 2 * time.Second

// ErrWatchDenied is delivered on Subscription.Errs when the server rejects
// the watch handshake outright (revoked or invalid token, unapproved
// account). The stream will not recover on its own; the caller should
// re-authenticate.
var ErrWatchDenied = errors.New("watch subscription rejected")

// Subscription is the client end of the snapshot stream. Snapshots carries
// complete item lists: one on connect, then one per change. Transient
// connection drops reconnect behind the scenes; a permanent rejection is
// delivered once on Errs and closes Snapshots.
type Subscription struct {
	Snapshots <-chan []model.Item
	Errs      <-chan error
}

// Watch opens the snapshot stream. The dial is retried with a fixed backoff
// until ctx is cancelled, so the consumer only ever sees snapshots, never
// gaps it has to repair — except when the server refuses the subscription,
// which surfaces on Errs instead of retrying forever.
func (c *Client) Watch(ctx context.Context) (*Subscription, error) {
	wsURL, err := c.watchURL()
	if err != nil {
		return nil, err
	}

	snapshots := make(chan []model.Item, 1)
	errs := make(chan error, 1)
	go func() {
		defer close(snapshots)
		for {
			err := c.streamOnce(ctx, wsURL, snapshots)
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, ErrWatchDenied) {
				errs <- err
				return
			}
			select {
			case <-time.After(watchDialRetry):
			case <-ctx.Done():
				return
			}
		}
	}()
	return &Subscription{Snapshots: snapshots, Errs: errs}, nil
}

func (c *Client) watchURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/api/items/watch"
	u.RawQuery = url.Values{"token": {c.token}}.Encode()
	return u.String(), nil
}

// streamOnce dials the watch endpoint and forwards snapshots until the
// connection drops or ctx is cancelled. Stale undelivered snapshots are
// replaced, matching the server's coalescing. An auth rejection during the
// handshake comes back as ErrWatchDenied.
func (c *Client) streamOnce(ctx context.Context, wsURL string, snapshots chan []model.Item) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("dialing watch endpoint: status %d: %w", resp.StatusCode, ErrWatchDenied)
		}
		return fmt.Errorf("dialing watch endpoint: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var items []model.Item
		if err := conn.ReadJSON(&items); err != nil {
			return fmt.Errorf("reading snapshot: %w", err)
		}
		select {
		case <-snapshots:
		default:
		}
		select {
		case snapshots <- items:
		case <-ctx.Done():
			return nil
		}
	}
}
