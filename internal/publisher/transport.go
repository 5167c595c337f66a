package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/musicfriend/roomstate/internal/broadcast"
	"github.com/musicfriend/roomstate/internal/domain"
)

// Transport delivers one state update to the room service.
type Transport interface {
	Send(ctx context.Context, update domain.StateUpdate) error
}

const httpSendTimeout = 7 * time.Second

// HTTPTransport posts updates to the pull transport's write side.
type HTTPTransport struct {
	url    string
	client *http.Client
}

// NewHTTPTransport creates a transport targeting baseURL's /update_state
// endpoint.
func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{
		url:    strings.TrimSuffix(baseURL, "/") + "/update_state",
		client: &http.Client{Timeout: httpSendTimeout},
	}
}

func (t *HTTPTransport) Send(ctx context.Context, update domain.StateUpdate) error {
	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("post update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return nil
}

// WSTransport sends song_update envelopes over a persistent push connection.
type WSTransport struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// DialWS opens a push connection against baseURL's /ws endpoint.
func DialWS(ctx context.Context, baseURL string) (*WSTransport, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial push transport: %w", err)
	}
	return &WSTransport{conn: conn}, nil
}

func (t *WSTransport) Send(ctx context.Context, update domain.StateUpdate) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	deadline := time.Now().Add(httpSendTimeout)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	_ = t.conn.SetWriteDeadline(deadline)

	env := broadcast.Envelope{Event: broadcast.EventSongUpdate, Data: update}
	if err := t.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("write update: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (t *WSTransport) Close() error {
	return t.conn.Close()
}
