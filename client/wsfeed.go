package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"todosync/domain"
)

// WSFeed is the session's sync channel: it publishes this session's confirmed
// mutations and feeds inbound sibling events to the controller.
type WSFeed struct {
	conn *websocket.Conn
	mu   sync.Mutex // guards writes; gorilla allows one concurrent writer
	log  *log.Logger
}

// DialWS connects the sync channel. The token authenticates the connection
// before the server registers it; url is the ws:// or wss:// endpoint.
func DialWS(ctx context.Context, url, token string) (*WSFeed, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url+"?token="+token, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial sync channel: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial sync channel: %w", err)
	}
	return &WSFeed{conn: conn, log: log.StandardLogger()}, nil
}

// Publish sends a confirmed mutation event to sibling sessions.
func (f *WSFeed) Publish(_ context.Context, ev domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return f.conn.WriteJSON(ev)
}

// Listen reads sibling events until ctx is cancelled or the connection drops,
// handing each valid event to apply.
func (f *WSFeed) Listen(ctx context.Context, apply func(domain.Event)) error {
	go func() {
		<-ctx.Done()
		f.conn.Close()
	}()
	for {
		var ev domain.Event
		if err := f.conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("sync channel closed: %w", err)
		}
		if err := ev.Valid(); err != nil {
			f.log.Warnf("dropping invalid sync event: %v", err)
			continue
		}
		apply(ev)
	}
}

// Close shuts the channel down.
func (f *WSFeed) Close() error {
	return f.conn.Close()
}
