// pkg/stream/client.go
package stream

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/opd-ai/go-blob/pkg/engine"
	"github.com/opd-ai/go-blob/pkg/logging"
)

// Client follows a remote simulation feed
type Client struct {
	conn      *websocket.Conn
	snapshots chan *engine.Snapshot
	done      chan struct{}
	once      sync.Once
	logger    *logging.Logger

	mu  sync.Mutex
	err error
}

// Dial connects to a feed URL such as ws://localhost:4570/ws. buffer is the
// number of undelivered snapshots kept; older ones are discarded first.
func Dial(ctx context.Context, url string, buffer int, logger *logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if buffer < 1 {
		buffer = 1
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	c := &Client{
		conn:      conn,
		snapshots: make(chan *engine.Snapshot, buffer),
		done:      make(chan struct{}),
		logger:    logger,
	}
	go c.messageLoop()
	return c, nil
}

// Snapshots delivers decoded snapshots. It is closed when the feed ends.
func (c *Client) Snapshots() <-chan *engine.Snapshot {
	return c.snapshots
}

// Err reports why the feed ended, nil after a clean Close
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close disconnects from the feed
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = c.conn.Close()
	})
	return err
}

func (c *Client) messageLoop() {
	defer close(c.snapshots)
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.fail(err)
			}
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}

		var snap engine.Snapshot
		if err := msgpack.Unmarshal(data, &snap); err != nil {
			c.logger.Warn(context.Background(), "discarding undecodable snapshot", "error", err.Error())
			continue
		}
		c.deliver(&snap)
	}
}

func (c *Client) deliver(snap *engine.Snapshot) {
	for {
		select {
		case c.snapshots <- snap:
			return
		default:
		}
		select {
		case <-c.snapshots:
		default:
		}
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return
	}
	c.err = err
}
