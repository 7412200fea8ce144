// Package rozacli is the client side of the roza daemon's JSON-RPC
// WebSocket endpoint.
package rozacli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
)

// ErrDisconnect is returned by Wait once the daemon closed the session.
var ErrDisconnect = errors.New("disconnected from daemon")

// Options configures Dial.
type Options struct {
	// Addr is the daemon's host:port.
	Addr string
	// Token is sent as a Bearer Authorization header.
	Token string
	// HTTPClient is used for the WebSocket handshake.
	HTTPClient *http.Client
}

// URL returns the WebSocket endpoint for addr. A full ws:// or wss:// URL
// is passed through.
func URL(addr string) string {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return addr
	}
	return "ws://" + addr + "/jsonrpc/ws"
}

// Client is one JSON-RPC session with the daemon.
type Client struct {
	cli  *jrpc2.Client
	conn *cws.Conn
	d    *Dispatcher

	once sync.Once
	done chan struct{}
	err  error
}

// Dial opens a session. Pushes received before a handler is registered are
// dropped.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	conn, _, err := cws.Dial(ctx, URL(opts.Addr), &cws.DialOptions{
		HTTPClient: opts.HTTPClient,
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + opts.Token}},
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to daemon: %w", err)
	}
	// pushes can be large when many errors are attached
	conn.SetReadLimit(1 << 20)

	c := &Client{
		conn: conn,
		d:    NewDispatcher(),
		done: make(chan struct{}),
	}
	c.cli = jrpc2.NewClient(&wsChannel{conn: conn, ctx: context.Background()}, &jrpc2.ClientOptions{
		OnNotify: c.d.process,
		OnStop: func(_ *jrpc2.Client, err error) {
			c.stop(err)
		},
	})
	return c, nil
}

func (c *Client) stop(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}

// AddHandler subscribes h to pushes of method.
func (c *Client) AddHandler(method string, h Handler) {
	c.d.AddHandler(method, h)
}

// Wait blocks until the session ends or ctx is done. A session the daemon
// closed returns ErrDisconnect; a handler failure is returned as is.
func (c *Client) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
	case err := <-c.d.errs:
		return err
	}
	if c.err != nil && !errors.Is(c.err, jrpc2.ErrConnClosed) {
		return fmt.Errorf("%w: %v", ErrDisconnect, c.err)
	}
	return ErrDisconnect
}

// Close ends the session.
func (c *Client) Close() error {
	err := c.cli.Close()
	c.stop(nil)
	return err
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	if err := c.cli.CallResult(ctx, method, params, result); err != nil {
		return fmt.Errorf("failed to invoke %s: %w", method, err)
	}
	return nil
}

// wsChannel adapts a coder/websocket.Conn to the jrpc2 Channel interface.
type wsChannel struct {
	conn *cws.Conn
	ctx  context.Context
}

func (c *wsChannel) Send(data []byte) error {
	return c.conn.Write(c.ctx, cws.MessageText, data)
}

func (c *wsChannel) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(c.ctx)
	return data, err
}

func (c *wsChannel) Close() error {
	return c.conn.Close(cws.StatusNormalClosure, "")
}
