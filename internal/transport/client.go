package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/handplay/internal/command"
)

// DefaultAddr is where the networked player listens.
const DefaultAddr = "127.0.0.1:65432"

// Timeouts applied when the config leaves them unset.
const (
	DefaultDialTimeout  = 2 * time.Second
	DefaultWriteTimeout = 500 * time.Millisecond
)

// ErrTransportUnavailable is returned when no connection to the player
// exists or the connection failed. Once returned the client stays closed.
var ErrTransportUnavailable = errors.New("transport unavailable")

// ClientConfig configures a Client.
type ClientConfig struct {
	Addr         string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// Client sends newline-terminated command tokens to a networked player.
type Client struct {
	config ClientConfig
	logger *zap.Logger

	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

// NewClient creates an unconnected client.
func NewClient(config ClientConfig, logger *zap.Logger) *Client {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = DefaultDialTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{config: config, logger: logger}
}

// Connect dials the player.
func (c *Client) Connect(ctx context.Context) error {
	dialer := net.Dialer{Timeout: c.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.config.Addr)
	if err != nil {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		return fmt.Errorf("%w: dial %s: %v", ErrTransportUnavailable, c.config.Addr, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.closed = false

	c.logger.Info("connected to player", zap.String("addr", c.config.Addr))
	return nil
}

// Send writes one command. Any write failure closes the connection.
func (c *Client) Send(cmd command.Command) error {
	token := cmd.Token()
	if token == "" {
		return fmt.Errorf("%w: %s", command.ErrUnknownToken, cmd)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.conn == nil {
		return ErrTransportUnavailable
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
		c.closeLocked()
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	if _, err := c.conn.Write([]byte(token + "\n")); err != nil {
		c.closeLocked()
		return fmt.Errorf("%w: send %s: %v", ErrTransportUnavailable, token, err)
	}

	c.logger.Debug("sent command", zap.String("token", token))
	return nil
}

// Apply sends cmd, so a Client can stand in for the local player.
func (c *Client) Apply(_ context.Context, cmd command.Command) error {
	return c.Send(cmd)
}

// Connected reports whether the client still holds a live connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.conn != nil
}

// Close shuts the connection down. Further sends fail.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
