package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"gitlab.com/quantport.net/internal/tcp/defs"
)

// ErrReplyTimeout reports that no reply line arrived within the deadline.
var ErrReplyTimeout = errors.New("timed out waiting for reply")

// ReqChannel is a synchronous request/reply client for line-oriented control
// endpoints. Exactly one request is outstanding at a time; each call writes a
// single line and blocks for the single reply line.
type ReqChannel struct {
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex
}

// DialReqChannel connects a request channel to addr. The context bounds the
// dial only, not later requests.
func DialReqChannel(ctx context.Context, addr string) (*ReqChannel, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return NewReqChannel(conn), nil
}

// NewReqChannel wraps an established connection.
func NewReqChannel(conn net.Conn) *ReqChannel {
	return &ReqChannel{conn: conn, reader: bufio.NewReader(conn)}
}

// Request sends one line and waits up to timeout for the decoded reply. A
// missing reply surfaces as ErrReplyTimeout.
func (c *ReqChannel) Request(msg string, timeout time.Duration) (defs.Reply, error) {
	line, err := c.RequestRaw(msg, timeout)
	if err != nil {
		return defs.Reply{}, err
	}
	return defs.ParseReply(line)
}

// RequestRaw sends one line and returns the raw reply line. Command
// invocations use this form, their replies are free text rather than coded
// integers.
func (c *ReqChannel) RequestRaw(msg string, timeout time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return "", fmt.Errorf("failed to set deadline: %w", err)
	}

	if _, err := c.conn.Write([]byte(msg + "\n")); err != nil {
		if isTimeout(err) {
			return "", ErrReplyTimeout
		}
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		if isTimeout(err) {
			return "", ErrReplyTimeout
		}
		return "", fmt.Errorf("failed to read reply: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// Close releases the underlying connection.
func (c *ReqChannel) Close() error {
	return c.conn.Close()
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
