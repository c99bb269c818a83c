package wire

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

// Client dials the server's raw HTTP/1.1 framing directly. There is no
// net/http on either end of the wire, so the client speaks the same
// bufio/textproto protocol the server parses.
type Client struct {
	Dialer net.Dialer
}

// NewClient returns a Client whose dials and round trips time out after
// timeout unless the caller's context sets a shorter deadline.
func NewClient(timeout time.Duration) *Client {
	return &Client{Dialer: net.Dialer{Timeout: timeout}}
}

// Result is the outcome of one request/response exchange.
type Result struct {
	Status  int
	Headers textproto.MIMEHeader
	Body    []byte
}

// Do dials addr (host:port), sends one request, and reads the full
// response. addr may include a scheme (http://) which is stripped.
func (c *Client) Do(ctx context.Context, addr, method, path string, headers map[string]string, body []byte) (Result, error) {
	host, err := hostPort(addr)
	if err != nil {
		return Result{}, err
	}

	conn, err := c.Dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		return Result{}, fmt.Errorf("wire: dial %s: %w", host, err)
	}
	defer conn.Close()

	deadline, hasDeadline := ctx.Deadline()
	if t := c.Dialer.Timeout; t > 0 {
		if d := time.Now().Add(t); !hasDeadline || d.Before(deadline) {
			deadline, hasDeadline = d, true
		}
	}
	if hasDeadline {
		_ = conn.SetDeadline(deadline)
	}

	if err := WriteRequest(conn, method, path, headers, body); err != nil {
		return Result{}, fmt.Errorf("wire: write request: %w", err)
	}

	r := bufio.NewReader(conn)
	resp, err := ReadResponse(r)
	if err != nil {
		return Result{}, fmt.Errorf("wire: read response: %w", err)
	}

	respBody, err := ReadBody(r, ContentLength(resp.Headers))
	if err != nil {
		return Result{}, err
	}

	return Result{Status: resp.Status, Headers: resp.Headers, Body: respBody}, nil
}

// hostPort strips an optional scheme from addr and returns a dialable
// host:port pair.
func hostPort(addr string) (string, error) {
	if !strings.Contains(addr, "://") {
		// No scheme given; treat the whole string as host:port.
		return addr, nil
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("wire: bad server url %q: %w", addr, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("wire: server url %q has no host", addr)
	}
	return u.Host, nil
}
