// Package apiclient is the CLI's HTTP client for the orchestrator daemon,
// dialing the Unix socket under .ve/ via net/http's Transport.DialContext
// seam instead of a TCP address.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/netguy204/ve/internal/verrors"
)

// Client talks to one project's running orchestrator daemon.
type Client struct {
	socket string
	http   *http.Client
}

// New builds a Client bound to socket, with a default 10s request timeout.
func New(socket string) *Client {
	return &Client{
		socket: socket,
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					d := net.Dialer{}
					return d.DialContext(ctx, "unix", socket)
				},
			},
		},
	}
}

// Do issues an HTTP request against the daemon and decodes a JSON response
// into out (if non-nil). A connection failure surfaces as
// verrors.DaemonNotRunning.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, "http://unix"+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &verrors.DaemonNotRunning{}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var eb struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &eb)
		if eb.Error == "" {
			eb.Error = fmt.Sprintf("daemon returned HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("%s", eb.Error)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return err
		}
	}
	return nil
}
