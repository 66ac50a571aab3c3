package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"syscall"

	"github.com/sirupsen/logrus"
)

// Client is a struct for communicating with the tankmon daemon
type Client struct {
	socketPath string
	httpClient *http.Client
}

// NewClient is a constructor for creating a new Client
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					conn, err := d.DialContext(ctx, "unix", socketPath)
					if err != nil {
						return nil, dialError(err)
					}
					return conn, nil
				},
			},
		},
	}
}

// dialError maps the errors of dialing the socket to ErrDaemonNotRunning
// and ErrPermissionDenied. A socket file without a listener counts as a
// daemon that is not running.
func dialError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ECONNREFUSED):
		return ErrDaemonNotRunning
	case errors.Is(err, fs.ErrPermission):
		return ErrPermissionDenied
	}
	logrus.Errorf("failed to connect to unix socket: %v", err)
	return err
}

func (c *Client) do(ctx context.Context, path string) (*http.Response, error) {
	logrus.WithFields(logrus.Fields{
		"method": http.MethodGet,
		"path":   path,
		"unix":   c.socketPath,
	}).Debug("sending request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://unix"+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// Get sends a GET request to the daemon and returns the response body.
func (c *Client) Get(path string) (string, error) {
	resp, err := c.do(context.Background(), path)
	if err != nil {
		return "", err
	}
	defer closeBody(resp)

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	body := string(b)

	if err := checkStatus(resp, body); err != nil {
		return "", err
	}
	return body, nil
}

func checkStatus(resp *http.Response, body string) error {
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, resp.Request.URL.Path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("got %d: %s", resp.StatusCode, body)
	}
	return nil
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		logrus.Errorf("failed to close response body: %v", err)
	}
}
