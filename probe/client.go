package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/LanXuage/astrascan/common"
	"github.com/LanXuage/astrascan/common/constant"
)

var logger = common.GetLogger()

var ErrStatus = errors.New("unexpected status")

// Response is what a HEAD probe keeps of the server's answer.
type Response struct {
	StatusCode int
	Header     http.Header
}

// Client is the HTTP surface shared by fingerprint probes, playlist fetches
// and channel checks. Implementations never retry and are safe for
// concurrent use.
type Client interface {
	// Head issues a HEAD request bounded by timeout.
	Head(ctx context.Context, rawURL string, timeout time.Duration) (*Response, error)
	// GetText fetches a body as text. Non-2xx answers fail with ErrStatus.
	GetText(ctx context.Context, rawURL string, timeout time.Duration) (string, error)
	// Peek issues a ranged GET and returns how many body bytes, at most
	// limit, arrived with a 2xx answer.
	Peek(ctx context.Context, rawURL string, timeout time.Duration, limit int64) (int64, error)
}

type ClientOptions struct {
	Timeout   time.Duration // used when a call passes no timeout
	PoolSize  int           // idle connections kept per host
	KeepAlive time.Duration
	UserAgent string
}

// HTTPClient is a pooled net/http client. Timeouts are per call, so one
// client serves short probes and long playlist fetches alike.
type HTTPClient struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

func NewHTTPClient(opts ClientOptions) *HTTPClient {
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = constant.USER_AGENT
	}
	// connects are bounded by the per-call deadline, not a dialer timeout
	dialer := &net.Dialer{
		KeepAlive: opts.KeepAlive,
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxIdleConns:        opts.PoolSize * 4,
		MaxIdleConnsPerHost: opts.PoolSize,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true,
	}
	return &HTTPClient{
		client:    &http.Client{Transport: transport},
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
	}
}

func (c *HTTPClient) do(ctx context.Context, method, rawURL string, timeout time.Duration, header http.Header) (*http.Response, context.CancelFunc, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}
	var cancel context.CancelFunc = func() {}
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return resp, cancel, nil
}

func (c *HTTPClient) Head(ctx context.Context, rawURL string, timeout time.Duration) (*Response, error) {
	resp, cancel, err := c.do(ctx, http.MethodHead, rawURL, timeout, nil)
	if err != nil {
		return nil, err
	}
	defer cancel()
	resp.Body.Close()
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header}, nil
}

func (c *HTTPClient) GetText(ctx context.Context, rawURL string, timeout time.Duration) (string, error) {
	resp, cancel, err := c.do(ctx, http.MethodGet, rawURL, timeout, nil)
	if err != nil {
		return "", err
	}
	defer cancel()
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, constant.MAX_PLAYLIST_SZ))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *HTTPClient) Peek(ctx context.Context, rawURL string, timeout time.Duration, limit int64) (int64, error) {
	if limit <= 0 {
		limit = constant.PEEK_SIZE
	}
	header := http.Header{}
	header.Set("Range", fmt.Sprintf("bytes=0-%d", limit-1))
	resp, cancel, err := c.do(ctx, http.MethodGet, rawURL, timeout, header)
	if err != nil {
		return 0, err
	}
	defer cancel()
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, limit))
	if n > 0 {
		// a live stream never ends, the bytes that did arrive are enough
		return n, nil
	}
	return n, err
}

// CloseIdle drops pooled connections once a scan is over.
func (c *HTTPClient) CloseIdle() {
	c.client.CloseIdleConnections()
}
