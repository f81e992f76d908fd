package consensus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/adamwoolhether/rollup/foundation/rollup/nmt"
)

// ClientConfig controls the retries of plain HTTP requests.
type ClientConfig struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
}

// Client talks to a remote sequencer.
type Client struct {
	baseURL *url.URL
	client  *retryablehttp.Client
	dialer  *websocket.Dialer
	log     *zap.SugaredLogger
}

// NewClient constructs a client for the sequencer at the specified address.
func NewClient(address string, cfg ClientConfig, log *zap.SugaredLogger) (*Client, error) {
	baseURL, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("parsing address: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("parsing address: unsupported scheme %q", baseURL.Scheme)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = cfg.RetryWaitMin
	client.RetryWaitMax = cfg.RetryWaitMax
	client.Backoff = retryablehttp.LinearJitterBackoff
	client.Logger = &retryableLogger{log: log}
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}

	c := Client{
		baseURL: baseURL,
		client:  client,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		log: log,
	}

	return &c, nil
}

// Submit hands the transaction to the sequencer.
func (c *Client) Submit(ctx context.Context, tx Transaction) error {
	return c.req(ctx, http.MethodPost, routeSubmit, nil, tx, nil)
}

// Header returns the header of the block at the specified height.
func (c *Client) Header(ctx context.Context, height uint64) (Header, error) {
	var header Header
	params := map[string]string{"height": strconv.FormatUint(height, 10)}
	if err := c.req(ctx, http.MethodGet, routeHeader, params, nil, &header); err != nil {
		return Header{}, err
	}

	return header, nil
}

// NamespaceProof fetches the namespace's transactions and their proof for the
// block at the specified height.
func (c *Client) NamespaceProof(ctx context.Context, height uint64, ns nmt.NamespaceID) (nmt.NamespaceProof, error) {
	params := map[string]string{
		"height":    strconv.FormatUint(height, 10),
		"namespace": strconv.FormatUint(uint64(ns), 10),
	}

	var proof nmt.NamespaceProof
	if err := c.req(ctx, http.MethodGet, routeNamespace, params, nil, &proof); err != nil {
		return nmt.NamespaceProof{}, err
	}

	return proof, nil
}

// SubscribeHeaders opens the header stream at the specified height. A
// connection failure is delivered as the last item of the stream. The
// channel closes when the context is cancelled or the sequencer ends the
// stream.
func (c *Client) SubscribeHeaders(ctx context.Context, from uint64) (<-chan HeaderResult, error) {
	u := c.url(routeStream, map[string]string{"from": strconv.FormatUint(from, 10)})
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialing header stream: %w: status %s", err, resp.Status)
		}
		return nil, fmt.Errorf("dialing header stream: %w", err)
	}

	// Unblocks the reader when the caller goes away.
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	ch := make(chan HeaderResult)

	go func() {
		defer close(ch)
		defer close(stop)
		defer conn.Close()

		for {
			var header Header
			if err := conn.ReadJSON(&header); err != nil {
				if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					return
				}

				select {
				case ch <- HeaderResult{Err: fmt.Errorf("reading header stream: %w", err)}:
				case <-ctx.Done():
				}
				return
			}

			select {
			case ch <- HeaderResult{Header: header}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// =============================================================================

func (c *Client) url(route string, params map[string]string) *url.URL {
	path := route
	for key, value := range params {
		path = strings.Replace(path, ":"+key, url.PathEscape(value), 1)
	}

	return c.baseURL.JoinPath(path)
}

func (c *Client) req(ctx context.Context, method string, route string, params map[string]string, reqBody any, resBody any) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.url(route, params).String(), body)
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("doing request: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	switch res.StatusCode {
	case http.StatusOK, http.StatusNoContent:
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, strings.TrimSpace(string(data)))
	default:
		return fmt.Errorf("unexpected status code: %s, body: %s", res.Status, strings.TrimSpace(string(data)))
	}

	if resBody != nil {
		if err := json.Unmarshal(data, resBody); err != nil {
			return fmt.Errorf("decoding response body: %w", err)
		}
	}

	return nil
}

// =============================================================================

// retryableLogger adapts the zap logger to the retryablehttp.LeveledLogger
// interface.
type retryableLogger struct {
	log *zap.SugaredLogger
}

func (r *retryableLogger) Error(msg string, keysAndValues ...any) {
	r.log.Errorw(msg, keysAndValues...)
}

func (r *retryableLogger) Info(msg string, keysAndValues ...any) {
	r.log.Infow(msg, keysAndValues...)
}

func (r *retryableLogger) Warn(msg string, keysAndValues ...any) {
	r.log.Warnw(msg, keysAndValues...)
}

func (r *retryableLogger) Debug(msg string, keysAndValues ...any) {
	r.log.Debugw(msg, keysAndValues...)
}
