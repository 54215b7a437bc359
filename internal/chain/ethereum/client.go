package ethereum

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"deposit-collector/pkg/logger"
	"deposit-collector/pkg/monitor"
)

// Options bound every node call. A stalled node must not hold a row lock forever.
type Options struct {
	OpenTimeout time.Duration // TCP connect
	ReadTimeout time.Duration // waiting for the response
	IdleTimeout time.Duration // keep-alive connections
}

// DefaultOptions are open 1s, read 5s, idle 5s.
func DefaultOptions() Options {
	return Options{
		OpenTimeout: time.Second,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 5 * time.Second,
	}
}

// Client is a JSON-RPC 2.0 client for one node. Request ids increase per client
// and responses are matched by id inside the rpc package.
type Client struct {
	rpc *rpc.Client
	url string
}

// Dial prepares a client. HTTP endpoints connect lazily, so Dial does no I/O.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	httpClient := &http.Client{
		Timeout: opts.OpenTimeout + opts.ReadTimeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: opts.OpenTimeout}).DialContext,
			ResponseHeaderTimeout: opts.ReadTimeout,
			IdleConnTimeout:       opts.IdleTimeout,
			MaxIdleConnsPerHost:   16,
		},
	}

	c, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{rpc: c, url: url}, nil
}

// Call invokes method and decodes the result into result (may be nil).
// Failures are returned as *Error wrapping one of the Err* kinds.
func (c *Client) Call(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	if err := c.rpc.CallContext(ctx, result, method, params...); err != nil {
		classified := classify(err)
		monitor.Business.NodeErrorsTotal.WithLabelValues(KindName(classified)).Inc()
		logger.Debug("node call failed",
			zap.String("method", method),
			zap.String("kind", KindName(classified)),
			zap.Error(classified),
		)
		return classified
	}
	return nil
}

func (c *Client) URL() string {
	return c.url
}

func (c *Client) Close() {
	c.rpc.Close()
}
