package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/GordonCopestake/Logisplit/internal/domain"
)

// Endpoints of the processing service
const (
	UploadPath      = "/upload/stream"
	ProgressPath    = "/progress"
	DownloadPath    = "/download"
	PatternsPath    = "/patterns.json"
	SavePatternPath = "/save_pattern_example"
)

// Options configures a Client
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

// Client talks to the processing service. Short request/response calls go
// through a client with a timeout and retries on idempotent reads; uploads,
// the progress stream and the archive download go through a client with
// neither, since their bodies are long-lived or must be sent exactly once.
type Client struct {
	baseURL  string
	http     *resty.Client
	transfer *resty.Client
}

// NewClient creates a new processing service client
func NewClient(opts Options) *Client {
	client := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}

	client.http = resty.New().
		SetHeader("User-Agent", "logisplit").
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(opts.RetryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Only GETs are safe to repeat; adding a pattern twice is not
			if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
				return false
			}
			return retryableStatus(r.StatusCode())
		})

	client.transfer = resty.New().
		SetHeader("User-Agent", "logisplit")

	return client
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// BaseURL returns the service base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL builds the absolute URL for an endpoint
func (c *Client) URL(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "/")
	return fmt.Sprintf("%s/%s", c.baseURL, endpoint)
}

// WebSocketURL builds the ws:// or wss:// URL for an endpoint
func (c *Client) WebSocketURL(endpoint string) (string, error) {
	u, err := url.Parse(c.URL(endpoint))
	if err != nil {
		return "", domain.ConfigError("invalid backend URL", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", domain.ConfigError(fmt.Sprintf("unsupported scheme %q", u.Scheme), nil)
	}
	return u.String(), nil
}

// R starts a request on the retrying client
func (c *Client) R(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx)
}

// TransferR starts a request on the non-retrying client without timeout
func (c *Client) TransferR(ctx context.Context) *resty.Request {
	return c.transfer.R().SetContext(ctx)
}

// Check converts a transport error or a non-success status into a network error
func Check(resp *resty.Response, err error, op string) error {
	if err != nil {
		return domain.NetworkError(op, err)
	}
	if resp == nil {
		return domain.NetworkError(op, fmt.Errorf("no response"))
	}
	if !resp.IsSuccess() {
		return domain.HTTPError(op, resp.StatusCode())
	}
	return nil
}
