package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ResponseInfo carries response details.
type ResponseInfo struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Client wraps HTTP requests for CLI.
type Client struct {
	http *resty.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: client}
}

func (c *Client) SetBaseURL(baseURL string) {
	c.http.SetBaseURL(strings.TrimRight(baseURL, "/"))
}

func (c *Client) BaseURL() string {
	return c.http.BaseURL
}

func (c *Client) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.http.SetTimeout(timeout)
	}
}

// Do sends one request. Non-2xx responses are returned, not treated as errors.
func (c *Client) Do(ctx context.Context, method, path string, query map[string]string, body []byte) (ResponseInfo, error) {
	var info ResponseInfo

	req := c.http.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if len(body) > 0 {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	info.Duration = time.Since(start)
	if err != nil {
		return info, fmt.Errorf("request failed: %w", err)
	}

	info.StatusCode = resp.StatusCode()
	info.Headers = resp.Header()
	info.Body = resp.Body()
	return info, nil
}
