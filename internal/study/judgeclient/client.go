package judgeclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"dailystudy/internal/study/model"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "https://www.acmicpc.net"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"
	defaultTimeout   = 30 * time.Second

	acceptedResultID = "4"
	submitTimeColumn = 8
)

var problemHrefPattern = regexp.MustCompile(`/problem/(\d+)`)

// Config holds judge site client settings.
type Config struct {
	BaseURL   string        `yaml:"baseURL"`
	UserAgent string        `yaml:"userAgent"`
	Timeout   time.Duration `yaml:"timeout"`
	// RequestsPerSecond paces status page requests; 0 disables pacing.
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

// StatusError is returned when the judge site answers with a non-2xx status.
type StatusError struct {
	Handle     string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("judge status page for %s returned %d", e.Handle, e.StatusCode)
}

// Retryable reports whether a later attempt may succeed.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Client scrapes a user's accepted submissions from the judge status page.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
}

// NewClient creates a client with defaults applied.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept-Language", "ko-KR,ko;q=0.9")

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &Client{http: httpClient, limiter: limiter}
}

// FetchUserSubmissions returns the accepted submissions listed for handle.
func (c *Client) FetchUserSubmissions(ctx context.Context, handle string) ([]model.Submission, error) {
	if handle == "" {
		return nil, fmt.Errorf("handle is required")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"user_id":   handle,
			"result_id": acceptedResultID,
		}).
		Get("/status")
	if err != nil {
		return nil, fmt.Errorf("fetch status page for %s: %w", handle, err)
	}
	if resp.IsError() {
		return nil, &StatusError{Handle: handle, StatusCode: resp.StatusCode()}
	}
	return ParseStatusPage(bytes.NewReader(resp.Body()))
}

// ParseStatusPage extracts (problem id, submit time) pairs from a status page.
// Rows missing either value are dropped, as are exact duplicates.
func ParseStatusPage(r io.Reader) ([]model.Submission, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse status page: %w", err)
	}

	submissions := make([]model.Submission, 0)
	seen := make(map[model.Submission]struct{})
	doc.Find("#status-table tbody tr").Each(func(_ int, row *goquery.Selection) {
		problemID, ok := problemIDOf(row.Find("a.problem_title").First())
		if !ok {
			return
		}
		submitTime := strings.TrimSpace(row.Find("td").Eq(submitTimeColumn).Find("a").First().AttrOr("data-original-title", ""))
		if submitTime == "" {
			return
		}
		sub := model.Submission{ProblemID: problemID, SubmitTime: submitTime}
		if _, dup := seen[sub]; dup {
			return
		}
		seen[sub] = struct{}{}
		submissions = append(submissions, sub)
	})
	return submissions, nil
}

func problemIDOf(link *goquery.Selection) (int64, bool) {
	if raw := strings.TrimSpace(link.AttrOr("data-original-id", "")); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			return id, true
		}
	}
	m := problemHrefPattern.FindStringSubmatch(link.AttrOr("href", ""))
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	return id, err == nil
}
