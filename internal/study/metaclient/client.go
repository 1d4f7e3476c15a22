package metaclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dailystudy/internal/study/model"

	"github.com/go-resty/resty/v2"
)

const (
	defaultBaseURL = "https://solved.ac/api/v3"
	defaultTimeout = 10 * time.Second
)

// Config holds problem metadata API settings.
type Config struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// StatusError is returned when the metadata API answers with a non-2xx status.
type StatusError struct {
	ProblemID  int64
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("problem meta %d: api returned %d", e.ProblemID, e.StatusCode)
}

// NotFound reports whether the problem does not exist upstream.
func (e *StatusError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

type problemShowResponse struct {
	ProblemID int64  `json:"problemId"`
	TitleKo   string `json:"titleKo"`
	Level     int    `json:"level"`
}

// Client queries solved.ac for problem titles and levels.
type Client struct {
	http *resty.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json"),
	}
}

// FetchProblemMeta returns the localized title and level of problemID.
func (c *Client) FetchProblemMeta(ctx context.Context, problemID int64) (model.ProblemMeta, error) {
	var body problemShowResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("problemId", strconv.FormatInt(problemID, 10)).
		SetResult(&body).
		Get("/problem/show")
	if err != nil {
		return model.ProblemMeta{}, fmt.Errorf("fetch problem meta %d: %w", problemID, err)
	}
	if resp.IsError() {
		return model.ProblemMeta{}, &StatusError{ProblemID: problemID, StatusCode: resp.StatusCode()}
	}
	return model.ProblemMeta{
		ProblemID: problemID,
		TitleKo:   body.TitleKo,
		Level:     body.Level,
	}, nil
}
