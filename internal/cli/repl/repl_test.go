package repl_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"dailystudy/internal/cli/command"
	httpclient "dailystudy/internal/cli/http"
	"dailystudy/internal/cli/repl"
	"dailystudy/internal/testutil"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	body   map[string]string
}

type studyServer struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (s *studyServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := recordedRequest{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req.body)
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path == "/api/v1/excuse" {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":13100,"message":"daily record already exists"}`))
		return
	}
	_, _ = w.Write([]byte(`{"code":10000,"message":"Success","data":{"results":[]}}`))
}

func newSession(t *testing.T, input string) (*repl.Session, *studyServer, *bytes.Buffer) {
	t.Helper()
	backend := &studyServer{}
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	out := &bytes.Buffer{}
	client := httpclient.New(server.URL, time.Second)
	session := repl.New(client, command.Registry(), false, strings.NewReader(input), out)
	return session, backend, out
}

func TestRunDispatchesCommands(t *testing.T) {
	session, backend, out := newSession(t, "crawl run\nstats get start=2025-07-01 to=2025-07-14\nexit\ncrawl last\n")
	session.Run(context.Background())

	testutil.AssertEqual(t, len(backend.requests), 2)
	testutil.AssertEqual(t, backend.requests[0].method, http.MethodPost)
	testutil.AssertEqual(t, backend.requests[0].path, "/api/v1/crawl")
	testutil.AssertEqual(t, backend.requests[1].path, "/api/v1/stats")
	testutil.AssertEqual(t, backend.requests[1].query, "end=2025-07-14&start=2025-07-01")
	testutil.AssertTrue(t, strings.Contains(out.String(), "HTTP 200"), "response status should be printed")
	testutil.AssertTrue(t, strings.Contains(out.String(), "bye"), "exit should end the session")
}

func TestPromptsForMissingFields(t *testing.T) {
	session, backend, out := newSession(t, "excuse create user=alice\n2025-07-14\n병원\n")
	session.Run(context.Background())

	testutil.AssertEqual(t, len(backend.requests), 1)
	testutil.AssertEqual(t, backend.requests[0].body["userId"], "alice")
	testutil.AssertEqual(t, backend.requests[0].body["date"], "2025-07-14")
	testutil.AssertTrue(t, strings.Contains(out.String(), "date (YYYY-MM-DD):"), "missing date should be prompted")
	testutil.AssertTrue(t, strings.Contains(out.String(), "failed [13100]"), "error envelope should be summarized")
}

func TestExecReportsInputErrors(t *testing.T) {
	session, backend, out := newSession(t, "")
	ctx := context.Background()

	testutil.AssertFalse(t, session.Exec(ctx, "grades list"), "unknown command keeps the session")
	testutil.AssertFalse(t, session.Exec(ctx, "stats get start=2025-07-01 end=14/07/2025"), "bad date keeps the session")
	testutil.AssertFalse(t, session.Exec(ctx, "help"), "help keeps the session")
	testutil.AssertTrue(t, session.Exec(ctx, "quit"), "quit ends the session")

	testutil.AssertEqual(t, len(backend.requests), 0)
	text := out.String()
	testutil.AssertTrue(t, strings.Contains(text, "unknown command: grades list"), text)
	testutil.AssertTrue(t, strings.Contains(text, "invalid end"), text)
	testutil.AssertTrue(t, strings.Contains(text, "excuse create"), text)
}
