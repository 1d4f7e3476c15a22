package repl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"dailystudy/internal/cli/command"
	httpclient "dailystudy/internal/cli/http"
	pkgerrors "dailystudy/pkg/errors"

	"github.com/google/shlex"
)

const prompt = "study> "

// Session holds REPL state.
type Session struct {
	client       *httpclient.Client
	commands     map[string]command.Command
	prettyJSON   bool
	input        *bufio.Reader
	outputWriter *bufio.Writer
}

func New(client *httpclient.Client, commands map[string]command.Command, prettyJSON bool, in io.Reader, out io.Writer) *Session {
	return &Session{
		client:       client,
		commands:     commands,
		prettyJSON:   prettyJSON,
		input:        bufio.NewReader(in),
		outputWriter: bufio.NewWriter(out),
	}
}

// Run reads commands until exit or end of input.
func (s *Session) Run(ctx context.Context) {
	for {
		_, _ = s.outputWriter.WriteString(prompt)
		_ = s.outputWriter.Flush()
		line, err := s.input.ReadString('\n')
		if err != nil && (err != io.EOF || strings.TrimSpace(line) == "") {
			if err != io.EOF {
				s.printLine("read input failed: %v", err)
			}
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if done := s.Exec(ctx, line); done {
			return
		}
	}
}

// Exec runs one input line and reports whether the session should end.
func (s *Session) Exec(ctx context.Context, line string) bool {
	switch line {
	case "exit", "quit":
		s.printLine("bye")
		return true
	case "help":
		s.printHelp()
		return false
	}
	if strings.HasPrefix(line, "set ") {
		s.handleSet(strings.TrimSpace(strings.TrimPrefix(line, "set ")))
		return false
	}
	if line == "show config" {
		s.printLine("base: %s", s.client.BaseURL())
		return false
	}
	if err := s.handleCommand(ctx, line); err != nil {
		s.printLine("error: %v", err)
	}
	return false
}

func (s *Session) handleSet(args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		s.printLine("usage: set base|timeout")
		return
	}
	switch parts[0] {
	case "base":
		if len(parts) < 2 {
			s.printLine("usage: set base http://127.0.0.1:8080")
			return
		}
		s.client.SetBaseURL(parts[1])
		s.printLine("base set to %s", parts[1])
	case "timeout":
		if len(parts) < 2 {
			s.printLine("usage: set timeout 10s")
			return
		}
		dur, err := time.ParseDuration(parts[1])
		if err != nil {
			s.printLine("invalid duration: %v", err)
			return
		}
		s.client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	default:
		s.printLine("unknown set command")
	}
}

func (s *Session) handleCommand(ctx context.Context, line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	if len(tokens) < 2 {
		return fmt.Errorf("invalid command, use: <service> <action> key=value ...")
	}
	key := tokens[0] + " " + tokens[1]
	cmd, ok := s.commands[key]
	if !ok {
		return fmt.Errorf("unknown command: %s", key)
	}
	params := command.Params{}
	for _, token := range tokens[2:] {
		parts := strings.SplitN(token, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid param: %s", token)
		}
		params.Set(parts[0], parts[1])
	}
	params.Canonicalize(cmd.Fields)

	if err := s.promptMissing(cmd, params); err != nil {
		return err
	}
	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(ctx, req.Method, req.Path, req.Query, req.Body)
	if err != nil {
		return err
	}
	s.renderResponse(resp)
	return nil
}

func (s *Session) promptMissing(cmd command.Command, params command.Params) error {
	for _, field := range cmd.Fields {
		if !field.Required || params.Get(field.Name) != "" {
			continue
		}
		s.printLine("%s:", field.Prompt)
		line, err := s.input.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return fmt.Errorf("read input failed: %w", err)
		}
		params.Set(field.Name, strings.TrimSpace(line))
	}
	return nil
}

func (s *Session) renderResponse(resp httpclient.ResponseInfo) {
	s.printLine("HTTP %d (%s)", resp.StatusCode, resp.Duration.Round(time.Millisecond))
	if len(resp.Body) == 0 {
		return
	}

	var envelope struct {
		Code    pkgerrors.ErrorCode `json:"code"`
		Message string              `json:"message"`
	}
	if err := json.Unmarshal(resp.Body, &envelope); err == nil && envelope.Code != 0 && envelope.Code != pkgerrors.Success {
		s.printLine("failed [%d]: %s", envelope.Code, envelope.Message)
	}

	if s.prettyJSON {
		var raw interface{}
		if err := json.Unmarshal(resp.Body, &raw); err == nil {
			formatted, _ := json.MarshalIndent(raw, "", "  ")
			s.printLine("%s", string(formatted))
			return
		}
	}
	s.printLine("%s", string(resp.Body))
}

func (s *Session) printHelp() {
	s.printLine("usage: <service> <action> key=value ...")
	s.printLine("system: help | exit | set base|timeout | show config")
	s.printLine("commands:")
	for _, key := range command.SortedKeys(s.commands) {
		cmd := s.commands[key]
		names := make([]string, 0, len(cmd.Fields))
		for _, field := range cmd.Fields {
			if field.Required {
				names = append(names, field.Name+"=")
			} else {
				names = append(names, "["+field.Name+"=]")
			}
		}
		s.printLine("  %-16s %-28s %s", key, strings.Join(names, " "), cmd.Summary)
	}
	s.printLine("examples:")
	s.printLine("  stats get start=2025-07-01 end=2025-07-14")
	s.printLine("  excuse create user=alice date=today excuse=\"병원 진료\"")
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.outputWriter, format+"\n", args...)
	_ = s.outputWriter.Flush()
}
