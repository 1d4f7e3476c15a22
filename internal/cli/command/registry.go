package command

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Registry returns all CLI commands keyed by "service action".
func Registry() map[string]Command {
	commands := []Command{
		{
			Service: "crawl",
			Action:  "run",
			Method:  "POST",
			Path:    "/api/v1/crawl",
			Summary: "run one crawl now and print its decisions",
		},
		{
			Service: "crawl",
			Action:  "last",
			Method:  "GET",
			Path:    "/api/v1/crawl/last-crawl",
			Summary: "show the last successful crawl",
		},
		{
			Service: "submissions",
			Action:  "get",
			Method:  "GET",
			Path:    "/api/v1/submissions",
			Summary: "list records of a day",
			Fields: []Field{
				{Name: "date", Prompt: "date (YYYY-MM-DD)", Type: FieldDate, Required: false},
			},
		},
		{
			Service: "stats",
			Action:  "get",
			Method:  "GET",
			Path:    "/api/v1/stats",
			Summary: "missing and paid counts per user",
			Fields: []Field{
				{Name: "start", Aliases: []string{"from"}, Prompt: "start (YYYY-MM-DD)", Type: FieldDate, Required: true},
				{Name: "end", Aliases: []string{"to"}, Prompt: "end (YYYY-MM-DD)", Type: FieldDate, Required: true},
			},
		},
		{
			Service: "stats",
			Action:  "missed",
			Method:  "GET",
			Path:    "/api/v1/stats/missed",
			Summary: "user-days without any record",
			Fields: []Field{
				{Name: "start", Aliases: []string{"from"}, Prompt: "start (YYYY-MM-DD)", Type: FieldDate, Required: true},
				{Name: "end", Aliases: []string{"to"}, Prompt: "end (YYYY-MM-DD)", Type: FieldDate, Required: true},
			},
		},
		{
			Service: "excuse",
			Action:  "create",
			Method:  "POST",
			Path:    "/api/v1/excuse",
			Summary: "file an excuse for a day without submissions",
			Fields: []Field{
				{Name: "user", Aliases: []string{"user_id", "handle"}, Prompt: "user", Type: FieldString, Required: true, JSONName: "userId"},
				{Name: "date", Prompt: "date (YYYY-MM-DD)", Type: FieldDate, Required: true, JSONName: "date"},
				{Name: "excuse", Aliases: []string{"reason"}, Prompt: "excuse", Type: FieldString, Required: true, JSONName: "excuse"},
			},
		},
	}

	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		result[cmd.Key()] = cmd
	}
	return result
}

// SortedKeys returns registry keys in display order.
func SortedKeys(commands map[string]Command) []string {
	keys := make([]string, 0, len(commands))
	for key := range commands {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// BuildRequest creates HTTP request spec based on command.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	params.Canonicalize(cmd.Fields)

	values := make(map[string]string, len(cmd.Fields))
	for _, field := range cmd.Fields {
		value := strings.TrimSpace(params.Get(field.Name))
		if value == "" {
			if field.Required {
				return RequestSpec{}, fmt.Errorf("missing parameter: %s", field.Name)
			}
			continue
		}
		if field.Type == FieldDate {
			normalized, err := ValidateDate(value)
			if err != nil {
				return RequestSpec{}, fmt.Errorf("invalid %s: must be YYYY-MM-DD", field.Name)
			}
			value = normalized
		}
		values[field.Name] = value
	}

	spec := RequestSpec{Method: cmd.Method, Path: cmd.Path}
	if cmd.Method == "GET" {
		if len(values) > 0 {
			spec.Query = values
		}
		return spec, nil
	}

	payload := make(map[string]string, len(values))
	for _, field := range cmd.Fields {
		if value, ok := values[field.Name]; ok {
			name := field.JSONName
			if name == "" {
				name = field.Name
			}
			payload[name] = value
		}
	}
	if len(payload) > 0 {
		body, err := json.Marshal(payload)
		if err != nil {
			return RequestSpec{}, fmt.Errorf("marshal request body failed: %w", err)
		}
		spec.Body = body
	}
	return spec, nil
}
