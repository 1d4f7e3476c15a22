package command

import (
	"strings"
	"time"

	"dailystudy/internal/study/rules"
)

// FieldType describes input type.
type FieldType int

const (
	FieldString FieldType = iota
	FieldDate
)

// Field defines a CLI input field.
type Field struct {
	Name     string
	Aliases  []string
	Prompt   string
	Type     FieldType
	Required bool
	// JSONName is the body key; GET commands send Name as a query parameter.
	JSONName string
}

// Command defines a CLI command binding.
type Command struct {
	Service string
	Action  string
	Method  string
	Path    string
	Summary string
	Fields  []Field
}

// Key returns the "service action" lookup key.
func (c Command) Key() string {
	return c.Service + " " + c.Action
}

// RequestSpec is the built HTTP request.
type RequestSpec struct {
	Method string
	Path   string
	Query  map[string]string
	Body   []byte
}

// Params holds parsed input params.
type Params map[string]string

func (p Params) Get(key string) string {
	return p[strings.ToLower(key)]
}

func (p Params) Set(key, value string) {
	p[strings.ToLower(key)] = value
}

func (p Params) Has(key string) bool {
	_, ok := p[strings.ToLower(key)]
	return ok
}

func (p Params) Canonicalize(fields []Field) {
	for _, field := range fields {
		for _, alias := range field.Aliases {
			aliasKey := strings.ToLower(alias)
			if value, ok := p[aliasKey]; ok {
				p[strings.ToLower(field.Name)] = value
				delete(p, aliasKey)
			}
		}
	}
}

// ValidateDate accepts YYYY-MM-DD and the shortcut "today".
func ValidateDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "today" {
		return rules.FormatDate(time.Now()), nil
	}
	if _, err := rules.ParseDate(value); err != nil {
		return "", err
	}
	return value, nil
}
