// Package service implements the bot's domain logic: history aggregation,
// voice-state classification, ledger-backed subscriptions and lists.
package service

import (
	"fmt"
	"sort"
	"strings"
)

// ExecutionError is a domain-rule violation surfaced to the user with a
// descriptive title and a dump of the offending fields.
type ExecutionError struct {
	Title  string
	Fields map[string]string
}

func NewExecutionError(title string, kv ...string) *ExecutionError {
	fields := map[string]string{}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}
	return &ExecutionError{Title: title, Fields: fields}
}

func (e *ExecutionError) Error() string {
	if len(e.Fields) == 0 {
		return e.Title
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%s", name, e.Fields[name])
	}
	return e.Title + " (" + strings.Join(parts, ", ") + ")"
}

// NotFoundError reports a channel/user/message that could not be resolved.
type NotFoundError struct {
	Kind string // "channel", "user", "message"
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: id=%d", e.Kind, e.ID)
}

// ChannelTypeError reports a channel of the wrong type for the operation.
type ChannelTypeError struct {
	Name string
	Type string
}

func (e *ChannelTypeError) Error() string {
	return fmt.Sprintf("%s is not a text channel: type=%s", e.Name, e.Type)
}
