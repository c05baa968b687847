// Package args implements the key=value argument grammar shared by every
// slash command and the typed coercion helpers over it.
package args

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FlagValue is the value a bare token maps to.
const FlagValue = "True"

// Args is the parsed key→value mapping for one invocation. It is built
// fresh per invocation and discarded after the command's parse stage.
type Args map[string]string

// Parse splits each token on the first "=". A token without "=" becomes a
// flag mapping to FlagValue. No schema is applied here; unknown keys are
// simply ignored by the coercion helpers.
func Parse(tokens []string) Args {
	out := Args{}
	for _, token := range tokens {
		if token == "" {
			continue
		}
		key, value, found := strings.Cut(token, "=")
		if !found {
			out[key] = FlagValue
			continue
		}
		out[key] = value
	}
	return out
}

// ArgumentError reports one or more malformed or missing arguments. It is
// raised before any I/O and rendered field-by-field by the dispatcher.
type ArgumentError struct {
	Fields map[string]string
}

func NewArgumentError(field, reason string) *ArgumentError {
	return &ArgumentError{Fields: map[string]string{field: reason}}
}

func (e *ArgumentError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %s", name, e.Fields[name])
	}
	return "invalid arguments: " + strings.Join(parts, ", ")
}

// Has reports whether key is present.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// String returns the raw value for key, or def when absent.
func (a Args) String(key, def string) string {
	if v, ok := a[key]; ok {
		return v
	}
	return def
}

// Bool reports true when key is present with any value other than "false"
// (case-insensitive). Absent keys return def.
func (a Args) Bool(key string, def bool) bool {
	v, ok := a[key]
	if !ok {
		return def
	}
	return !strings.EqualFold(v, "false")
}

// Int parses the value for key as an integer. A missing key returns def.
func (a Args) Int(key string, def int) (int, error) {
	v, ok := a[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, NewArgumentError(key, "数値の指定が正しくありません")
	}
	return n, nil
}

// Int64 parses the value for key as a 64-bit integer, for entity ids.
func (a Args) Int64(key string, def int64) (int64, error) {
	v, ok := a[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, NewArgumentError(key, "IDの指定が正しくありません")
	}
	return n, nil
}

// RequireInt64 is Int64 for mandatory keys.
func (a Args) RequireInt64(key string) (int64, error) {
	if !a.Has(key) {
		return 0, NewArgumentError(key, "必ず指定してください")
	}
	return a.Int64(key, 0)
}

// List splits the value for key on sep. A missing key returns def.
func (a Args) List(key, sep string, def []string) []string {
	v, ok := a[key]
	if !ok {
		return def
	}
	return strings.Split(v, sep)
}

// Int64List splits the value for key on sep and parses every element as a
// 64-bit integer. Any bad element fails the whole key.
func (a Args) Int64List(key, sep string, def []int64) ([]int64, error) {
	v, ok := a[key]
	if !ok {
		return def, nil
	}
	parts := strings.Split(v, sep)
	out := make([]int64, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, NewArgumentError(key, "IDの指定が正しくありません")
		}
		out = append(out, n)
	}
	return out, nil
}
