// Package env reads process configuration. A variable that is set but blank
// counts as unset, so an exported-but-empty value falls back to the default.
package env

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func parse[T any](key string, def T, fn func(string) (T, error)) (T, error) {
	v, ok := lookup(key)
	if !ok {
		return def, nil
	}
	out, err := fn(v)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("parse %s=%q: %w", key, v, err)
	}
	return out, nil
}

func String(key string, def string) string {
	if v, ok := lookup(key); ok {
		return v
	}
	return def
}

func Duration(key string, def time.Duration) (time.Duration, error) {
	return parse(key, def, time.ParseDuration)
}

func Int(key string, def int) (int, error) {
	return parse(key, def, strconv.Atoi)
}

// StringList splits a comma separated value, dropping blank entries.
func StringList(key string, def []string) []string {
	v, ok := lookup(key)
	if !ok {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
