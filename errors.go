package boundcache

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by mutating operations after Close.
var ErrClosed = errors.New("boundcache: cache is closed")

// ConfigError reports an Options field that failed eager validation.
// Construction never proceeds with an invalid bound.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("boundcache: invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

func configErr(field string, value any, reason string) error {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}
