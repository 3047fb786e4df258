package convert

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrInvalidArgument is matched by every error the converters return.
var ErrInvalidArgument = errors.New("invalid argument")

// ArgumentError reports a malformed call. Args names the offending parameters;
// Extras carries additional values useful for diagnosis, such as the pulse at
// the offset that failed.
type ArgumentError struct {
	Message string
	Args    map[string]any
	Extras  map[string]any
	Err     error // Underlying error (optional)
}

func (e *ArgumentError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	writeFields(&sb, e.Args)
	writeFields(&sb, e.Extras)
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func writeFields(sb *strings.Builder, fields map[string]any) {
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		fmt.Fprintf(sb, " %s=%v", k, fields[k])
	}
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

func argumentError(message string, args map[string]any) *ArgumentError {
	return &ArgumentError{Message: message, Args: args}
}
