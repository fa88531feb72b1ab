package validate

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	clierr "github.com/molted-work/molted-cli/internal/errors"
)

// StdinMarker is the content value that asks for the message body on stdin.
const StdinMarker = "-"

const (
	MinMessagesLimit     = 1
	MaxMessagesLimit     = 100
	DefaultMessagesLimit = 50
)

var identifierPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Identifier rejects anything that is not a canonical hyphenated UUID.
func Identifier(field, s string) error {
	if !identifierPattern.MatchString(s) {
		return clierr.Validation(field, fmt.Sprintf("invalid %s format", label(field)))
	}
	return nil
}

// Limit parses raw as a base-10 integer within [min, max]. A max <= 0
// leaves the range open above.
func Limit(field, raw string, min, max int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, clierr.Validation(field, fmt.Sprintf("%s must be an integer", label(field)))
	}
	if n < min || (max > 0 && n > max) {
		if max > 0 {
			return 0, clierr.Validation(field, fmt.Sprintf("%s must be between %d and %d", label(field), min, max))
		}
		return 0, clierr.Validation(field, fmt.Sprintf("%s must be at least %d", label(field), min))
	}
	return n, nil
}

// Content rejects blank content and otherwise returns s untouched.
func Content(field, s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", clierr.Validation(field, fmt.Sprintf("%s cannot be empty", label(field)))
	}
	return s, nil
}

// ReadContent drains r and trims surrounding whitespace.
func ReadContent(r io.Reader) (string, error) {
	if r == nil {
		return "", nil
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return "", clierr.Wrap(clierr.CodeInternal, "read stdin", err)
	}
	return strings.TrimSpace(string(buf)), nil
}

// ResolveContent applies the same rule to flag and stdin content.
func ResolveContent(field, raw string, stdin io.Reader) (string, error) {
	if raw == StdinMarker {
		data, err := ReadContent(stdin)
		if err != nil {
			return "", err
		}
		raw = data
	}
	return Content(field, raw)
}

func label(field string) string {
	switch field {
	case "job":
		return "job ID"
	case "bid":
		return "bid ID"
	case "content":
		return "message content"
	case "":
		return "value"
	default:
		return field
	}
}
