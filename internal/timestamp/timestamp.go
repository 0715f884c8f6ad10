// Package timestamp parses the chapter markers found in video descriptions.
//
// Accepted forms are "m:ss", "mm:ss", "h:mm:ss" and a bare number of seconds.
package timestamp

import (
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrEmpty     = fmt.Errorf("timestamp: empty token")
	ErrMalformed = fmt.Errorf("timestamp: malformed token")
)

type Timestamp struct {
	Hours   int
	Minutes int
	Seconds int

	// groups is how many colon separated groups the token had; 0 for a bare
	// number of seconds
	groups int
}

func Parse(token string) (Timestamp, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Timestamp{}, fmt.Errorf("timestamp.Parse: %w", ErrEmpty)
	}

	parts := strings.Split(token, ":")

	if len(parts) == 1 {
		n, err := parseGroup(parts[0], 0)
		if err != nil {
			return Timestamp{}, fmt.Errorf("timestamp.Parse: %q: %w", token, err)
		}

		return Timestamp{Seconds: n}, nil
	}

	if len(parts) > 3 {
		return Timestamp{}, fmt.Errorf("timestamp.Parse: %q has %d groups: %w", token, len(parts), ErrMalformed)
	}

	values := make([]int, len(parts))
	for i, part := range parts {
		width := 2
		if i == 0 {
			width = 0
		}

		n, err := parseGroup(part, width)
		if err != nil {
			return Timestamp{}, fmt.Errorf("timestamp.Parse: %q group %d: %w", token, i+1, err)
		}

		if i > 0 && n > 59 {
			return Timestamp{}, fmt.Errorf("timestamp.Parse: %q group %d is %d, should be at most 59: %w", token, i+1, n, ErrMalformed)
		}

		values[i] = n
	}

	if len(values) == 2 {
		if len(parts[0]) > 2 {
			return Timestamp{}, fmt.Errorf("timestamp.Parse: %q minutes group is too long: %w", token, ErrMalformed)
		}

		return Timestamp{Minutes: values[0], Seconds: values[1], groups: 2}, nil
	}

	if len(parts[0]) > 2 {
		return Timestamp{}, fmt.Errorf("timestamp.Parse: %q hours group is too long: %w", token, ErrMalformed)
	}

	return Timestamp{Hours: values[0], Minutes: values[1], Seconds: values[2], groups: 3}, nil
}

// parseGroup reads an ASCII decimal group. A width of 0 allows any length.
func parseGroup(s string, width int) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty group: %w", ErrMalformed)
	}

	if width != 0 && len(s) != width {
		return 0, fmt.Errorf("group %q should have %d digits: %w", s, width, ErrMalformed)
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("group %q is not numeric: %w", s, ErrMalformed)
		}
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("group %q: %w", s, ErrMalformed)
	}

	return n, nil
}

func (t Timestamp) String() string {
	switch t.groups {
	case 3:
		return fmt.Sprintf("%d:%02d:%02d", t.Hours, t.Minutes, t.Seconds)
	case 2:
		return fmt.Sprintf("%02d:%02d", t.Minutes, t.Seconds)
	default:
		return strconv.Itoa(t.Seconds)
	}
}

func (t Timestamp) TotalSeconds() int {
	return t.Hours*3600 + t.Minutes*60 + t.Seconds
}

func Normalize(token string) (string, error) {
	t, err := Parse(token)
	if err != nil {
		return "", fmt.Errorf("timestamp.Normalize: %w", err)
	}

	return t.String(), nil
}

func Seconds(token string) (int, error) {
	t, err := Parse(token)
	if err != nil {
		return 0, fmt.Errorf("timestamp.Seconds: %w", err)
	}

	return t.TotalSeconds(), nil
}

func Valid(token string) bool {
	_, err := Parse(token)
	return err == nil
}
