// Package cutscan pulls the chapter list ("cuts") out of a watch page.
//
// Watch pages embed the video description as a JSON string, so line breaks
// show up as the two characters `\n`. The description lists one
// "<timestamp> <label>" entry per line, and the page repeats the description
// a few times, which Dedupe undoes.
package cutscan

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/niconiahi/olga.media/internal/timestamp"
)

type RawCut struct {
	Start    string `json:"start" validate:"required,timestamp"`
	Label    string `json:"label" validate:"required"`
	VideoRef int    `json:"video_ref" validate:"gte=0"`
}

const escapedNewline = `\n`

type scanState int

const (
	seekingTimestamp scanState = iota
	accumulatingLabel
)

// Extract returns every "<timestamp> <label>" entry in text, in order. It
// returns an empty slice when nothing matches.
func Extract(text string, videoRef int) []RawCut {
	raws := []RawCut{}

	var (
		state      = seekingTimestamp
		pos        int
		candidate  int
		token      string
		labelStart int
	)

	for pos <= len(text) {
		switch state {
		case seekingTimestamp:
			i := strings.Index(text[pos:], escapedNewline)
			if i == -1 {
				return raws
			}

			candidate = pos + i

			end := timestampEnd(text, candidate+len(escapedNewline))
			if end == -1 {
				pos = candidate + 1
				continue
			}

			r, size := utf8.DecodeRuneInString(text[end:])
			if size == 0 || !unicode.IsSpace(r) {
				pos = candidate + 1
				continue
			}

			token = text[candidate+len(escapedNewline) : end]
			labelStart = end + size
			pos = labelStart
			state = accumulatingLabel

		case accumulatingLabel:
			if labelEndsAt(text, pos) {
				raws = append(raws, newRawCut(token, text[labelStart:pos], videoRef))
				state = seekingTimestamp
				if pos == len(text) {
					return raws
				}
				continue
			}

			r, size := utf8.DecodeRuneInString(text[pos:])
			if isLineTerminator(r) {
				// labels never span a real line break; drop this candidate and
				// look again just past where it started
				pos = candidate + 1
				state = seekingTimestamp
				continue
			}

			pos += size
		}
	}

	return raws
}

// labelEndsAt reports whether a label may end at pos: the end of the text, a
// blank line, or the start of the next entry.
func labelEndsAt(text string, pos int) bool {
	if pos == len(text) {
		return true
	}

	rest := text[pos:]
	if !strings.HasPrefix(rest, escapedNewline) {
		return false
	}

	if strings.HasPrefix(rest[len(escapedNewline):], escapedNewline) {
		return true
	}

	return timestampEnd(rest, len(escapedNewline)) != -1
}

// timestampEnd matches `\d{1,2}:\d{2}(:\d{2})?` at text[i:] and returns the
// index just past it, or -1.
func timestampEnd(text string, i int) int {
	j := digitsEnd(text, i, 2)
	if j == i {
		return -1
	}

	j, ok := colonPair(text, j)
	if !ok {
		return -1
	}

	if k, ok := colonPair(text, j); ok {
		return k
	}

	return j
}

func colonPair(text string, i int) (int, bool) {
	if i >= len(text) || text[i] != ':' {
		return i, false
	}

	if j := digitsEnd(text, i+1, 2); j == i+3 {
		return j, true
	}

	return i, false
}

func digitsEnd(text string, i, limit int) int {
	j := i
	for j < len(text) && j-i < limit && text[j] >= '0' && text[j] <= '9' {
		j++
	}

	return j
}

func isLineTerminator(r rune) bool {
	return r == '\n' || r == '\r' || r == '\u2028' || r == '\u2029'
}

func newRawCut(token, label string, videoRef int) RawCut {
	start := token
	if s, err := timestamp.Normalize(token); err == nil {
		start = s
	}

	return RawCut{
		Start:    start,
		Label:    cleanLabel(label),
		VideoRef: videoRef,
	}
}

// cleanLabel trims the label, decodes `\uXXXX` escapes (joining surrogate
// pairs, so emoji survive) and drops any other backslashes left over from the
// JSON encoding.
func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}

		r, ok := unicodeEscape(s, i)
		if !ok {
			continue
		}
		i += 5

		if utf16.IsSurrogate(r) {
			if r2, ok := unicodeEscape(s, i+1); ok {
				if d := utf16.DecodeRune(r, r2); d != utf8.RuneError {
					r = d
					i += 6
				}
			}
		}

		if utf16.IsSurrogate(r) {
			r = utf8.RuneError
		}

		b.WriteRune(r)
	}

	return strings.TrimSpace(b.String())
}

// unicodeEscape reads a `\uXXXX` escape starting at s[i].
func unicodeEscape(s string, i int) (rune, bool) {
	if i+5 >= len(s) || s[i] != '\\' || s[i+1] != 'u' {
		return 0, false
	}

	n, err := strconv.ParseUint(s[i+2:i+6], 16, 32)
	if err != nil {
		return 0, false
	}

	return rune(n), true
}
