// Package listing finds the episodes of a given day on the channel's search
// results page.
package listing

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/niconiahi/olga.media/internal/show"
	"github.com/niconiahi/olga.media/internal/validation"
)

var (
	ErrNoVideos = errors.New("no videos found for that day")
	ErrBadDate  = errors.New("day or month out of range")
)

type ValidationError = validation.Error

type Video struct {
	Hash  string    `json:"hash" validate:"required"`
	Title string    `json:"title" validate:"required"`
	Show  show.Show `json:"show" validate:"required,show"`
}

var videoPattern = regexp.MustCompile(`"videoId":"([^"]*?)".*?"text":"((?:[^"\\]|\\.)*)"`)

// Query is the search term used for a day, e.g. "12/10".
func Query(day, month int) string {
	return fmt.Sprintf("%d/%d", day, month)
}

func CheckDate(day, month int) error {
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return fmt.Errorf("listing.CheckDate: %d/%d: %w", day, month, ErrBadDate)
	}

	return nil
}

// Scan returns the videos on the page whose title mentions day/month. It
// returns ErrNoVideos when there are none and a *ValidationError when any
// of them can't be classified or is missing data.
func Scan(text string, day, month int) ([]Video, error) {
	if err := CheckDate(day, month); err != nil {
		return nil, fmt.Errorf("listing.Scan: %w", err)
	}

	query := Query(day, month)

	var (
		videos     []Video
		classified []error
		seen       = make(map[string]bool)
	)

	for _, m := range videoPattern.FindAllStringSubmatch(text, -1) {
		hash, title := m[1], m[2]

		if !strings.Contains(title, query) || seen[hash] {
			continue
		}
		seen[hash] = true

		s, err := show.Classify(title)

		videos = append(videos, Video{Hash: hash, Title: title, Show: s})
		classified = append(classified, err)
	}

	if len(videos) == 0 {
		return nil, fmt.Errorf("listing.Scan: %s: %w", query, ErrNoVideos)
	}

	if err := validation.Batch("video", videos); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			for i := range verr.Violations {
				v := &verr.Violations[i]
				if v.Field == "show" && classified[v.Index] != nil {
					v.Rule = "classify"
					v.Message = "title does not contain a known show name"
					v.Err = classified[v.Index]
				}
			}
		}

		return nil, fmt.Errorf("listing.Scan: %w", err)
	}

	return videos, nil
}
