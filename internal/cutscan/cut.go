package cutscan

import (
	"errors"
	"fmt"

	"github.com/niconiahi/olga.media/internal/timestamp"
	"github.com/niconiahi/olga.media/internal/validation"
)

var ErrNoCuts = errors.New("no cuts found in description")

type ValidationError = validation.Error

type Cut struct {
	Start    string `json:"start"`
	Seconds  int    `json:"seconds"`
	Label    string `json:"label"`
	VideoRef int    `json:"video_ref"`
}

// Validate checks every raw cut and converts the batch. One bad record
// rejects all of them; the error is a *ValidationError naming each problem.
func Validate(raws []RawCut) ([]Cut, error) {
	if err := validation.Batch("cut", raws); err != nil {
		return nil, fmt.Errorf("cutscan.Validate: %w", err)
	}

	cuts := make([]Cut, len(raws))
	for i, r := range raws {
		n, err := timestamp.Seconds(r.Start)
		if err != nil {
			return nil, fmt.Errorf("cutscan.Validate: cut %d: %w", i, err)
		}

		cuts[i] = Cut{
			Start:    r.Start,
			Seconds:  n,
			Label:    r.Label,
			VideoRef: r.VideoRef,
		}
	}

	return cuts, nil
}

// Dedupe cuts the list where the first start time comes around again. A list
// that never repeats is returned as is.
func Dedupe(cuts []Cut) []Cut {
	if len(cuts) == 0 {
		return cuts
	}

	sentinel := cuts[0].Start

	for i := 1; i < len(cuts); i++ {
		if cuts[i].Start == sentinel {
			return cuts[:i]
		}
	}

	return cuts
}

// Parse runs the whole pipeline over one watch page's text.
func Parse(text string, videoRef int) ([]Cut, error) {
	raws := Extract(text, videoRef)
	if len(raws) == 0 {
		return nil, fmt.Errorf("cutscan.Parse: %w", ErrNoCuts)
	}

	cuts, err := Validate(raws)
	if err != nil {
		return nil, fmt.Errorf("cutscan.Parse: %w", err)
	}

	return Dedupe(cuts), nil
}
