package models

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/niconiahi/olga.media/internal/show"
	"github.com/niconiahi/olga.media/internal/sqlbuilderutil"
	"github.com/niconiahi/olga.media/internal/sqltypes"
	"github.com/niconiahi/olga.media/internal/ytutil"
)

var (
	CutSearchTable *sqlbuilderutil.Table
)

func init() {
	CutSearchTable = sqlbuilderutil.MustMakeTable(CutSearch{})
}

// CutSearch is a row of the cut_search view: a cut joined with its video
// and its upvote count.
type CutSearch struct {
	CutID          int       `sql:",table:cut_search" json:"id"`
	CutPosition    int       `json:"position"`
	CutStart       string    `json:"start"`
	CutSeconds     int       `json:"seconds"`
	CutLabel       string    `json:"label"`
	VideoID        int       `json:"video_id"`
	VideoCreatedAt time.Time `json:"created_at"`
	VideoHash      string    `json:"hash"`
	VideoTitle     string    `json:"title"`
	VideoShow      show.Show `json:"show"`
	VideoDay       int       `json:"day"`
	VideoMonth     int       `json:"month"`
	UpvoteCount    int       `json:"upvotes"`
}

func (s *CutSearch) OverrideScan(names []string, scanners []sql.Scanner) error {
	for i, name := range names {
		if name == "VideoCreatedAt" {
			scanners[i] = &sqltypes.TimeScanner{Value: &s.VideoCreatedAt}
		}
	}

	return nil
}

// WatchURL links straight to the moment the cut starts.
func (s CutSearch) WatchURL() string {
	return ytutil.WatchURL(s.VideoHash, s.CutSeconds)
}

func (s CutSearch) ShowTitle() string {
	return s.VideoShow.Title()
}

func (s CutSearch) Date() string {
	return fmt.Sprintf("%d/%d", s.VideoDay, s.VideoMonth)
}
