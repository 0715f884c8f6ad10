package models

import (
	"database/sql"
	"time"

	"github.com/niconiahi/olga.media/internal/show"
	"github.com/niconiahi/olga.media/internal/sqlbuilderutil"
	"github.com/niconiahi/olga.media/internal/sqltypes"
)

var (
	VideoTable *sqlbuilderutil.Table
)

func init() {
	VideoTable = sqlbuilderutil.MustMakeTable(Video{})
}

// Video is one episode of a show. It's written once, when its cuts are
// first collected.
type Video struct {
	ID        int `sql:",table:videos"`
	CreatedAt time.Time
	UpdatedAt *time.Time
	Hash      string
	Title     string
	Show      show.Show
	Day       int
	Month     int
}

func (v *Video) OverrideScan(names []string, scanners []sql.Scanner) error {
	for i, name := range names {
		switch name {
		case "CreatedAt":
			scanners[i] = &sqltypes.TimeScanner{Value: &v.CreatedAt}
		case "UpdatedAt":
			scanners[i] = &sqltypes.TimePointerScanner{Value: &v.UpdatedAt}
		}
	}

	return nil
}
