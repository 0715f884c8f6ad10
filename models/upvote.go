package models

import (
	"database/sql"
	"time"

	"github.com/niconiahi/olga.media/internal/sqlbuilderutil"
	"github.com/niconiahi/olga.media/internal/sqltypes"
)

var (
	UpvoteTable *sqlbuilderutil.Table
)

func init() {
	UpvoteTable = sqlbuilderutil.MustMakeTable(Upvote{})
}

// Upvote records one voter liking one cut. A voter can upvote a cut at most
// once.
type Upvote struct {
	ID        int       `sql:",table:upvotes" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	CutID     int       `json:"cut_id"`
	VoterID   string    `json:"-"`
}

func (u *Upvote) OverrideScan(names []string, scanners []sql.Scanner) error {
	for i, name := range names {
		if name == "CreatedAt" {
			scanners[i] = &sqltypes.TimeScanner{Value: &u.CreatedAt}
		}
	}

	return nil
}
