package models

import (
	"database/sql"
	"time"

	"github.com/niconiahi/olga.media/internal/sqlbuilderutil"
	"github.com/niconiahi/olga.media/internal/sqltypes"
)

var (
	CutTable *sqlbuilderutil.Table
)

func init() {
	CutTable = sqlbuilderutil.MustMakeTable(Cut{})
}

type Cut struct {
	ID        int `sql:",table:cuts"`
	CreatedAt time.Time
	VideoID   int
	Position  int
	Start     string
	Seconds   int
	Label     string
}

func (c *Cut) OverrideScan(names []string, scanners []sql.Scanner) error {
	for i, name := range names {
		if name == "CreatedAt" {
			scanners[i] = &sqltypes.TimeScanner{Value: &c.CreatedAt}
		}
	}

	return nil
}
