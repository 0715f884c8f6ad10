package sqlbuilderutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type cutRow struct {
	ID        int `sql:",table:cut_rows" json:"id"`
	CutLabel  string `json:"label"`
	VideoHash string `json:"hash"`
	Secret    string `sql:"-"`
}

func TestMakeTable(t *testing.T) {
	a := assert.New(t)

	table, err := MakeTable(cutRow{})
	if !a.NoError(err) {
		return
	}

	for _, name := range []string{"CutLabel", "cutlabel", "cut_label", "label", "LABEL"} {
		a.Equal(table.Table.C("cut_label"), table.C(name), name)
	}

	a.NotNil(table.C("hash"))
	a.Equal(table.Table.C("video_hash"), table.C("hash"))
	a.NotEqual(table.C("label"), table.C("hash"))

	a.Nil(table.C("Secret"))
	a.Nil(table.C("nope"))

	a.Contains(table.Names(), "label")
	a.NotContains(table.Names(), "secret")
}

func TestMustMakeTable(t *testing.T) {
	a := assert.New(t)

	a.Panics(func() { MustMakeTable(42) })
	a.NotPanics(func() { MustMakeTable(&cutRow{}) })
}
