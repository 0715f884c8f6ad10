package sqlbuilderutil

import (
	"fmt"
	"sort"
	"strings"

	"fknsrs.biz/p/reflectutil"
	"fknsrs.biz/p/sqlbuilder"

	"github.com/niconiahi/olga.media/internal/stringutil"
)

// Table is a sqlbuilder table whose columns can also be looked up by Go
// field name or by JSON name, so names coming from API query strings map
// onto real columns.
type Table struct {
	*sqlbuilder.Table
	nameMap map[string]string
}

// C returns the column called name, or nil if the table has no such column.
func (t *Table) C(name string) *sqlbuilder.BasicColumn {
	columnName, ok := t.nameMap[name]
	if !ok {
		columnName, ok = t.nameMap[strings.ToLower(name)]
	}
	if !ok {
		return nil
	}

	return t.Table.C(columnName)
}

// Names lists every name C accepts, sorted.
func (t *Table) Names() []string {
	var a []string
	for k := range t.nameMap {
		a = append(a, k)
	}

	sort.Strings(a)

	return a
}

func MakeTable(v interface{}) (*Table, error) {
	s, err := reflectutil.GetDescription(v)
	if err != nil {
		return nil, fmt.Errorf("sqlbuilderutil.MakeTable: could not get struct description: %w", err)
	}

	var tableName string
	var columnNames []string

	nameMap := make(map[string]string)

	for _, f := range s.Fields().WithoutTagValue("sql", "-") {
		var columnName string

		sqlTag := f.Tag("sql")

		if sqlTag != nil && sqlTag.Value() != "" {
			columnName = sqlTag.Value()
		} else {
			columnName = stringutil.PascalToSnake(f.Name())
		}

		columnNames = append(columnNames, columnName)

		nameMap[f.Name()] = columnName
		nameMap[strings.ToLower(f.Name())] = columnName
		nameMap[columnName] = columnName

		if jsonTag := f.Tag("json"); jsonTag != nil && jsonTag.Value() != "" && jsonTag.Value() != "-" {
			if _, taken := nameMap[jsonTag.Value()]; !taken {
				nameMap[jsonTag.Value()] = columnName
			}
		}

		if sqlTag != nil {
			if tableParameter := sqlTag.Parameter("table"); tableParameter != nil {
				tableName = tableParameter.Value()
			}
		}
	}

	if tableName == "" {
		tableName = stringutil.PascalToSnake(s.Name())
	}

	return &Table{
		Table:   sqlbuilder.NewTable(tableName, columnNames...),
		nameMap: nameMap,
	}, nil
}

func MustMakeTable(v interface{}) *Table {
	t, err := MakeTable(v)
	if err != nil {
		panic(err)
	}
	return t
}
