// Package schemadiff computes structural differences between two database
// schemas.
package schemadiff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/dbscope/pkg/core"
)

// Compare diffs the tables of database db1 (left) against db2 (right).
//
// Tables only in right are added, tables only in left are removed. A table in
// both is identical when its columns match pairwise by name, type,
// nullability and primary key flag; otherwise it is reported as modified.
// Name lists are sorted and all slices are non-nil.
func Compare(db1, db2 string, left, right []core.TableInfo) *core.SchemaComparison {
	leftByName := indexTables(left)
	rightByName := indexTables(right)

	cmp := &core.SchemaComparison{
		Database1:       db1,
		Database2:       db2,
		AddedTables:     make([]string, 0),
		RemovedTables:   make([]string, 0),
		ModifiedTables:  make([]core.TableDiff, 0),
		IdenticalTables: make([]string, 0),
	}

	for name := range rightByName {
		if _, ok := leftByName[name]; !ok {
			cmp.AddedTables = append(cmp.AddedTables, name)
		}
	}

	for name, l := range leftByName {
		r, ok := rightByName[name]
		if !ok {
			cmp.RemovedTables = append(cmp.RemovedTables, name)
			continue
		}
		if Identical(l, r) {
			cmp.IdenticalTables = append(cmp.IdenticalTables, name)
		} else {
			cmp.ModifiedTables = append(cmp.ModifiedTables, DiffTable(l, r))
		}
	}

	sort.Strings(cmp.AddedTables)
	sort.Strings(cmp.RemovedTables)
	sort.Strings(cmp.IdenticalTables)
	sort.Slice(cmp.ModifiedTables, func(i, j int) bool {
		return cmp.ModifiedTables[i].TableName < cmp.ModifiedTables[j].TableName
	})
	return cmp
}

// Identical reports whether two tables have the same columns in the same
// order. Defaults are ignored.
func Identical(left, right core.TableInfo) bool {
	if len(left.Columns) != len(right.Columns) {
		return false
	}
	for i, l := range left.Columns {
		r := right.Columns[i]
		if l.Name != r.Name || l.DataType != r.DataType ||
			l.Nullable != r.Nullable || l.PrimaryKey != r.PrimaryKey {
			return false
		}
	}
	return true
}

// DiffTable lists column changes from left to right.
//
// Type changes are detected case-insensitively. A table whose columns differ
// only by order yields a diff with empty column lists.
func DiffTable(left, right core.TableInfo) core.TableDiff {
	leftCols := indexColumns(left.Columns)
	rightCols := indexColumns(right.Columns)

	diff := core.TableDiff{
		TableName:       left.Name,
		AddedColumns:    make([]core.ColumnInfo, 0),
		RemovedColumns:  make([]string, 0),
		ModifiedColumns: make([]core.ColumnDiff, 0),
	}

	for _, c := range right.Columns {
		if _, ok := leftCols[c.Name]; !ok {
			diff.AddedColumns = append(diff.AddedColumns, c)
		}
	}

	for _, l := range left.Columns {
		r, ok := rightCols[l.Name]
		if !ok {
			diff.RemovedColumns = append(diff.RemovedColumns, l.Name)
			continue
		}
		if changes := columnChanges(l, r); len(changes) > 0 {
			diff.ModifiedColumns = append(diff.ModifiedColumns, core.ColumnDiff{
				ColumnName: l.Name,
				OldType:    l.DataType,
				NewType:    r.DataType,
				Changes:    changes,
			})
		}
	}

	sort.Strings(diff.RemovedColumns)
	sort.Slice(diff.ModifiedColumns, func(i, j int) bool {
		return diff.ModifiedColumns[i].ColumnName < diff.ModifiedColumns[j].ColumnName
	})
	return diff
}

func columnChanges(l, r core.ColumnInfo) []string {
	var changes []string
	if !strings.EqualFold(l.DataType, r.DataType) {
		changes = append(changes, fmt.Sprintf("type: %s -> %s", l.DataType, r.DataType))
	}
	if l.Nullable != r.Nullable {
		changes = append(changes, fmt.Sprintf("nullability: %t -> %t", l.Nullable, r.Nullable))
	}
	if l.PrimaryKey != r.PrimaryKey {
		changes = append(changes, fmt.Sprintf("primary key: %t -> %t", l.PrimaryKey, r.PrimaryKey))
	}
	if !sameDefault(l.DefaultValue, r.DefaultValue) {
		changes = append(changes, "default changed")
	}
	return changes
}

func sameDefault(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func indexTables(tables []core.TableInfo) map[string]core.TableInfo {
	m := make(map[string]core.TableInfo, len(tables))
	for _, t := range tables {
		m[t.Name] = t
	}
	return m
}

func indexColumns(cols []core.ColumnInfo) map[string]core.ColumnInfo {
	m := make(map[string]core.ColumnInfo, len(cols))
	for _, c := range cols {
		m[c.Name] = c
	}
	return m
}
