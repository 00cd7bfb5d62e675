package schemadiff

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dbscope/pkg/core"
)

func col(name, typ string, nullable, pk bool) core.ColumnInfo {
	return core.ColumnInfo{Name: name, DataType: typ, Nullable: nullable, PrimaryKey: pk}
}

func table(name string, cols ...core.ColumnInfo) core.TableInfo {
	return core.TableInfo{Name: name, Columns: cols}
}

func TestCompare_IdenticalSchemas(t *testing.T) {
	tables := []core.TableInfo{
		table("users", col("id", "INTEGER", false, true), col("email", "TEXT", true, false)),
		table("orders", col("id", "INTEGER", false, true)),
	}

	got := Compare("a.db", "b.db", tables, tables)
	assert.Equal(t, "a.db", got.Database1)
	assert.Equal(t, "b.db", got.Database2)
	assert.Equal(t, []string{"orders", "users"}, got.IdenticalTables)
	assert.Empty(t, got.AddedTables)
	assert.Empty(t, got.RemovedTables)
	assert.Empty(t, got.ModifiedTables)

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"database1":"a.db","database2":"b.db",
		"added_tables":[],"removed_tables":[],"modified_tables":[],
		"identical_tables":["orders","users"]
	}`, string(out))
}

func TestCompare_AddedAndRemovedTables(t *testing.T) {
	left := []core.TableInfo{table("legacy"), table("shared"), table("archive")}
	right := []core.TableInfo{table("shared"), table("new_b"), table("new_a")}

	got := Compare("l", "r", left, right)
	assert.Equal(t, []string{"new_a", "new_b"}, got.AddedTables)
	assert.Equal(t, []string{"archive", "legacy"}, got.RemovedTables)
	assert.Equal(t, []string{"shared"}, got.IdenticalTables)
}

func TestCompare_EmptyDatabases(t *testing.T) {
	got := Compare("l", "r", nil, nil)
	assert.NotNil(t, got.AddedTables)
	assert.NotNil(t, got.RemovedTables)
	assert.NotNil(t, got.ModifiedTables)
	assert.NotNil(t, got.IdenticalTables)
}

func TestCompare_PartitionsUnionOfTables(t *testing.T) {
	left := []core.TableInfo{
		table("a", col("id", "INT", false, true)),
		table("b", col("id", "INT", false, true)),
		table("c"),
	}
	right := []core.TableInfo{
		table("b", col("id", "BIGINT", false, true)),
		table("c"),
		table("d"),
	}

	got := Compare("l", "r", left, right)

	seen := make(map[string]int)
	for _, n := range got.AddedTables {
		seen[n]++
	}
	for _, n := range got.RemovedTables {
		seen[n]++
	}
	for _, n := range got.IdenticalTables {
		seen[n]++
	}
	for _, d := range got.ModifiedTables {
		seen[d.TableName]++
	}

	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1, "d": 1}, seen,
		"every table appears in exactly one category")
}

func TestDiffTable(t *testing.T) {
	tests := []struct {
		name  string
		left  core.TableInfo
		right core.TableInfo
		want  core.TableDiff
	}{
		{
			name:  "added and removed columns",
			left:  table("t", col("id", "INTEGER", false, true), col("old", "TEXT", true, false), col("gone", "TEXT", true, false)),
			right: table("t", col("id", "INTEGER", false, true), col("new", "TEXT", true, false)),
			want: core.TableDiff{
				TableName:       "t",
				AddedColumns:    []core.ColumnInfo{col("new", "TEXT", true, false)},
				RemovedColumns:  []string{"gone", "old"},
				ModifiedColumns: []core.ColumnDiff{},
			},
		},
		{
			name:  "type change",
			left:  table("t", col("amount", "INTEGER", true, false)),
			right: table("t", col("amount", "REAL", true, false)),
			want: core.TableDiff{
				TableName:      "t",
				AddedColumns:   []core.ColumnInfo{},
				RemovedColumns: []string{},
				ModifiedColumns: []core.ColumnDiff{{
					ColumnName: "amount",
					OldType:    "INTEGER",
					NewType:    "REAL",
					Changes:    []string{"type: INTEGER -> REAL"},
				}},
			},
		},
		{
			name:  "nullability and primary key change",
			left:  table("t", col("id", "INTEGER", true, false)),
			right: table("t", col("id", "INTEGER", false, true)),
			want: core.TableDiff{
				TableName:      "t",
				AddedColumns:   []core.ColumnInfo{},
				RemovedColumns: []string{},
				ModifiedColumns: []core.ColumnDiff{{
					ColumnName: "id",
					OldType:    "INTEGER",
					NewType:    "INTEGER",
					Changes:    []string{"nullability: true -> false", "primary key: false -> true"},
				}},
			},
		},
		{
			name:  "type case only is not a change",
			left:  table("t", col("id", "integer", false, true), col("x", "TEXT", true, false)),
			right: table("t", col("id", "INTEGER", false, true)),
			want: core.TableDiff{
				TableName:       "t",
				AddedColumns:    []core.ColumnInfo{},
				RemovedColumns:  []string{"x"},
				ModifiedColumns: []core.ColumnDiff{},
			},
		},
		{
			name:  "column order only",
			left:  table("t", col("a", "TEXT", true, false), col("b", "TEXT", true, false)),
			right: table("t", col("b", "TEXT", true, false), col("a", "TEXT", true, false)),
			want: core.TableDiff{
				TableName:       "t",
				AddedColumns:    []core.ColumnInfo{},
				RemovedColumns:  []string{},
				ModifiedColumns: []core.ColumnDiff{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DiffTable(tt.left, tt.right))
		})
	}
}

func TestDiffTable_DefaultChanged(t *testing.T) {
	l := col("status", "TEXT", true, false)
	l.DefaultValue = core.StrPtr("'new'")
	r := col("status", "TEXT", true, false)

	diff := DiffTable(table("t", l, col("extra", "TEXT", true, false)), table("t", r))
	require.Len(t, diff.ModifiedColumns, 1)
	assert.Equal(t, []string{"default changed"}, diff.ModifiedColumns[0].Changes)
}

func TestIdentical_IgnoresDefaults(t *testing.T) {
	l := col("status", "TEXT", true, false)
	l.DefaultValue = core.StrPtr("'a'")
	r := col("status", "TEXT", true, false)
	r.DefaultValue = core.StrPtr("'b'")

	assert.True(t, Identical(table("t", l), table("t", r)))
	assert.False(t, Identical(table("t", l), table("t", r, col("x", "TEXT", true, false))))
	assert.False(t, Identical(table("t", col("id", "integer", false, true)), table("t", col("id", "INTEGER", false, true))),
		"identity compares types exactly")
}
