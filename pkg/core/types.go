package core

// DatabaseInfo describes a database after a successful connect.
type DatabaseInfo struct {
	// Path is the location the caller connected with (file path or URL).
	Path string `json:"path" yaml:"path"`
	// Name is a display name: the file's base name or the database name of a URL.
	Name string `json:"name" yaml:"name"`
	// TableCount is the number of user tables visible in the database.
	TableCount int `json:"table_count" yaml:"table_count"`
	// IsConnected reports whether a live connection was established.
	IsConnected bool `json:"is_connected" yaml:"is_connected"`
	// IsEncrypted reports whether a key was required to open the database.
	IsEncrypted bool `json:"is_encrypted,omitempty" yaml:"is_encrypted,omitempty"`
	// Adapter names the storage engine that served the connection.
	Adapter string `json:"adapter,omitempty" yaml:"adapter,omitempty"`
	// Alias is the user-assigned alias for Path, if any.
	Alias *string `json:"alias,omitempty" yaml:"alias,omitempty"`
}

// TableInfo describes one table in a connected database.
type TableInfo struct {
	Name     string       `json:"name" yaml:"name"`
	RowCount int64        `json:"row_count" yaml:"row_count"`
	Columns  []ColumnInfo `json:"columns" yaml:"columns"`
}

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name         string  `json:"name" yaml:"name"`
	DataType     string  `json:"data_type" yaml:"data_type"`
	Nullable     bool    `json:"is_nullable" yaml:"is_nullable"`
	DefaultValue *string `json:"default_value" yaml:"default_value"`
	PrimaryKey   bool    `json:"is_primary_key" yaml:"is_primary_key"`
}

// TableData is a page of rows read from a table.
type TableData struct {
	Columns []string  `json:"columns" yaml:"columns"`
	Rows    [][]Value `json:"rows" yaml:"rows"`
	// TotalCount is the table's full row count, independent of the page size.
	TotalCount int64 `json:"total_count" yaml:"total_count"`
}

// SchemaComparison is the structural difference between two databases.
// Added tables exist only in the second database, removed tables only in the first.
type SchemaComparison struct {
	Database1       string      `json:"database1" yaml:"database1"`
	Database2       string      `json:"database2" yaml:"database2"`
	AddedTables     []string    `json:"added_tables" yaml:"added_tables"`
	RemovedTables   []string    `json:"removed_tables" yaml:"removed_tables"`
	ModifiedTables  []TableDiff `json:"modified_tables" yaml:"modified_tables"`
	IdenticalTables []string    `json:"identical_tables" yaml:"identical_tables"`
}

// TableDiff lists column-level changes for a table present in both databases.
type TableDiff struct {
	TableName       string       `json:"table_name" yaml:"table_name"`
	AddedColumns    []ColumnInfo `json:"added_columns" yaml:"added_columns"`
	RemovedColumns  []string     `json:"removed_columns" yaml:"removed_columns"`
	ModifiedColumns []ColumnDiff `json:"modified_columns" yaml:"modified_columns"`
}

// ColumnDiff describes how a column present in both tables differs.
// Changes holds human readable descriptions such as "type: INTEGER -> TEXT".
type ColumnDiff struct {
	ColumnName string   `json:"column_name" yaml:"column_name"`
	OldType    string   `json:"old_type" yaml:"old_type"`
	NewType    string   `json:"new_type" yaml:"new_type"`
	Changes    []string `json:"changes" yaml:"changes"`
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}
