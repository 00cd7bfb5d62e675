package core

// Command names understood by the backend.
const (
	CommandTestConnection         = "test_connection"
	CommandConnectDatabase        = "connect_database"
	CommandGetDatabaseTables      = "get_database_tables"
	CommandGetTableData           = "get_table_data"
	CommandCompareDatabaseSchemas = "compare_database_schemas"
)

// Commands lists every backend command in a stable order.
func Commands() []string {
	return []string{
		CommandTestConnection,
		CommandConnectDatabase,
		CommandGetDatabaseTables,
		CommandGetTableData,
		CommandCompareDatabaseSchemas,
	}
}

// ConnectDatabaseArgs are the arguments of connect_database.
// An empty Password opens the database without a key.
type ConnectDatabaseArgs struct {
	Path     string `json:"path"`
	Password string `json:"password"`
}

// GetDatabaseTablesArgs are the arguments of get_database_tables.
type GetDatabaseTablesArgs struct {
	DBPath string `json:"dbPath"`
}

// GetTableDataArgs are the arguments of get_table_data.
type GetTableDataArgs struct {
	DBPath    string `json:"dbPath"`
	TableName string `json:"tableName"`
	Limit     int    `json:"limit"`
}

// CompareDatabaseSchemasArgs are the arguments of compare_database_schemas.
type CompareDatabaseSchemasArgs struct {
	DB1Path string `json:"db1Path"`
	DB2Path string `json:"db2Path"`
}
