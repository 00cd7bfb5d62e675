package backend

// Import adapter packages to register them via init().
import (
	_ "github.com/leapstack-labs/dbscope/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/dbscope/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/dbscope/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/dbscope/pkg/adapters/sqlite"
)
