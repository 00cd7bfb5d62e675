package sqlite

import (
	"database/sql"
	"log/slog"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/leapstack-labs/dbscope/pkg/adapter"
)

func init() {
	sql.Register(DriverSQLCipher, &sqlcipher.SQLiteDriver{})
	adapter.Register("sqlite", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
