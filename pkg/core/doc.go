// Package core defines the shared data model of dbscope.
//
// This package contains:
//   - Result records returned by backend commands (DatabaseInfo, TableInfo, TableData, ...)
//   - The Value cell type used for heterogeneous table rows
//   - Command names and their argument records
//
// The Golden Rule: pkg/core imports ONLY the standard library.
// Clients, transports, and adapters depend on core, not the reverse.
package core
