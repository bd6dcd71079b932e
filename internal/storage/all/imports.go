// Package all registers every built-in storage backend. Import it for side
// effects:
//
//	import _ "csvplan/internal/storage/all"
//
// after which storage.New accepts the kinds "postgres", "mssql", "mysql",
// "sqlite" and the always-present "none".
package all

import (
	_ "csvplan/internal/storage/mssql"
	_ "csvplan/internal/storage/mysql"
	_ "csvplan/internal/storage/postgres"
	_ "csvplan/internal/storage/sqlite"
)
