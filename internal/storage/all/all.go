// Package all registers every warehouse backend with the storage factory.
// Binaries blank-import it so the -storage flag can select any of them.
package all

import (
	_ "telcodw/internal/storage/mssql"
	_ "telcodw/internal/storage/mysql"
	_ "telcodw/internal/storage/postgres"
	_ "telcodw/internal/storage/sqlite"
)
