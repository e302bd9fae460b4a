// Package database provides SQLite connectivity for SmartBin Core.
//
// It opens the store with busy-timeout and WAL pragmas, pins the pool to a
// single connection and applies embedded schema migrations.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with a
// matching .down.sql. The JSON1 functions (json_patch, json_each,
// json_insert) used by the repositories are compiled into go-sqlite3.
package database
