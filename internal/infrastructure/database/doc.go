// Package database provides the SQLite handle behind the session journal.
//
// This package manages:
//   - Opening the database file with WAL mode and a busy timeout
//   - Versioned schema migrations from an embedded filesystem
//   - Health checks and lifecycle
//
// Usage:
//
//	db, err := database.Open(cfg.Journal)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns must be nullable or carry a default,
// and every .up.sql ships with a .down.sql.
package database
