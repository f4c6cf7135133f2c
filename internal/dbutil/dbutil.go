// Package dbutil opens the operational store over database/sql.
package dbutil

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq" // postgres driver
	_ "modernc.org/sqlite" // sqlite driver (pure Go)
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open opens the store for driver and verifies the connection. SQLite paths get
// foreign key constraints and a busy timeout to reduce contention errors.
func Open(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite:
		if !strings.HasPrefix(dsn, "file:") {
			dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", dsn)
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s db: %w", driver, err)
	}
	return db, nil
}

// OpenMemory opens a private in-memory SQLite database, mostly for tests.
func OpenMemory() (*sql.DB, error) {
	db, err := Open(DriverSQLite, "file::memory:?_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, err
	}
	// every pooled connection would otherwise see its own empty database
	db.SetMaxOpenConns(1)
	return db, nil
}

// Rebind rewrites ? placeholders into the driver's bind style.
func Rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
