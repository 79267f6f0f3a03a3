package database

import (
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// Dialect hides the differences between the supported databases
type Dialect interface {
	DriverName() string
	DSN(config DialectConfig) string

	// RewriteQuery converts ? placeholders for drivers that number them
	RewriteQuery(query string) string

	// SupportsLastInsertId is false when inserts need a RETURNING clause
	SupportsLastInsertId() bool

	ConfigureConnection(db *sql.DB) error
	MigrationsSubdir() string
	CreateMigrationsTableQuery() string
}

// DialectConfig holds the connection target. SQLite uses Path, the
// server databases use URL.
type DialectConfig struct {
	Path string
	URL  string
}

// poolSettings sizes a connection pool
type poolSettings struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	maxIdleTime time.Duration
}

// serverPool suits the networked databases. Game traffic is one short
// insert per guess plus occasional song loads.
var serverPool = poolSettings{
	maxOpen:     25,
	maxIdle:     5,
	maxLifetime: 5 * time.Minute,
	maxIdleTime: time.Minute,
}

func (p poolSettings) apply(db *sql.DB) {
	db.SetMaxOpenConns(p.maxOpen)
	db.SetMaxIdleConns(p.maxIdle)
	db.SetConnMaxLifetime(p.maxLifetime)
	db.SetConnMaxIdleTime(p.maxIdleTime)
}

// execAll runs setup statements in order
func execAll(db *sql.DB, statements ...string) error {
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}
