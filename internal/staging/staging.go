// Package staging pushes finished output CSVs into Postgres staging tables
// so the target system's import jobs can pick them up.
package staging

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/nms-crm/internal/table"
)

// Connection holds the staging database connection.
type Connection struct {
	DB *sql.DB
}

// NewConnection opens the staging database using the standard PG*
// environment variables.
func NewConnection() (*Connection, error) {
	host := getEnvOrDefault("PGHOST", "localhost")
	port := getEnvOrDefault("PGPORT", "5432")
	user := getEnvOrDefault("PGUSER", "user")
	password := getEnvOrDefault("PGPASSWORD", "password")
	dbname := getEnvOrDefault("PGDATABASE", "nms_staging")
	sslmode := getEnvOrDefault("PGSSLMODE", "disable")

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)

	return &Connection{DB: db}, nil
}

// Close closes the database connection.
func (c *Connection) Close() error {
	return c.DB.Close()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Exporter loads output CSVs into staging tables.
type Exporter struct {
	db *sql.DB
}

// NewExporter creates a new exporter over an open connection.
func NewExporter(db *sql.DB) *Exporter {
	return &Exporter{db: db}
}

// StageDir stages every CSV in the output directory.
func (e *Exporter) StageDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read output dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".csv") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		if err := e.StageFile(ctx, filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// StageFile replaces one staging table with the contents of a CSV. All
// columns are text; typing belongs to the import jobs downstream.
func (e *Exporter) StageFile(ctx context.Context, path string) error {
	t, err := table.Read(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	tableName := TableName(path)
	log.Printf("staging %s -> %s (%d rows)", filepath.Base(path), tableName, len(t.Rows))

	colDefs := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		colDefs[i] = pq.QuoteIdentifier(col) + " TEXT"
	}

	txn, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer txn.Rollback()

	if _, err := txn.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", pq.QuoteIdentifier(tableName))); err != nil {
		return fmt.Errorf("failed to drop %s: %w", tableName, err)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", pq.QuoteIdentifier(tableName), strings.Join(colDefs, ", "))
	if _, err := txn.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create %s: %w", tableName, err)
	}

	stmt, err := txn.PrepareContext(ctx, pq.CopyIn(tableName, t.Columns...))
	if err != nil {
		return fmt.Errorf("failed to prepare copy for %s: %w", tableName, err)
	}
	for _, row := range t.Rows {
		args := make([]interface{}, len(t.Columns))
		for i, col := range t.Columns {
			args[i] = row[col]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy row into %s: %w", tableName, err)
		}
	}
	// Flush the copy buffer.
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy into %s: %w", tableName, err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy for %s: %w", tableName, err)
	}

	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", tableName, err)
	}
	return nil
}

var nonIdent = regexp.MustCompile(`[^a-z0-9]+`)

// TableName derives the staging table name from an output filename:
// Schools.csv becomes staging_schools, Course_Enrollments.csv becomes
// staging_course_enrollments.
func TableName(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = nonIdent.ReplaceAllString(strings.ToLower(stem), "_")
	return "staging_" + strings.Trim(stem, "_")
}
