package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"

	"github.com/Howie-0721/ICR-Identification-tool/pkg/config"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/log"
)

const (
	connMaxLifetime time.Duration = 0
	maxIdleConns    int           = 5
	maxOpenConns    int           = 5
)

// Open creates a connection pool for the recognition service's database and
// verifies connectivity.
func Open(ctx context.Context, settings config.DatabaseSettings) (*sql.DB, error) {
	log.Entry().Debugf("connecting to database %s:%d/%s as %s",
		settings.Host, settings.Port, settings.Database, settings.User)

	db, err := sql.Open("pgx", settings.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database pool")
	}
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetMaxOpenConns(maxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to connect to database %s:%d", settings.Host, settings.Port)
	}
	log.Entry().Info("database connection established")
	return db, nil
}

// Client reads recognition results and exports them to CSV.
type Client struct {
	db *sql.DB
}

// NewClient wraps an open connection pool.
func NewClient(db *sql.DB) *Client {
	return &Client{db: db}
}

// CompletedCount returns how many documents of the given batch have reached
// recognition_status COMPLETED. An empty uploadID counts across all batches.
func (c *Client) CompletedCount(ctx context.Context, uploadID string) (int, error) {
	var (
		count int
		err   error
	)
	if uploadID != "" {
		query := `SELECT COUNT(*) FROM document."document_master" WHERE recognition_status = 'COMPLETED' AND file_storage_path LIKE $1`
		err = c.db.QueryRowContext(ctx, query, batchPathPattern(uploadID)).Scan(&count)
	} else {
		query := `SELECT COUNT(*) FROM document."document_master" WHERE recognition_status = 'COMPLETED'`
		err = c.db.QueryRowContext(ctx, query).Scan(&count)
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to count completed documents")
	}
	return count, nil
}

// ExportTables runs each query and writes the result as <name>.csv into
// outDir. A failing table is logged and skipped so one broken export does
// not lose the rest of the run's data.
func (c *Client) ExportTables(ctx context.Context, queries []TableQuery, outDir string) error {
	log.Entry().Info("exporting recognition tables")

	for i, query := range queries {
		log.Entry().Debugf("querying table [%d/%d]: %s", i+1, len(queries), query.Name)
		if err := c.exportTable(ctx, query, outDir); err != nil {
			if ctx.Err() != nil {
				return errors.Wrap(ctx.Err(), "export cancelled")
			}
			log.Entry().WithError(err).Errorf("failed to export table %s", query.Name)
		}
	}

	log.Entry().Info("database export finished")
	return nil
}

func (c *Client) exportTable(ctx context.Context, query TableQuery, outDir string) error {
	rows, err := c.db.QueryContext(ctx, query.Query, query.Args...)
	if err != nil {
		return errors.Wrapf(err, "query for table '%s' failed", query.Name)
	}
	defer rows.Close()

	header, records, err := collectRecords(rows)
	if err != nil {
		return err
	}

	path := csvPath(outDir, query.Name)
	if err := writeExport(path, header, records); err != nil {
		return err
	}
	log.Entry().Infof("exported %s: %d records -> %s", query.Name, len(records), path)
	return nil
}

func collectRecords(rows *sql.Rows) ([]string, [][]string, error) {
	header, err := rows.Columns()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to read result columns")
	}

	var records [][]string
	for rows.Next() {
		values := make([]interface{}, len(header))
		pointers := make([]interface{}, len(header))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, nil, errors.Wrap(err, "failed to scan result row")
		}
		record := make([]string, len(header))
		for i, value := range values {
			record[i] = formatValue(value)
		}
		records = append(records, record)
	}
	return header, records, errors.Wrap(rows.Err(), "failed to iterate result rows")
}
