package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/Howie-0721/ICR-Identification-tool/pkg/config"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/fileutil"
)

// TableQuery names one CSV export and the query producing it.
type TableQuery struct {
	Name  string
	Query string
	Args  []interface{}
}

// batchPathPattern matches file_storage_path values belonging to one upload
// batch; the id is always a full path segment.
func batchPathPattern(uploadID string) string {
	return "%/" + uploadID + "/%"
}

// BatchQueries builds the export queries for a single recognition batch.
// document_master is filtered by storage path and COMPLETED status; every
// per-type table is joined through uuid with the same filter, so rows from
// other batches never leak into the export. Tables of the other document
// types normally come out empty but are still written, keeping the export
// layout stable.
func BatchQueries(uploadID string, doc config.DocType) []TableQuery {
	pattern := batchPathPattern(uploadID)

	queries := []TableQuery{{
		Name: config.MasterTable,
		Query: `SELECT * FROM document."document_master"` +
			` WHERE file_storage_path LIKE $1 AND recognition_status = 'COMPLETED'`,
		Args: []interface{}{pattern},
	}}

	tables := []string{doc.Table}
	for _, table := range config.ResultTables() {
		if table != config.MasterTable && table != doc.Table {
			tables = append(tables, table)
		}
	}
	for _, table := range tables {
		queries = append(queries, TableQuery{
			Name: table,
			Query: fmt.Sprintf(`SELECT dt.* FROM document.%q dt`+
				` INNER JOIN document."document_master" dm ON dt.uuid = dm.uuid`+
				` WHERE dm.file_storage_path LIKE $1 AND dm.recognition_status = 'COMPLETED'`, table),
			Args: []interface{}{pattern},
		})
	}
	return queries
}

// AllTableQueries builds unfiltered dumps of the four recognition tables,
// with the timestamp appended to the CSV names so repeated dumps do not
// overwrite each other.
func AllTableQueries(timestamp string) []TableQuery {
	queries := make([]TableQuery, 0, 4)
	for _, table := range config.ResultTables() {
		queries = append(queries, TableQuery{
			Name:  fmt.Sprintf("%s_%s", table, timestamp),
			Query: fmt.Sprintf(`SELECT * FROM document.%q`, table),
		})
	}
	return queries
}

// DumpTimestamp names the CSVs of a full-table dump.
func DumpTimestamp(now time.Time) string {
	return now.Format("2006_01_02_150405")
}

func csvPath(outDir, name string) string {
	return filepath.Join(outDir, name+".csv")
}

func writeExport(path string, header []string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create export directory for '%s'", path)
	}
	return fileutil.WriteCSV(path, header, records)
}

func formatValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}
