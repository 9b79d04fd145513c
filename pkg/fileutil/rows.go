package fileutil

import (
	"bytes"
	"encoding/csv"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// utf8BOM prefixes the CSV exports so the files open correctly in Excel,
// matching the byte layout of the database export contract.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadExcelRows reads the active sheet of a workbook into one map per data
// row, keyed by the header row. Fully empty rows are dropped, numeric cells
// are normalized so that e.g. 2024.0 compares equal to "2024".
func ReadExcelRows(path string) ([]map[string]string, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open workbook '%s'", path)
	}

	sheet := file.GetSheetName(file.GetActiveSheetIndex())
	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet '%s'", sheet)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	headers := rows[0]
	var data []map[string]string
	for _, row := range rows[1:] {
		record := make(map[string]string, len(headers))
		empty := true
		for i, header := range headers {
			value := ""
			if i < len(row) {
				value = normalizeCell(row[i])
			}
			record[header] = value
			if value != "" {
				empty = false
			}
		}
		if !empty {
			data = append(data, record)
		}
	}
	return data, nil
}

// ReadCSVRows reads a CSV file into one map per data row, keyed by the
// header row. A leading UTF-8 BOM is stripped.
func ReadCSVRows(path string) ([]map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read CSV '%s'", path)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse CSV '%s'", path)
	}
	if len(records) == 0 {
		return nil, nil
	}

	headers := records[0]
	data := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = record[i]
			} else {
				row[header] = ""
			}
		}
		data = append(data, row)
	}
	return data, nil
}

// WriteCSV writes a BOM-prefixed CSV file with the given header and records.
func WriteCSV(path string, header []string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create CSV '%s'", path)
	}
	defer file.Close()

	if _, err := file.Write(utf8BOM); err != nil {
		return errors.Wrapf(err, "failed to write BOM to '%s'", path)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return errors.Wrapf(err, "failed to write header to '%s'", path)
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return errors.Wrapf(err, "failed to write record to '%s'", path)
		}
	}
	writer.Flush()
	return errors.Wrapf(writer.Error(), "failed to flush CSV '%s'", path)
}

func normalizeCell(value string) string {
	value = strings.TrimSpace(value)
	if !strings.Contains(value, ".") {
		return value
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= 1e15 {
		return value
	}
	return strconv.FormatInt(int64(f), 10)
}
