//go:build unit
// +build unit

package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	exists, err := FileExists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = FileExists(filepath.Join(dir, "missing.txt"))
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = FileExists(dir)
	require.NoError(t, err)
	assert.False(t, exists, "directories do not count as files")
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.pdf")
	dst := filepath.Join(dir, "dst.pdf")
	require.NoError(t, os.WriteFile(src, []byte("content"), 0o644))

	n, err := Copy(src, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	_, err = Copy(filepath.Join(dir, "missing"), dst)
	assert.Error(t, err)
}

func TestClearDir(t *testing.T) {
	dir := t.TempDir()
	staging := filepath.Join(dir, "staging")
	require.NoError(t, os.MkdirAll(filepath.Join(staging, "keepme"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "old.pdf"), []byte("x"), 0o644))

	require.NoError(t, ClearDir(staging))

	files, err := ListFiles(staging)
	require.NoError(t, err)
	assert.Empty(t, files)
	_, err = os.Stat(filepath.Join(staging, "keepme"))
	assert.NoError(t, err, "subdirectories survive")

	// also creates missing directories
	fresh := filepath.Join(dir, "fresh")
	require.NoError(t, ClearDir(fresh))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestCopyDir(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "one.pdf"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "two.pdf"), []byte("2"), 0o644))

	count, err := CopyDir(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	files, err := ListFiles(dst)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"one.pdf", "two.pdf"}, files)
}

func TestWriteAndReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "document_master.csv")
	header := []string{"uuid", "file_name", "recognition_status"}
	records := [][]string{
		{"u-1", "scan_001.pdf", "COMPLETED"},
		{"u-2", "scan_002.pdf", "COMPLETED"},
	}

	require.NoError(t, WriteCSV(path, header, records))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, utf8BOM, raw[:3], "export carries a UTF-8 BOM")

	rows, err := ReadCSVRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "scan_001.pdf", rows[0]["file_name"])
	assert.Equal(t, "COMPLETED", rows[1]["recognition_status"])
}

func TestReadCSVRowsShortRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c\n1,2\n"), 0o644))

	rows, err := ReadCSVRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0]["c"])
}

func TestReadExcelRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.xlsx")
	file := excelize.NewFile()
	sheet := file.GetSheetName(file.GetActiveSheetIndex())
	require.NoError(t, file.SetSheetRow(sheet, "A1", &[]interface{}{"檔名", "護照號碼", "核發日期"}))
	require.NoError(t, file.SetSheetRow(sheet, "A2", &[]interface{}{"scan_001.pdf", "X1234567", 20240101}))
	// row 3 left fully empty, must be dropped
	require.NoError(t, file.SetSheetRow(sheet, "A4", &[]interface{}{"scan_002.pdf", "Y7654321", ""}))
	require.NoError(t, file.SaveAs(path))

	rows, err := ReadExcelRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "scan_001.pdf", rows[0]["檔名"])
	assert.Equal(t, "20240101", rows[0]["核發日期"])
	assert.Equal(t, "", rows[1]["核發日期"])
}

func TestNormalizeCell(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"A123", "A123"},
		{" padded ", "padded"},
		{"2024.0", "2024"},
		{"3.14", "3.14"},
		{"", ""},
		{"1.2.3", "1.2.3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeCell(tt.in), tt.in)
	}
}
