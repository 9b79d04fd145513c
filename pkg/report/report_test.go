//go:build unit
// +build unit

package report

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Howie-0721/ICR-Identification-tool/pkg/config"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/dataset"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/scoring"
)

func testReport(t *testing.T) Report {
	t.Helper()
	doc, err := config.DocTypeByKey("health")
	require.NoError(t, err)
	return Report{
		Doc: doc,
		Rows: []map[string]string{
			{dataset.ColFileName: "h1.jpg", "護照號碼": "P1234567", dataset.ColVerdict: "PASS"},
			{dataset.ColFileName: "h2.jpg", "護照號碼": "N/A(P7654321)", dataset.ColVerdict: "FAIL"},
		},
		Columns: []string{dataset.ColFileName, "護照號碼", dataset.ColVerdict},
		Stats: []scoring.FileStats{
			{FileName: "h1.jpg", Correct: 1, Expected: 1, ModelOutput: 1, Compared: 1, Precision: 1, Recall: 1, F1: 1, ItemAccuracy: 1},
		},
		Summary: scoring.Summary{TotalRecords: 2, Perfect: 1, PerfectRate: 50, AvgPrecision: 0.5},
		Analyses: []scoring.FieldAnalysis{
			{Field: "護照號碼", Total: 2, Correct: 1, Wrong: 1, Accuracy: 50, ErrorRate: 50, Mode: scoring.AnalysisMode},
		},
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.xlsx")

	require.NoError(t, Write(path, filepath.Join(dir, "excel_template"), testReport(t)))

	file, err := excelize.OpenFile(path)
	require.NoError(t, err)

	t.Run("result sheet carries the scored rows", func(t *testing.T) {
		rows, err := file.GetRows(ResultSheet)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, []string{dataset.ColFileName, "護照號碼", dataset.ColVerdict}, rows[0])
		assert.Equal(t, "h1.jpg", rows[1][0])
		assert.Equal(t, "N/A(P7654321)", rows[2][1])
	})

	t.Run("statistics sheet lists the per-file counters", func(t *testing.T) {
		rows, err := file.GetRows(statisticsSheet)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, []string{dataset.ColFileName, "正確欄位數", "實際應該有的項目數", "模型輸出的項目數", "拿來比較的項目數", "Precision", "Recall", "F1 Score", "Item Accuracy"}, rows[0])
		assert.Equal(t, "h1.jpg", rows[1][0])
		assert.Equal(t, "1", rows[1][1])
		assert.Equal(t, "1.00", rows[1][5])
	})

	t.Run("report sheet shows totals and rates", func(t *testing.T) {
		rows, err := file.GetRows(reportSheet)
		require.NoError(t, err)
		require.Len(t, rows, 11)
		assert.Equal(t, []string{"分類", "指標", "數值"}, rows[0])
		assert.Equal(t, []string{"基本統計", "總記錄數", "2"}, rows[1])
		assert.Equal(t, []string{"基本統計", "完全正確率", "50.000%"}, rows[5])
		assert.Equal(t, []string{"整體指標", "平均 Precision", "0.500"}, rows[6])
		assert.Equal(t, "平均字元正確率", rows[10][1])
	})

	t.Run("analyze sheet breaks the run down per field", func(t *testing.T) {
		rows, err := file.GetRows(analyzeSheet)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"欄位名稱", "總出現次數", "完全正確", "部分正確", "完全錯誤", "缺失", "多餘", "正確率", "錯誤率", "部分正確率", "模式"}, rows[0])
		assert.Equal(t, "護照號碼", rows[1][0])
		assert.Equal(t, "50.000%", rows[1][7])
		assert.Equal(t, "0.000%", rows[1][9])
		assert.Equal(t, scoring.AnalysisMode, rows[1][10])
	})
}

func TestWriteNoAnswer(t *testing.T) {
	doc, err := config.DocTypeByKey("arc")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "Identification_results.xlsx")
	rows := []map[string]string{{dataset.ColFileName: "a.jpg", "居留證號": "AA00000001"}}

	require.NoError(t, WriteNoAnswer(path, doc, rows, []string{dataset.ColFileName, "居留證號"}))

	file, err := excelize.OpenFile(path)
	require.NoError(t, err)

	content, err := file.GetRows(ResultSheet)
	require.NoError(t, err)
	require.Len(t, content, 2)
	assert.Equal(t, "AA00000001", content[1][1])
	assert.NotContains(t, file.GetSheetList(), statisticsSheet)
}

func TestColumnWidth(t *testing.T) {
	rows := []map[string]string{{"a": "0123456789012345"}}
	assert.Equal(t, float64(20), columnWidth("a", rows))
	assert.Equal(t, float64(10), columnWidth("b", rows))
	long := []map[string]string{{"a": string(make([]rune, 80))}}
	assert.Equal(t, float64(50), columnWidth("a", long))
}

func TestSetRefreshOnLoad(t *testing.T) {
	t.Run("rewrites an existing attribute", func(t *testing.T) {
		content := `<pivotCacheDefinition refreshOnLoad="0" recordCount="2">`
		assert.Equal(t, `<pivotCacheDefinition refreshOnLoad="1" recordCount="2">`, setRefreshOnLoad(content))
	})

	t.Run("adds a missing attribute", func(t *testing.T) {
		content := `<pivotCacheDefinition recordCount="2">`
		assert.Equal(t, `<pivotCacheDefinition refreshOnLoad="1" recordCount="2">`, setRefreshOnLoad(content))
	})
}

func TestRefreshPivotCaches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workbook.xlsx")
	writeArchive(t, path, map[string]string{
		"xl/workbook.xml": `<workbook/>`,
		"xl/pivotCache/pivotCacheDefinition1.xml": `<pivotCacheDefinition recordCount="2"/>`,
	})

	require.NoError(t, refreshPivotCaches(path))

	reader, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer reader.Close()
	for _, entry := range reader.File {
		if entry.Name != "xl/pivotCache/pivotCacheDefinition1.xml" {
			continue
		}
		content, err := readZipEntry(entry)
		require.NoError(t, err)
		assert.Contains(t, string(content), `refreshOnLoad="1"`)
		return
	}
	t.Fatal("pivot cache definition missing from the repacked archive")
}

func writeArchive(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	target, err := os.Create(path)
	require.NoError(t, err)
	writer := zip.NewWriter(target)
	for name, content := range entries {
		entry, err := writer.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	require.NoError(t, target.Close())
}
