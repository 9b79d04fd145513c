// Package report renders the scored rows and run statistics into the result
// workbooks.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/Howie-0721/ICR-Identification-tool/pkg/config"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/dataset"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/log"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/scoring"
)

// ResultSheet is the sheet carrying the scored rows; the pivot tables of the
// template workbooks read from its ResultTable.
const ResultSheet = "Result"

const (
	statisticsSheet = "Statistics"
	reportSheet     = "Report"
	analyzeSheet    = "Analyze"
)

const tableName = "ResultTable"

// Report bundles everything one result workbook shows.
type Report struct {
	Doc      config.DocType
	Rows     []map[string]string
	Columns  []string
	Stats    []scoring.FileStats
	Summary  scoring.Summary
	Analyses []scoring.FieldAnalysis
}

// Write renders a full report workbook. When the document type's template
// workbook exists under templateDir its pivot sheets are kept and their
// caches are marked for refresh, otherwise a plain workbook is produced.
func Write(path, templateDir string, report Report) error {
	file, fromTemplate, err := openWorkbook(templateDir, report.Doc)
	if err != nil {
		return err
	}

	if err := writeResultSheet(file, report.Rows, report.Columns); err != nil {
		return err
	}
	if err := writeStatisticsSheet(file, report.Stats); err != nil {
		return err
	}
	if err := writeReportSheet(file, report.Summary); err != nil {
		return err
	}
	if err := writeAnalyzeSheet(file, report.Analyses); err != nil {
		return err
	}

	if err := saveWorkbook(file, path); err != nil {
		return err
	}
	if fromTemplate {
		return refreshPivotCaches(path)
	}
	return nil
}

// WriteNoAnswer renders a workbook holding only the merged recognition rows.
func WriteNoAnswer(path string, doc config.DocType, rows []map[string]string, columns []string) error {
	file := excelize.NewFile()

	if err := writeResultSheet(file, rows, columns); err != nil {
		return err
	}
	return saveWorkbook(file, path)
}

func openWorkbook(templateDir string, doc config.DocType) (*excelize.File, bool, error) {
	templatePath := filepath.Join(templateDir, doc.TemplateFile)
	if _, err := os.Stat(templatePath); err != nil {
		log.Entry().Infof("template %s not found, writing a plain workbook", templatePath)
		return excelize.NewFile(), false, nil
	}

	file, err := excelize.OpenFile(templatePath)
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to open template %s", templatePath)
	}
	return file, true, nil
}

func saveWorkbook(file *excelize.File, path string) error {
	index := file.GetSheetIndex(ResultSheet)
	if index >= 0 {
		file.SetActiveSheet(index)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create the report directory")
	}
	if err := file.SaveAs(path); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// ensureSheet creates a sheet or clears a previous version of it, replacing
// the default sheet of fresh workbooks.
func ensureSheet(file *excelize.File, name string) {
	if file.GetSheetIndex(name) >= 0 {
		file.DeleteSheet(name)
	}
	file.NewSheet(name)
	if name != "Sheet1" && len(file.GetSheetList()) > 1 {
		file.DeleteSheet("Sheet1")
	}
}

func writeResultSheet(file *excelize.File, rows []map[string]string, columns []string) error {
	ensureSheet(file, ResultSheet)

	header := make([]interface{}, len(columns))
	for i, column := range columns {
		header[i] = column
	}
	if err := file.SetSheetRow(ResultSheet, "A1", &header); err != nil {
		return errors.Wrap(err, "failed to write the result header")
	}

	for i, row := range rows {
		values := make([]interface{}, len(columns))
		for j, column := range columns {
			values[j] = row[column]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(ResultSheet, cell, &values); err != nil {
			return errors.Wrapf(err, "failed to write result row %d", i+1)
		}
	}

	if err := styleResultSheet(file, rows, columns); err != nil {
		return err
	}
	return addResultTable(file, len(rows), len(columns))
}

func styleResultSheet(file *excelize.File, rows []map[string]string, columns []string) error {
	if len(columns) == 0 {
		return nil
	}

	style, err := file.NewStyle(`{"alignment":{"horizontal":"center","vertical":"center"}}`)
	if err != nil {
		return errors.Wrap(err, "failed to create the cell style")
	}
	last, err := excelize.CoordinatesToCellName(len(columns), len(rows)+1)
	if err != nil {
		return err
	}
	if err := file.SetCellStyle(ResultSheet, "A1", last, style); err != nil {
		return errors.Wrap(err, "failed to apply the cell style")
	}

	for i, column := range columns {
		width := columnWidth(column, rows)
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := file.SetColWidth(ResultSheet, name, name, width); err != nil {
			return errors.Wrapf(err, "failed to size column %s", column)
		}
	}
	return nil
}

// columnWidth sizes a column to its longest value, clamped so the sheet stays
// readable.
func columnWidth(column string, rows []map[string]string) float64 {
	longest := len([]rune(column))
	for _, row := range rows {
		if l := len([]rune(row[column])); l > longest {
			longest = l
		}
	}
	width := float64(longest + 4)
	if width < 10 {
		return 10
	}
	if width > 50 {
		return 50
	}
	return width
}

func addResultTable(file *excelize.File, rowCount, columnCount int) error {
	if columnCount == 0 {
		return nil
	}
	if rowCount == 0 {
		rowCount = 1
	}
	last, err := excelize.CoordinatesToCellName(columnCount, rowCount+1)
	if err != nil {
		return err
	}
	format := fmt.Sprintf(`{"table_name":"%s","table_style":"TableStyleMedium9","show_row_stripes":true}`, tableName)
	if err := file.AddTable(ResultSheet, "A1", last, format); err != nil {
		return errors.Wrap(err, "failed to add the result table")
	}
	return nil
}

func writeStatisticsSheet(file *excelize.File, stats []scoring.FileStats) error {
	ensureSheet(file, statisticsSheet)

	rows := [][]interface{}{
		{dataset.ColFileName, "正確欄位數", "實際應該有的項目數", "模型輸出的項目數", "拿來比較的項目數", "Precision", "Recall", "F1 Score", "Item Accuracy"},
	}
	for _, entry := range stats {
		rows = append(rows, []interface{}{
			entry.FileName,
			entry.Correct,
			entry.Expected,
			entry.ModelOutput,
			entry.Compared,
			fixed2(entry.Precision),
			fixed2(entry.Recall),
			fixed2(entry.F1),
			fixed2(entry.ItemAccuracy),
		})
	}
	return writeSheetRows(file, statisticsSheet, rows)
}

func writeReportSheet(file *excelize.File, summary scoring.Summary) error {
	ensureSheet(file, reportSheet)

	rows := [][]interface{}{
		{"分類", "指標", "數值"},
		{"基本統計", "總記錄數", summary.TotalRecords},
		{"基本統計", "成功處理", summary.TotalRecords},
		{"基本統計", "處理失敗", 0},
		{"基本統計", "完全正確", summary.Perfect},
		{"基本統計", "完全正確率", percent(summary.PerfectRate)},
		{"整體指標", "平均 Precision", fixed3(summary.AvgPrecision)},
		{"整體指標", "平均 Recall", fixed3(summary.AvgRecall)},
		{"整體指標", "平均 F1-Score", fixed3(summary.AvgF1)},
		{"整體指標", "平均項目正確率", fixed3(summary.AvgItemAccuracy)},
		{"整體指標", "平均字元正確率", fixed3(summary.AvgCharAccuracy)},
	}
	return writeSheetRows(file, reportSheet, rows)
}

func writeAnalyzeSheet(file *excelize.File, analyses []scoring.FieldAnalysis) error {
	ensureSheet(file, analyzeSheet)

	rows := [][]interface{}{
		{"欄位名稱", "總出現次數", "完全正確", "部分正確", "完全錯誤", "缺失", "多餘", "正確率", "錯誤率", "部分正確率", "模式"},
	}
	for _, analysis := range analyses {
		partialRate := float64(analysis.Partial) / float64(analysis.Total) * 100
		rows = append(rows, []interface{}{
			analysis.Field,
			analysis.Total,
			analysis.Correct,
			analysis.Partial,
			analysis.Wrong,
			analysis.Missing,
			analysis.Extra,
			percent(analysis.Accuracy),
			percent(analysis.ErrorRate),
			percent(partialRate),
			analysis.Mode,
		})
	}
	return writeSheetRows(file, analyzeSheet, rows)
}

func writeSheetRows(file *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := file.SetSheetRow(sheet, cell, &values); err != nil {
			return errors.Wrapf(err, "failed to write %s row %d", sheet, i+1)
		}
	}
	return nil
}

func fixed2(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func fixed3(value float64) string {
	return fmt.Sprintf("%.3f", value)
}

func percent(value float64) string {
	return fmt.Sprintf("%.3f%%", value)
}
