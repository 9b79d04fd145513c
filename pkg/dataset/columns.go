// Package dataset merges the exported recognition tables with the answer
// workbooks into the row sets the scorer and the report writer work on.
// Rows are maps keyed by the report column names.
package dataset

// Column names of the production data contract. Answer workbooks, report
// sheets and the llm_output JSON all use these headers.
const (
	ColSequence = "資料序號"
	ColFileName = "檔名"
	ColARCType  = "資料類型"
	ColDocType  = "文件類型"
	ColVerdict  = "辨識結果"

	// AnswerSuffix marks the per-field verdict columns of the Result sheet.
	AnswerSuffix = "_答案"
)

// Master table column names.
const (
	masterUUID      = "uuid"
	masterFileName  = "file_name"
	masterDocType   = "document_type"
	masterCreatedAt = "created_at"
	masterLLMOutput = "llm_output"
)

// AnswerColumn returns the verdict column belonging to a report column.
func AnswerColumn(field string) string {
	return field + AnswerSuffix
}

// OutputColumns appends the verdict columns present in the rows, and the
// overall verdict, to the base column order.
func OutputColumns(rows []map[string]string, baseColumns []string) []string {
	columns := append([]string{}, baseColumns...)
	if len(rows) == 0 {
		return columns
	}
	for _, column := range baseColumns {
		if _, ok := rows[0][AnswerColumn(column)]; ok {
			columns = append(columns, AnswerColumn(column))
		}
	}
	if _, ok := rows[0][ColVerdict]; ok {
		columns = append(columns, ColVerdict)
	}
	return columns
}
