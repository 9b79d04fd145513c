package config

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// DocType describes one of the supported document categories. Field and
// column names are the production data contract: answer workbooks, DB exports
// and the llm_output JSON all use the Chinese headers.
type DocType struct {
	// Key is the CLI spelling, Name the folder/template spelling.
	Key  string
	Name string

	UploadFolder   string
	AnswerFileName string
	TemplateFile   string

	// Table is the per-type recognition result table in the document schema.
	Table string
	// TypeValue is the expected document_type produced by the service.
	TypeValue string

	// Fields are the columns compared against the answer workbook.
	Fields []string
	// OutputColumns is the base column order of the Result sheet.
	OutputColumns []string
	// FieldMapping maps report columns to columns of Table. Empty for types
	// whose values come from document_master.llm_output instead.
	FieldMapping map[string]string

	// FromLLMOutput marks types whose recognition result is a JSON blob in
	// document_master.llm_output with list-valued fields.
	FromLLMOutput bool
}

// MasterTable is the table tracking every uploaded document and its
// recognition status.
const MasterTable = "document_master"

func docTypes() []DocType {
	return []DocType{
		{
			Key:            "arc",
			Name:           "ARC",
			UploadFolder:   filepath.Join("Upload_folder", "ARC"),
			AnswerFileName: "ARC_Answer.xlsx",
			TemplateFile:   "ARC_Sample.xlsx",
			Table:          "doc_ARC",
			TypeValue:      "ARC",
			Fields:         []string{"資料類型", "居留效期", "居留證號", "核發日期", "舊式統一證號", "護照號碼", "雇主名稱"},
			OutputColumns:  []string{"資料序號", "檔名", "資料類型", "居留證號", "核發日期", "居留效期", "舊式統一證號", "護照號碼", "雇主名稱"},
			FieldMapping: map[string]string{
				"居留證號":   "field_arc_no",
				"核發日期":   "field_issue_date",
				"居留效期":   "field_expiry_date",
				"舊式統一證號": "field_original_arc_no",
				"護照號碼":   "field_passport_no",
				"雇主名稱":   "field_employer_name",
			},
		},
		{
			Key:            "health",
			Name:           "Health",
			UploadFolder:   filepath.Join("Upload_folder", "Health"),
			AnswerFileName: "Health_Answer.xlsx",
			TemplateFile:   "Health_Sample.xlsx",
			Table:          "doc_health_report",
			TypeValue:      "HEALTH_REPORT",
			Fields:         []string{"文件類型", "體檢日期", "報告日期", "是否合格", "護照號碼", "雇主名稱"},
			OutputColumns:  []string{"資料序號", "檔名", "文件類型", "護照號碼", "體檢日期", "報告日期", "是否合格", "雇主名稱"},
			FieldMapping: map[string]string{
				"護照號碼": "field_passport_no",
				"體檢日期": "field_examination_date",
				"報告日期": "field_report_date",
				"是否合格": "field_health_summary",
				"雇主名稱": "field_employer_name",
			},
		},
		{
			Key:            "employment",
			Name:           "Employment",
			UploadFolder:   filepath.Join("Upload_folder", "Employment"),
			AnswerFileName: "Employment_approval_Answer.xlsx",
			TemplateFile:   "Employment_Sample.xlsx",
			Table:          "doc_employment_approval",
			TypeValue:      "EMPLOYMENT_APPROVAL",
			Fields:         []string{"文件類型", "聘可函號", "聘可發文日", "聘可收文日", "編號", "護照號碼", "工作起日", "工作迄日", "雇主名稱"},
			OutputColumns:  []string{"檔名", "文件類型", "雇主名稱", "聘可函號", "編號", "聘可發文日", "聘可收文日", "護照號碼", "工作起日", "工作迄日"},
			FieldMapping:   map[string]string{},
			FromLLMOutput:  true,
		},
	}
}

// DocTypeByKey resolves a document type from its CLI name.
func DocTypeByKey(key string) (DocType, error) {
	for _, doc := range docTypes() {
		if doc.Key == strings.ToLower(key) {
			return doc, nil
		}
	}
	return DocType{}, errors.Errorf("unknown document type '%s', expected one of %s",
		key, strings.Join(DocTypeKeys(), ", "))
}

// DocTypeKeys lists the valid CLI names.
func DocTypeKeys() []string {
	keys := make([]string, 0, 3)
	for _, doc := range docTypes() {
		keys = append(keys, doc.Key)
	}
	sort.Strings(keys)
	return keys
}

// ResultTables lists every recognition result table, master table included.
func ResultTables() []string {
	tables := []string{MasterTable}
	for _, doc := range docTypes() {
		tables = append(tables, doc.Table)
	}
	sort.Strings(tables)
	return tables
}
